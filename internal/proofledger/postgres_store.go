package proofledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aegis-guard/aegis/internal/evidence"
	"github.com/aegis-guard/aegis/internal/pagination"
)

// PostgresStore implements Store with PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed record store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the decision record tables. The evidence CHECK mirrors
// the service-side gate so a buggy client cannot write an execution-class
// record without backing.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS decision_records (
			id              VARCHAR(40) PRIMARY KEY,
			role            SMALLINT NOT NULL,
			subject         VARCHAR(64) NOT NULL,
			input_hash      BYTEA NOT NULL,
			decision_hash   BYTEA NOT NULL,
			evidence_bitmap SMALLINT NOT NULL DEFAULT 0,
			evidence_count  SMALLINT NOT NULL DEFAULT 0,
			execution_class BOOLEAN NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ NOT NULL,
			confirmed       BOOLEAN NOT NULL DEFAULT FALSE,
			confirmed_at    TIMESTAMPTZ,
			result_hash     BYTEA,
			CONSTRAINT chk_execution_evidence CHECK (NOT execution_class OR evidence_count >= 2)
		);
		CREATE INDEX IF NOT EXISTS idx_decision_records_subject
			ON decision_records(subject, created_at DESC);
	`)
	return err
}

func (p *PostgresStore) Insert(ctx context.Context, rec *Record) error {
	if rec.ExecutionClass && !rec.Evidence.Sufficient() {
		return ErrInsufficientEvidence
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO decision_records (
			id, role, subject, input_hash, decision_hash,
			evidence_bitmap, evidence_count, execution_class, created_at
		) VALUES ($1, $2, LOWER($3), $4, $5, $6, $7, $8, $9)
	`,
		rec.ID, int(rec.Role), rec.Subject, rec.InputHash.Bytes(),
		rec.DecisionHash.Bytes(), rec.Evidence.Bitmap(), rec.Evidence.Count(),
		rec.ExecutionClass, rec.CreatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	return p.scanRecord(p.db.QueryRowContext(ctx, `
		SELECT id, role, subject, input_hash, decision_hash, evidence_bitmap,
		       execution_class, created_at, confirmed, confirmed_at, result_hash
		FROM decision_records WHERE id = $1
	`, id))
}

// Confirm flips the record to confirmed. The WHERE guard makes the
// exactly-once semantics hold even under concurrent confirmers.
func (p *PostgresStore) Confirm(ctx context.Context, id string, resultHash common.Hash, at time.Time) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE decision_records
		SET confirmed = TRUE, confirmed_at = $2, result_hash = $3
		WHERE id = $1 AND confirmed = FALSE
	`, id, at, resultHash.Bytes())
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var confirmed bool
	err = p.db.QueryRowContext(ctx,
		`SELECT confirmed FROM decision_records WHERE id = $1`, id).Scan(&confirmed)
	if err == sql.ErrNoRows {
		return ErrRecordNotFound
	}
	if err != nil {
		return err
	}
	if confirmed {
		return ErrAlreadyConfirmed
	}
	return ErrRecordNotFound
}

func (p *PostgresStore) List(ctx context.Context, subject string, limit int) ([]*Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, role, subject, input_hash, decision_hash, evidence_bitmap,
		       execution_class, created_at, confirmed, confirmed_at, result_hash
		FROM decision_records
		WHERE subject = LOWER($1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, subject, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := p.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ListBefore(ctx context.Context, subject string, before *pagination.Cursor, limit int) ([]*Record, error) {
	if before == nil {
		return p.List(ctx, subject, limit)
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, role, subject, input_hash, decision_hash, evidence_bitmap,
		       execution_class, created_at, confirmed, confirmed_at, result_hash
		FROM decision_records
		WHERE subject = LOWER($1) AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, subject, before.CreatedAt, before.ID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := p.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *PostgresStore) scanRecord(row rowScanner) (*Record, error) {
	rec := &Record{}
	var role int
	var bitmap uint8
	var inputHash, decisionHash []byte
	var confirmedAt sql.NullTime
	var resultHash []byte

	err := row.Scan(
		&rec.ID, &role, &rec.Subject, &inputHash, &decisionHash, &bitmap,
		&rec.ExecutionClass, &rec.CreatedAt, &rec.Confirmed, &confirmedAt,
		&resultHash,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Role = Role(role)
	rec.Evidence = evidence.FromBitmap(bitmap)
	rec.InputHash = common.BytesToHash(inputHash)
	rec.DecisionHash = common.BytesToHash(decisionHash)
	if confirmedAt.Valid {
		t := confirmedAt.Time
		rec.ConfirmedAt = &t
	}
	if len(resultHash) > 0 {
		h := common.BytesToHash(resultHash)
		rec.ResultHash = &h
	}
	return rec, nil
}
