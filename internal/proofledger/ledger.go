package proofledger

import (
	"context"
	"time"

	"github.com/aegis-guard/aegis/internal/evidence"
	"github.com/aegis-guard/aegis/internal/idgen"
	"github.com/aegis-guard/aegis/internal/pagination"
)

// Ledger is the decision-recording service used by every pipeline stage.
type Ledger struct {
	store Store
	now   func() time.Time
}

// New creates a ledger over the given store.
func New(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// LogParams describes one decision to record. Input and Decision are hashed
// with keccak256 over their JSON encoding; the raw payloads are not stored.
type LogParams struct {
	Role           Role
	Subject        string
	Input          any
	Decision       any
	Evidence       evidence.Set
	ExecutionClass bool
}

// LogDecision writes a new record. Execution-class decisions backed by
// fewer than two evidence families are rejected before anything is written.
func (l *Ledger) LogDecision(ctx context.Context, p LogParams) (*Record, error) {
	if p.ExecutionClass && !p.Evidence.Sufficient() {
		return nil, ErrInsufficientEvidence
	}

	inputHash, err := HashJSON(p.Input)
	if err != nil {
		return nil, err
	}
	decisionHash, err := HashJSON(p.Decision)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ID:             idgen.WithPrefix("proof_"),
		Role:           p.Role,
		Subject:        p.Subject,
		InputHash:      inputHash,
		DecisionHash:   decisionHash,
		Evidence:       p.Evidence,
		ExecutionClass: p.ExecutionClass,
		CreatedAt:      l.now().UTC(),
	}
	if err := l.store.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ConfirmExecution moves a record to its terminal confirmed state, binding
// the execution outcome to it by hash. Repeat confirmation fails with
// ErrAlreadyConfirmed and leaves the record unchanged.
func (l *Ledger) ConfirmExecution(ctx context.Context, id string, result any) (*Record, error) {
	resultHash, err := HashJSON(result)
	if err != nil {
		return nil, err
	}
	if err := l.store.Confirm(ctx, id, resultHash, l.now().UTC()); err != nil {
		return nil, err
	}
	return l.store.Get(ctx, id)
}

// Fetch returns a record by id.
func (l *Ledger) Fetch(ctx context.Context, id string) (*Record, error) {
	return l.store.Get(ctx, id)
}

// History returns a subject's records, newest first.
func (l *Ledger) History(ctx context.Context, subject string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.store.List(ctx, subject, limit)
}

// HistoryPage returns one page of a subject's records, newest first, with
// an opaque cursor for the next page when more records remain.
func (l *Ledger) HistoryPage(ctx context.Context, subject string, before *pagination.Cursor, limit int) ([]*Record, string, bool, error) {
	if limit <= 0 {
		limit = 50
	}
	recs, err := l.store.ListBefore(ctx, subject, before, limit+1)
	if err != nil {
		return nil, "", false, err
	}
	page, next, more := pagination.ComputePage(recs, limit, func(r *Record) (time.Time, string) {
		return r.CreatedAt, r.ID
	})
	return page, next, more, nil
}

// Verify re-checks a record's execution preconditions: an execution-class
// record must still carry sufficient evidence, and any record older than
// the staleness window cannot justify action.
func (l *Ledger) Verify(ctx context.Context, id string) (*Record, error) {
	rec, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.ExecutionClass && !rec.Evidence.Sufficient() {
		return nil, ErrInsufficientEvidence
	}
	if l.now().Sub(rec.CreatedAt) > StalenessWindow {
		return nil, ErrStaleProof
	}
	return rec, nil
}

// VerifyHash reports whether the given payload matches the record's
// decision hash.
func VerifyHash(rec *Record, decision any) (bool, error) {
	h, err := HashJSON(decision)
	if err != nil {
		return false, err
	}
	return h == rec.DecisionHash, nil
}
