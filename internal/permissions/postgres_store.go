package permissions

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store with PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed permission store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the permission tables.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS permission_configs (
			subject                     VARCHAR(42) PRIMARY KEY,
			monitoring_enabled          BOOLEAN NOT NULL DEFAULT FALSE,
			auto_revoke_approvals       BOOLEAN NOT NULL DEFAULT FALSE,
			auto_exit_pools             BOOLEAN NOT NULL DEFAULT FALSE,
			auto_unstake                BOOLEAN NOT NULL DEFAULT FALSE,
			il_threshold_bps            INTEGER NOT NULL DEFAULT 1000,
			health_factor_threshold_bps INTEGER NOT NULL DEFAULT 13000,
			auto_analysis_enabled       BOOLEAN NOT NULL DEFAULT FALSE,
			analysis_frequency_hours    INTEGER NOT NULL DEFAULT 24,
			executor_enabled            BOOLEAN NOT NULL DEFAULT FALSE,
			max_tx_amount_usd           NUMERIC(20,6) NOT NULL DEFAULT 0,
			allowed_protocols           INTEGER NOT NULL DEFAULT 0,
			max_slippage_bps            INTEGER NOT NULL DEFAULT 50,
			dca_enabled                 BOOLEAN NOT NULL DEFAULT FALSE,
			rebalance_enabled           BOOLEAN NOT NULL DEFAULT FALSE,
			daily_tx_limit              INTEGER NOT NULL DEFAULT 10,
			tx_count_today              INTEGER NOT NULL DEFAULT 0,
			last_tx_day                 BIGINT NOT NULL DEFAULT 0,
			updated_at                  TIMESTAMPTZ DEFAULT NOW(),
			CONSTRAINT chk_tx_count_nonneg CHECK (tx_count_today >= 0)
		);
	`)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, subject string) (*Snapshot, error) {
	snap := &Snapshot{}
	var protocols uint32
	var maxTx string

	err := p.db.QueryRowContext(ctx, `
		SELECT subject, monitoring_enabled, auto_revoke_approvals, auto_exit_pools,
		       auto_unstake, il_threshold_bps, health_factor_threshold_bps,
		       auto_analysis_enabled, analysis_frequency_hours, executor_enabled,
		       max_tx_amount_usd, allowed_protocols, max_slippage_bps,
		       dca_enabled, rebalance_enabled, daily_tx_limit, tx_count_today,
		       last_tx_day, updated_at
		FROM permission_configs WHERE subject = LOWER($1)
	`, subject).Scan(
		&snap.Subject, &snap.MonitoringEnabled, &snap.AutoRevokeApprovals,
		&snap.AutoExitPools, &snap.AutoUnstake, &snap.ILThresholdBps,
		&snap.HealthFactorThresholdBps, &snap.AutoAnalysisEnabled,
		&snap.AnalysisFrequencyHours, &snap.ExecutorEnabled, &maxTx,
		&protocols, &snap.MaxSlippageBps, &snap.DCAEnabled,
		&snap.RebalanceEnabled, &snap.DailyTxLimit, &snap.TxCountToday,
		&snap.LastTxDay, &snap.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}

	snap.AllowedProtocols = ProtocolSetFromBitmap(protocols)
	if err := snap.MaxTxAmountUSD.UnmarshalText([]byte(maxTx)); err != nil {
		return nil, fmt.Errorf("parse max_tx_amount_usd: %w", err)
	}
	return snap, nil
}

func (p *PostgresStore) Put(ctx context.Context, snap *Snapshot) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO permission_configs (
			subject, monitoring_enabled, auto_revoke_approvals, auto_exit_pools,
			auto_unstake, il_threshold_bps, health_factor_threshold_bps,
			auto_analysis_enabled, analysis_frequency_hours, executor_enabled,
			max_tx_amount_usd, allowed_protocols, max_slippage_bps,
			dca_enabled, rebalance_enabled, daily_tx_limit, tx_count_today,
			last_tx_day, updated_at
		) VALUES (LOWER($1), $2, $3, $4, $5, $6, $7, $8, $9, $10,
		          $11::NUMERIC(20,6), $12, $13, $14, $15, $16, $17, $18, NOW())
		ON CONFLICT (subject) DO UPDATE SET
			monitoring_enabled          = EXCLUDED.monitoring_enabled,
			auto_revoke_approvals       = EXCLUDED.auto_revoke_approvals,
			auto_exit_pools             = EXCLUDED.auto_exit_pools,
			auto_unstake                = EXCLUDED.auto_unstake,
			il_threshold_bps            = EXCLUDED.il_threshold_bps,
			health_factor_threshold_bps = EXCLUDED.health_factor_threshold_bps,
			auto_analysis_enabled       = EXCLUDED.auto_analysis_enabled,
			analysis_frequency_hours    = EXCLUDED.analysis_frequency_hours,
			executor_enabled            = EXCLUDED.executor_enabled,
			max_tx_amount_usd           = EXCLUDED.max_tx_amount_usd,
			allowed_protocols           = EXCLUDED.allowed_protocols,
			max_slippage_bps            = EXCLUDED.max_slippage_bps,
			dca_enabled                 = EXCLUDED.dca_enabled,
			rebalance_enabled           = EXCLUDED.rebalance_enabled,
			daily_tx_limit              = EXCLUDED.daily_tx_limit,
			updated_at                  = NOW()
	`,
		snap.Subject, snap.MonitoringEnabled, snap.AutoRevokeApprovals,
		snap.AutoExitPools, snap.AutoUnstake, snap.ILThresholdBps,
		snap.HealthFactorThresholdBps, snap.AutoAnalysisEnabled,
		snap.AnalysisFrequencyHours, snap.ExecutorEnabled,
		snap.MaxTxAmountUSD.String(), snap.AllowedProtocols.Bitmap(),
		snap.MaxSlippageBps, snap.DCAEnabled, snap.RebalanceEnabled,
		snap.DailyTxLimit, snap.TxCountToday, snap.LastTxDay,
	)
	return err
}

// ConsumeDailyTx does the increment-or-reset in a single statement so two
// concurrent callers cannot both pass a cap meant to admit one.
func (p *PostgresStore) ConsumeDailyTx(ctx context.Context, subject string, day int64) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE permission_configs SET
			tx_count_today = CASE WHEN last_tx_day = $2 THEN tx_count_today + 1 ELSE 1 END,
			last_tx_day    = $2,
			updated_at     = NOW()
		WHERE subject = LOWER($1)
		  AND (CASE WHEN last_tx_day = $2 THEN tx_count_today ELSE 0 END) < daily_tx_limit
	`, subject, day)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	// Either the cap is reached or the subject does not exist.
	var exists bool
	err = p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM permission_configs WHERE subject = LOWER($1))`,
		subject).Scan(&exists)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, ErrSnapshotNotFound
	}
	return false, nil
}

func (p *PostgresStore) ListMonitored(ctx context.Context) ([]*Snapshot, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT subject, monitoring_enabled, auto_revoke_approvals, auto_exit_pools,
		       auto_unstake, il_threshold_bps, health_factor_threshold_bps,
		       auto_analysis_enabled, analysis_frequency_hours, executor_enabled,
		       max_tx_amount_usd, allowed_protocols, max_slippage_bps,
		       dca_enabled, rebalance_enabled, daily_tx_limit, tx_count_today,
		       last_tx_day, updated_at
		FROM permission_configs WHERE monitoring_enabled
		ORDER BY subject
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap := &Snapshot{}
		var protocols uint32
		var maxTx string
		if err := rows.Scan(
			&snap.Subject, &snap.MonitoringEnabled, &snap.AutoRevokeApprovals,
			&snap.AutoExitPools, &snap.AutoUnstake, &snap.ILThresholdBps,
			&snap.HealthFactorThresholdBps, &snap.AutoAnalysisEnabled,
			&snap.AnalysisFrequencyHours, &snap.ExecutorEnabled, &maxTx,
			&protocols, &snap.MaxSlippageBps, &snap.DCAEnabled,
			&snap.RebalanceEnabled, &snap.DailyTxLimit, &snap.TxCountToday,
			&snap.LastTxDay, &snap.UpdatedAt,
		); err != nil {
			return nil, err
		}
		snap.AllowedProtocols = ProtocolSetFromBitmap(protocols)
		if err := snap.MaxTxAmountUSD.UnmarshalText([]byte(maxTx)); err != nil {
			return nil, fmt.Errorf("parse max_tx_amount_usd: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
