// Package executor carries out defensive actions with a proof-before-action
// guarantee.
//
// Every execution follows the same sequence: verify the upstream analysis
// record is fresh and sufficiently evidenced, log a fresh execution-class
// record referencing it, dispatch through a protocol adapter, confirm the
// record with the result hash. A failure at any step stops the sequence;
// an unconfirmed record after a failed dispatch is a valid audit state.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/codes"

	"github.com/aegis-guard/aegis/internal/permissions"
	"github.com/aegis-guard/aegis/internal/proofledger"
	"github.com/aegis-guard/aegis/internal/traces"
)

var ErrNoAdapter = errors.New("executor: no adapter for action")

// Kind is the action class to perform.
type Kind string

const (
	KindRevokeApproval  Kind = "revoke_approval"
	KindRemoveLiquidity Kind = "remove_liquidity"
	KindSwap            Kind = "swap"
	KindUnstake         Kind = "unstake"
	KindStake           Kind = "stake"
	KindDCA             Kind = "dca"
	KindRebalance       Kind = "rebalance"
)

// Amount is a position size: either a concrete USD-denominated value or
// the whole position.
type Amount struct {
	All   bool            `json:"all,omitempty"`
	Value decimal.Decimal `json:"value,omitempty"`
}

// AmountAll means the entire position.
func AmountAll() Amount { return Amount{All: true} }

// AmountOf wraps a concrete value.
func AmountOf(v decimal.Decimal) Amount { return Amount{Value: v} }

func (a Amount) String() string {
	if a.All {
		return "all"
	}
	return a.Value.String()
}

// Action is one defensive operation to carry out.
type Action struct {
	Kind        Kind                 `json:"kind"`
	Protocol    permissions.Protocol `json:"protocol"`
	Pool        string               `json:"pool,omitempty"`
	Token       string               `json:"token,omitempty"`
	Amount      Amount               `json:"amount"`
	SlippageBps int                  `json:"slippageBps,omitempty"`
	Priority    int                  `json:"priority"` // 1 = highest
	ThreatID    string               `json:"threatId,omitempty"`
}

// Result reports one execution attempt.
type Result struct {
	Action     Action    `json:"action"`
	Success    bool      `json:"success"`
	TxRef      string    `json:"txRef,omitempty"`
	ProofID    string    `json:"proofId,omitempty"`
	Error      string    `json:"error,omitempty"`
	ExecutedAt time.Time `json:"executedAt"`
}

// Adapter submits one action class to one protocol and returns a
// transaction reference.
type Adapter interface {
	Submit(ctx context.Context, action Action, subject string) (txRef string, err error)
}

type adapterKey struct {
	kind     Kind
	protocol permissions.Protocol
}

// Registry resolves adapters by action kind and protocol.
type Registry struct {
	adapters map[adapterKey]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[adapterKey]Adapter)}
}

// Register binds an adapter to one kind and protocol.
func (r *Registry) Register(kind Kind, protocol permissions.Protocol, a Adapter) {
	r.adapters[adapterKey{kind, protocol}] = a
}

// Resolve returns the adapter for the action, or ErrNoAdapter.
func (r *Registry) Resolve(action Action) (Adapter, error) {
	a, ok := r.adapters[adapterKey{action.Kind, action.Protocol}]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrNoAdapter, action.Kind, action.Protocol)
	}
	return a, nil
}

// DefaultDispatchTimeout bounds one adapter submission.
const DefaultDispatchTimeout = 30 * time.Second

// Executor dispatches actions through registered adapters, bracketed by
// ledger records.
type Executor struct {
	registry        *Registry
	ledger          *proofledger.Ledger
	dispatchTimeout time.Duration
	log             *slog.Logger
	now             func() time.Time
}

// New creates an executor.
func New(registry *Registry, ledger *proofledger.Ledger) *Executor {
	return &Executor{
		registry:        registry,
		ledger:          ledger,
		dispatchTimeout: DefaultDispatchTimeout,
		log:             slog.Default(),
		now:             time.Now,
	}
}

// WithDispatchTimeout overrides the adapter submission timeout.
func (e *Executor) WithDispatchTimeout(t time.Duration) *Executor {
	e.dispatchTimeout = t
	return e
}

// WithLogger sets the logger.
func (e *Executor) WithLogger(log *slog.Logger) *Executor {
	e.log = log
	return e
}

// Execute runs one action against the analysis record that justified it.
// On failure the returned Result carries the error; the ledger record, if
// one was written, stays unconfirmed.
func (e *Executor) Execute(ctx context.Context, action Action, analysisProofID, subject string) Result {
	ctx, span := traces.StartSpan(ctx, "executor.Execute",
		traces.ActionKind(string(action.Kind)), traces.Protocol(string(action.Protocol)),
		traces.ProofID(analysisProofID))
	defer span.End()

	fail := func(err error) Result {
		e.log.Error("execution failed", "kind", action.Kind, "protocol", action.Protocol,
			"subject", subject, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "execution failed")
		return Result{Action: action, Success: false, Error: err.Error(), ExecutedAt: e.now().UTC()}
	}

	// The analysis that justifies this action must still hold.
	upstream, err := e.ledger.Verify(ctx, analysisProofID)
	if err != nil {
		return fail(fmt.Errorf("verify analysis record: %w", err))
	}

	// Proof before action: the execution-class record exists before any
	// side effect. Its evidence is the analysis evidence, so the ledger
	// gate applies here too.
	rec, err := e.ledger.LogDecision(ctx, proofledger.LogParams{
		Role:           proofledger.RoleExecutor,
		Subject:        subject,
		Input:          map[string]string{"analysisProofId": upstream.ID},
		Decision:       action,
		Evidence:       upstream.Evidence,
		ExecutionClass: true,
	})
	if err != nil {
		return fail(fmt.Errorf("log execution record: %w", err))
	}

	adapter, err := e.registry.Resolve(action)
	if err != nil {
		res := fail(err)
		res.ProofID = rec.ID
		return res
	}

	dctx, cancel := context.WithTimeout(ctx, e.dispatchTimeout)
	txRef, err := adapter.Submit(dctx, action, subject)
	cancel()
	if err != nil {
		res := fail(fmt.Errorf("dispatch %s on %s: %w", action.Kind, action.Protocol, err))
		res.ProofID = rec.ID
		return res
	}

	if _, err := e.ledger.ConfirmExecution(ctx, rec.ID, map[string]string{"txRef": txRef}); err != nil {
		res := fail(fmt.Errorf("confirm execution: %w", err))
		res.ProofID = rec.ID
		res.TxRef = txRef
		return res
	}

	e.log.Info("action executed", "kind", action.Kind, "protocol", action.Protocol,
		"subject", subject, "txRef", txRef, "proofId", rec.ID)

	return Result{
		Action:     action,
		Success:    true,
		TxRef:      txRef,
		ProofID:    rec.ID,
		ExecutedAt: e.now().UTC(),
	}
}
