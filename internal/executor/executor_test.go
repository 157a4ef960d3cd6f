package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-guard/aegis/internal/evidence"
	"github.com/aegis-guard/aegis/internal/permissions"
	"github.com/aegis-guard/aegis/internal/proofledger"
)

const testSubject = "0xsubject"

func exitAction() Action {
	return Action{
		Kind:        KindRemoveLiquidity,
		Protocol:    permissions.ProtocolRaydium,
		Pool:        "SOL-USDC",
		Amount:      AmountAll(),
		SlippageBps: 50,
		Priority:    1,
	}
}

// logAnalysis writes the upstream evaluation record an execution refers to.
func logAnalysis(t *testing.T, ledger *proofledger.Ledger, ev evidence.Set) *proofledger.Record {
	t.Helper()
	rec, err := ledger.LogDecision(context.Background(), proofledger.LogParams{
		Role:     proofledger.RoleAnalyzer,
		Subject:  testSubject,
		Input:    "threat",
		Decision: "exit",
		Evidence: ev,
	})
	require.NoError(t, err)
	return rec
}

func threeFamilies() evidence.Set {
	return evidence.NewSet(evidence.FamilyPriceVolume, evidence.FamilyLiquidity, evidence.FamilyProtocol)
}

func TestExecuteSuccess(t *testing.T) {
	ctx := context.Background()
	store := proofledger.NewMemoryStore()
	ledger := proofledger.New(store)
	registry, adapter := NewSimulatedRegistry()
	exec := New(registry, ledger)

	analysis := logAnalysis(t, ledger, threeFamilies())

	res := exec.Execute(ctx, exitAction(), analysis.ID, testSubject)

	require.True(t, res.Success, "error: %s", res.Error)
	assert.Contains(t, res.TxRef, "sim_")
	assert.NotEmpty(t, res.ProofID)
	assert.Len(t, adapter.Submitted(), 1)

	// The execution record exists, is execution-class, and is confirmed
	// with the result bound by hash.
	rec, err := ledger.Fetch(ctx, res.ProofID)
	require.NoError(t, err)
	assert.Equal(t, proofledger.RoleExecutor, rec.Role)
	assert.True(t, rec.ExecutionClass)
	assert.True(t, rec.Confirmed)
	require.NotNil(t, rec.ResultHash)

	ok, err := proofledger.VerifyHash(rec, exitAction())
	require.NoError(t, err)
	assert.True(t, ok) // decision hash covers the action itself
}

func TestExecuteInsufficientUpstreamEvidence(t *testing.T) {
	ctx := context.Background()
	ledger := proofledger.New(proofledger.NewMemoryStore())
	registry, adapter := NewSimulatedRegistry()
	exec := New(registry, ledger)

	analysis := logAnalysis(t, ledger, evidence.NewSet(evidence.FamilyLiquidity))

	res := exec.Execute(ctx, exitAction(), analysis.ID, testSubject)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "insufficient evidence")
	// Nothing was dispatched and no execution record was written.
	assert.Empty(t, adapter.Submitted())
	recs, err := ledger.History(ctx, testSubject, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1) // just the analysis record
}

func TestExecuteStaleAnalysis(t *testing.T) {
	ctx := context.Background()
	store := proofledger.NewMemoryStore()
	ledger := proofledger.New(store)
	registry, adapter := NewSimulatedRegistry()
	exec := New(registry, ledger)

	// Plant an analysis record older than the freshness window.
	old := &proofledger.Record{
		ID:        "proof_old",
		Role:      proofledger.RoleAnalyzer,
		Subject:   testSubject,
		Evidence:  threeFamilies(),
		CreatedAt: time.Now().Add(-proofledger.StalenessWindow - time.Minute),
	}
	require.NoError(t, store.Insert(ctx, old))

	res := exec.Execute(ctx, exitAction(), old.ID, testSubject)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "freshness")
	assert.Empty(t, adapter.Submitted())
}

func TestExecuteDispatchFailureLeavesRecordUnconfirmed(t *testing.T) {
	ctx := context.Background()
	ledger := proofledger.New(proofledger.NewMemoryStore())
	registry, adapter := NewSimulatedRegistry()
	adapter.Err = errors.New("rpc congestion")
	exec := New(registry, ledger)

	analysis := logAnalysis(t, ledger, threeFamilies())

	res := exec.Execute(ctx, exitAction(), analysis.ID, testSubject)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "rpc congestion")
	require.NotEmpty(t, res.ProofID)

	// Proof-before-action: the record was written before dispatch and
	// stays unconfirmed, which is a valid terminal state for audit.
	rec, err := ledger.Fetch(ctx, res.ProofID)
	require.NoError(t, err)
	assert.True(t, rec.ExecutionClass)
	assert.False(t, rec.Confirmed)
	assert.Nil(t, rec.ResultHash)
}

func TestExecuteNoAdapter(t *testing.T) {
	ctx := context.Background()
	ledger := proofledger.New(proofledger.NewMemoryStore())
	exec := New(NewRegistry(), ledger) // empty registry

	analysis := logAnalysis(t, ledger, threeFamilies())

	res := exec.Execute(ctx, exitAction(), analysis.ID, testSubject)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no adapter")
	// The record was still logged first.
	assert.NotEmpty(t, res.ProofID)
}

func TestExecuteUnknownAnalysisRecord(t *testing.T) {
	ledger := proofledger.New(proofledger.NewMemoryStore())
	registry, adapter := NewSimulatedRegistry()
	exec := New(registry, ledger)

	res := exec.Execute(context.Background(), exitAction(), "proof_missing", testSubject)

	assert.False(t, res.Success)
	assert.Empty(t, adapter.Submitted())
}

func TestAmountString(t *testing.T) {
	assert.Equal(t, "all", AmountAll().String())
	assert.Equal(t, "2500.5", AmountOf(decimal.RequireFromString("2500.5")).String())
}

func TestRegistryResolve(t *testing.T) {
	registry := NewRegistry()
	adapter := &SimulatedAdapter{}
	registry.Register(KindUnstake, permissions.ProtocolMarinade, adapter)

	got, err := registry.Resolve(Action{Kind: KindUnstake, Protocol: permissions.ProtocolMarinade})
	require.NoError(t, err)
	assert.Same(t, adapter, got.(*SimulatedAdapter))

	_, err = registry.Resolve(Action{Kind: KindSwap, Protocol: permissions.ProtocolMarinade})
	assert.ErrorIs(t, err, ErrNoAdapter)
}
