package executor

import (
	"context"
	"sync"

	"github.com/aegis-guard/aegis/internal/idgen"
	"github.com/aegis-guard/aegis/internal/permissions"
)

// SimulatedAdapter accepts every submission and fabricates a tx reference.
// Set Err to make submissions fail.
type SimulatedAdapter struct {
	Err error

	mu        sync.Mutex
	submitted []Action
}

func (s *SimulatedAdapter) Submit(ctx context.Context, action Action, subject string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.submitted = append(s.submitted, action)
	s.mu.Unlock()
	return idgen.WithPrefix("sim_"), nil
}

// Submitted returns the actions accepted so far.
func (s *SimulatedAdapter) Submitted() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Action, len(s.submitted))
	copy(out, s.submitted)
	return out
}

// NewSimulatedRegistry registers one shared SimulatedAdapter for every
// action kind on every protocol. Demo mode and tests start from this.
func NewSimulatedRegistry() (*Registry, *SimulatedAdapter) {
	adapter := &SimulatedAdapter{}
	registry := NewRegistry()

	kinds := []Kind{
		KindRevokeApproval, KindRemoveLiquidity, KindSwap,
		KindUnstake, KindStake, KindDCA, KindRebalance,
	}
	protocols := []permissions.Protocol{
		permissions.ProtocolJupiter, permissions.ProtocolRaydium,
		permissions.ProtocolOrca, permissions.ProtocolMarinade,
		permissions.ProtocolJito,
	}
	for _, k := range kinds {
		for _, p := range protocols {
			registry.Register(k, p, adapter)
		}
	}
	return registry, adapter
}
