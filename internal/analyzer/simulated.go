package analyzer

import (
	"context"

	"github.com/aegis-guard/aegis/internal/riskscore"
)

// SimulatedProviders serves fixed metric groups for demo mode and tests.
// A nil group or a set Err makes that family unavailable.
type SimulatedProviders struct {
	Price     *riskscore.VolatilityMetrics
	Liquidity *riskscore.LiquidityMetrics
	Behavior  *riskscore.ContractMetrics
	Incentive *riskscore.IncentiveMetrics
	Trust     *riskscore.ProtocolMetrics

	PriceErr     error
	LiquidityErr error
	BehaviorErr  error
	IncentiveErr error
	TrustErr     error
}

// NewSimulatedProviders returns providers for a healthy mid-size pool.
func NewSimulatedProviders() *SimulatedProviders {
	return &SimulatedProviders{
		Price: &riskscore.VolatilityMetrics{
			Volatility7d:   6.5,
			ILEstimate:     3.0,
			MaxDrawdown30d: 12.0,
		},
		Liquidity: &riskscore.LiquidityMetrics{
			TVL:             5_000_000,
			TVLChange24h:    -2.5,
			DepthRatio:      0.4,
			LPConcentration: 0.22,
		},
		Behavior: &riskscore.ContractMetrics{
			AgeDays:              180,
			UpgradeLocked:        true,
			VerifiedInstructions: 12,
		},
		Incentive: &riskscore.IncentiveMetrics{
			HeadlineAPR:            15.0,
			EffectiveAPR:           8.5,
			RewardTrend30d:         -5.0,
			EmissionSustainability: 0.7,
		},
		Trust: &riskscore.ProtocolMetrics{
			TeamDoxxed:   true,
			Audited:      true,
			AuditCount:   2,
			CategoryRank: 3,
			Governance:   riskscore.GovernanceMultisig,
		},
	}
}

func (s *SimulatedProviders) PriceMetrics(ctx context.Context, target Target) (*riskscore.VolatilityMetrics, error) {
	if s.PriceErr != nil {
		return nil, s.PriceErr
	}
	return s.Price, nil
}

func (s *SimulatedProviders) LiquidityMetrics(ctx context.Context, target Target) (*riskscore.LiquidityMetrics, error) {
	if s.LiquidityErr != nil {
		return nil, s.LiquidityErr
	}
	return s.Liquidity, nil
}

func (s *SimulatedProviders) BehaviorMetrics(ctx context.Context, target Target) (*riskscore.ContractMetrics, error) {
	if s.BehaviorErr != nil {
		return nil, s.BehaviorErr
	}
	return s.Behavior, nil
}

func (s *SimulatedProviders) IncentiveMetrics(ctx context.Context, target Target) (*riskscore.IncentiveMetrics, error) {
	if s.IncentiveErr != nil {
		return nil, s.IncentiveErr
	}
	return s.Incentive, nil
}

func (s *SimulatedProviders) TrustMetrics(ctx context.Context, target Target) (*riskscore.ProtocolMetrics, error) {
	if s.TrustErr != nil {
		return nil, s.TrustErr
	}
	return s.Trust, nil
}
