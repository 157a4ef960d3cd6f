package riskscore

import (
	"fmt"
	"math"
)

// Field counts per metrics group, used for confidence. Confidence is the
// fraction of populated input fields, independent of the score itself.
const (
	liquidityFields  = 4
	volatilityFields = 3
	incentiveFields  = 4
	contractFields   = 4
	protocolFields   = 5
	totalFields      = liquidityFields + volatilityFields + incentiveFields + contractFields + protocolFields
)

// Score computes the weighted risk breakdown for the given metrics.
func Score(m *PoolMetrics) Breakdown {
	liquidity := scoreLiquidity(m.Liquidity)
	volatility := scoreVolatility(m.Volatility)
	incentive := scoreIncentive(m.Incentive)
	contract := scoreSmartContract(m.SmartContract)
	protocol := scoreProtocol(m.Protocol)

	overall := clamp(int(math.Round(
		float64(liquidity.Score)*WeightLiquidity +
			float64(volatility.Score)*WeightVolatility +
			float64(incentive.Score)*WeightIncentive +
			float64(contract.Score)*WeightSmartContract +
			float64(protocol.Score)*WeightProtocol)))

	return Breakdown{
		OverallScore:  overall,
		Level:         Classify(overall),
		Liquidity:     liquidity,
		Volatility:    volatility,
		Incentive:     incentive,
		SmartContract: contract,
		Protocol:      protocol,
		Confidence:    confidence(m),
	}
}

// familyScorer accumulates penalties and drivers for one family.
type familyScorer struct {
	score   int
	drivers []Driver
}

func newFamilyScorer() *familyScorer {
	return &familyScorer{score: 100}
}

func (f *familyScorer) penalize(impact int, name, description string) {
	f.score += impact
	f.drivers = append(f.drivers, Driver{Name: name, Impact: impact, Description: description})
}

func (f *familyScorer) note(name, description string) {
	f.drivers = append(f.drivers, Driver{Name: name, Impact: 0, Description: description})
}

func (f *familyScorer) result(weight float64) FamilyScore {
	return FamilyScore{Score: clamp(f.score), Weight: weight, Drivers: f.drivers}
}

func scoreLiquidity(m *LiquidityMetrics) FamilyScore {
	f := newFamilyScorer()
	if m == nil {
		return f.result(WeightLiquidity)
	}

	switch {
	case m.TVLChange24h <= -20:
		f.penalize(-30, "TVL Severe Outflow",
			fmt.Sprintf("TVL dropped %.1f%% in 24h, severe liquidity exodus", -m.TVLChange24h))
	case m.TVLChange24h <= -10:
		f.penalize(-15, "TVL Significant Outflow",
			fmt.Sprintf("TVL dropped %.1f%% in 24h, notable liquidity withdrawal", -m.TVLChange24h))
	}

	switch {
	case m.LPConcentration > 0.5:
		f.penalize(-20, "High LP Concentration",
			fmt.Sprintf("Herfindahl index %.2f, liquidity dominated by few providers", m.LPConcentration))
	case m.LPConcentration > 0.3:
		f.penalize(-10, "Moderate LP Concentration",
			fmt.Sprintf("Herfindahl index %.2f, some concentration among top LPs", m.LPConcentration))
	}

	if m.TVL < 100_000 {
		f.penalize(-15, "Low TVL",
			fmt.Sprintf("TVL $%.1fK is below $100K, thin liquidity and high slippage risk", m.TVL/1000))
	}

	if m.DepthRatio < 0.3 {
		f.penalize(-10, "Shallow Liquidity Depth",
			fmt.Sprintf("Depth ratio %.2f, insufficient depth for large trades", m.DepthRatio))
	}

	return f.result(WeightLiquidity)
}

func scoreVolatility(m *VolatilityMetrics) FamilyScore {
	f := newFamilyScorer()
	if m == nil {
		return f.result(WeightVolatility)
	}

	switch {
	case m.Volatility7d > 15:
		f.penalize(-25, "Extreme Volatility",
			fmt.Sprintf("7d volatility %.1f%%, extreme price swings amplify IL", m.Volatility7d))
	case m.Volatility7d > 8:
		f.penalize(-12, "Elevated Volatility",
			fmt.Sprintf("7d volatility %.1f%%, above-average price movement", m.Volatility7d))
	}

	switch {
	case m.ILEstimate > 10:
		f.penalize(-20, "Severe Impermanent Loss",
			fmt.Sprintf("Estimated IL %.1f%%, projected losses likely exceed farming rewards", m.ILEstimate))
	case m.ILEstimate > 5:
		f.penalize(-10, "Moderate Impermanent Loss",
			fmt.Sprintf("Estimated IL %.1f%%, material but manageable divergence loss", m.ILEstimate))
	}

	switch {
	case m.MaxDrawdown30d > 30:
		f.penalize(-20, "Heavy Drawdown",
			fmt.Sprintf("30d max drawdown %.1f%%, capital preservation at risk", m.MaxDrawdown30d))
	case m.MaxDrawdown30d > 15:
		f.penalize(-10, "Notable Drawdown",
			fmt.Sprintf("30d max drawdown %.1f%%, significant recent price decline", m.MaxDrawdown30d))
	}

	return f.result(WeightVolatility)
}

func scoreIncentive(m *IncentiveMetrics) FamilyScore {
	f := newFamilyScorer()
	if m == nil {
		return f.result(WeightIncentive)
	}

	var aprDelta float64
	if m.HeadlineAPR > 0 {
		aprDelta = (m.HeadlineAPR - m.EffectiveAPR) / m.HeadlineAPR * 100
	}
	switch {
	case aprDelta > 50:
		f.penalize(-30, "Yield Trap Territory",
			fmt.Sprintf("Headline APR %.0f%% vs effective %.0f%%, %.0f%% delta indicates misleading yield",
				m.HeadlineAPR, m.EffectiveAPR, aprDelta))
	case aprDelta > 25:
		f.penalize(-15, "APR Discrepancy",
			fmt.Sprintf("Headline/effective APR gap of %.0f%%, real returns lower than advertised", aprDelta))
	}

	switch {
	case m.RewardTrend30d < -30:
		f.penalize(-25, "Reward Token Collapse",
			fmt.Sprintf("Reward token down %.0f%% in 30d, farming rewards losing value rapidly", -m.RewardTrend30d))
	case m.RewardTrend30d < -15:
		f.penalize(-12, "Reward Token Decline",
			fmt.Sprintf("Reward token down %.0f%% in 30d, erosion of farming yield", -m.RewardTrend30d))
	}

	switch {
	case m.EmissionSustainability < 0.3:
		f.penalize(-20, "Unsustainable Emissions",
			fmt.Sprintf("Sustainability score %.2f, emission rate likely to decline sharply", m.EmissionSustainability))
	case m.EmissionSustainability < 0.5:
		f.penalize(-10, "Questionable Emissions",
			fmt.Sprintf("Sustainability score %.2f, emissions may not hold long-term", m.EmissionSustainability))
	}

	return f.result(WeightIncentive)
}

func scoreSmartContract(m *ContractMetrics) FamilyScore {
	f := newFamilyScorer()
	if m == nil {
		return f.result(WeightSmartContract)
	}

	switch {
	case m.AgeDays < 30:
		f.penalize(-30, "Very New Program",
			fmt.Sprintf("Program deployed %d days ago, insufficient battle-testing", m.AgeDays))
	case m.AgeDays < 90:
		f.penalize(-15, "Young Program",
			fmt.Sprintf("Program deployed %d days ago, still in early maturity phase", m.AgeDays))
	}

	if !m.UpgradeLocked {
		f.penalize(-15, "Mutable Program",
			"Upgrade authority not locked, contract can be modified by deployer at any time")
	}

	if m.ExploitHistory {
		f.penalize(-40, "Prior Exploit",
			"Protocol has been exploited before, historical vulnerability indicates structural risk")
	}

	if m.VerifiedInstructions < 5 {
		f.penalize(-10, "Low Instruction Verification",
			fmt.Sprintf("Only %d verified instructions, limited code transparency", m.VerifiedInstructions))
	}

	return f.result(WeightSmartContract)
}

func scoreProtocol(m *ProtocolMetrics) FamilyScore {
	f := newFamilyScorer()
	if m == nil {
		return f.result(WeightProtocol)
	}

	if !m.Audited {
		f.penalize(-30, "No Audit",
			"Protocol has not been audited, no independent security review on record")
	} else if m.AuditCount >= 2 {
		f.note("Multiple Audits",
			fmt.Sprintf("%d independent audits completed, strong security posture", m.AuditCount))
	}

	if !m.TeamDoxxed {
		f.penalize(-20, "Anonymous Team",
			"Team identity not publicly verified, reduced accountability")
	}

	switch m.Governance {
	case GovernanceNone:
		f.penalize(-15, "No Governance",
			"No governance mechanism, protocol decisions are unilateral")
	case GovernanceSingle:
		f.penalize(-10, "Single-signer Governance",
			"Single-key governance, single point of failure for protocol changes")
	}

	switch {
	case m.CategoryRank > 10:
		f.penalize(-10, "Low Category Rank",
			fmt.Sprintf("Ranked #%d in category by TVL, lower adoption increases risk", m.CategoryRank))
	case m.CategoryRank > 5:
		f.penalize(-5, "Mid-tier Category Rank",
			fmt.Sprintf("Ranked #%d in category by TVL, moderate market position", m.CategoryRank))
	}

	return f.result(WeightProtocol)
}

func confidence(m *PoolMetrics) int {
	populated := 0
	if m.Liquidity != nil {
		populated += liquidityFields
	}
	if m.Volatility != nil {
		populated += volatilityFields
	}
	if m.Incentive != nil {
		populated += incentiveFields
	}
	if m.SmartContract != nil {
		populated += contractFields
	}
	if m.Protocol != nil {
		populated += protocolFields
	}
	return int(math.Round(float64(populated) / float64(totalFields) * 100))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
