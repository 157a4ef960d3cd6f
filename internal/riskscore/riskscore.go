// Package riskscore implements evidence-weighted risk scoring for DeFi pools.
//
// A pool is scored across 5 weighted families: liquidity, volatility,
// incentive, smart contract, and protocol trust. Each family starts at 100
// and loses fixed penalties as metric thresholds are crossed; every crossed
// threshold produces one named driver explaining the deduction. Scoring is
// pure and deterministic — no I/O, no clock, identical input yields an
// identical breakdown including driver order.
package riskscore

// RiskLevel classifies an overall score. Higher scores are safer.
type RiskLevel string

const (
	LevelLow      RiskLevel = "Low"      // score >= 81
	LevelMedium   RiskLevel = "Medium"   // score >= 61
	LevelHigh     RiskLevel = "High"     // score >= 41
	LevelCritical RiskLevel = "Critical" // below 41
)

// Family weights. Must sum to 1.0.
const (
	WeightLiquidity     = 0.25
	WeightVolatility    = 0.20
	WeightIncentive     = 0.20
	WeightSmartContract = 0.20
	WeightProtocol      = 0.15
)

// Governance describes who can change protocol parameters.
type Governance string

const (
	GovernanceMultisig Governance = "multisig"
	GovernanceDAO      Governance = "dao"
	GovernanceSingle   Governance = "single"
	GovernanceNone     Governance = "none"
)

// LiquidityMetrics covers pool depth and TVL movement.
type LiquidityMetrics struct {
	TVL             float64 `json:"tvl"`             // USD
	TVLChange24h    float64 `json:"tvlChange24h"`    // percentage, negative = outflow
	DepthRatio      float64 `json:"depthRatio"`      // depth vs TVL, 0-1
	LPConcentration float64 `json:"lpConcentration"` // Herfindahl index, 0-1
}

// VolatilityMetrics covers price movement and divergence loss.
type VolatilityMetrics struct {
	Volatility7d   float64 `json:"volatility7d"`   // stddev as percentage
	ILEstimate     float64 `json:"ilEstimate"`     // percentage
	MaxDrawdown30d float64 `json:"maxDrawdown30d"` // percentage, positive = loss
}

// IncentiveMetrics covers yield quality and emission sustainability.
type IncentiveMetrics struct {
	HeadlineAPR            float64 `json:"headlineApr"`
	EffectiveAPR           float64 `json:"effectiveApr"` // after fees and IL
	RewardTrend30d         float64 `json:"rewardTrend30d"`
	EmissionSustainability float64 `json:"emissionSustainability"` // 0-1
}

// ContractMetrics covers program maturity and exploit history.
type ContractMetrics struct {
	AgeDays              int  `json:"ageDays"`
	UpgradeLocked        bool `json:"upgradeLocked"`
	VerifiedInstructions int  `json:"verifiedInstructions"`
	ExploitHistory       bool `json:"exploitHistory"`
}

// ProtocolMetrics covers team, audit, and market-position signals.
type ProtocolMetrics struct {
	TeamDoxxed   bool       `json:"teamDoxxed"`
	Audited      bool       `json:"audited"`
	AuditCount   int        `json:"auditCount"`
	CategoryRank int        `json:"categoryRank"` // 1 = top of category by TVL
	Governance   Governance `json:"governance"`
}

// PoolMetrics is the full scoring input. A nil group means that family's data
// source returned nothing: the family scores 100 with no drivers, and the
// breakdown's confidence drops by that group's field share.
type PoolMetrics struct {
	Liquidity     *LiquidityMetrics  `json:"liquidity,omitempty"`
	Volatility    *VolatilityMetrics `json:"volatility,omitempty"`
	Incentive     *IncentiveMetrics  `json:"incentive,omitempty"`
	SmartContract *ContractMetrics   `json:"smartContract,omitempty"`
	Protocol      *ProtocolMetrics   `json:"protocol,omitempty"`
}

// Driver is one named contribution to a family score. Negative impact adds
// risk; impact 0 records a neutral observation.
type Driver struct {
	Name        string `json:"name"`
	Impact      int    `json:"impact"`
	Description string `json:"description"`
}

// FamilyScore holds one family's clamped score, weight, and drivers in
// check order.
type FamilyScore struct {
	Score   int      `json:"score"` // 0-100
	Weight  float64  `json:"weight"`
	Drivers []Driver `json:"drivers"`
}

// Breakdown is the scorer output. Immutable once computed.
type Breakdown struct {
	OverallScore  int         `json:"overallScore"` // 0-100, 100 = safest
	Level         RiskLevel   `json:"riskLevel"`
	Liquidity     FamilyScore `json:"liquidity"`
	Volatility    FamilyScore `json:"volatility"`
	Incentive     FamilyScore `json:"incentive"`
	SmartContract FamilyScore `json:"smartContract"`
	Protocol      FamilyScore `json:"protocol"`
	Confidence    int         `json:"confidence"` // 0-100, populated-field ratio
}

// Classify maps an overall score to its risk level. Breakpoints are fixed:
// 81/61/41.
func Classify(score int) RiskLevel {
	switch {
	case score >= 81:
		return LevelLow
	case score >= 61:
		return LevelMedium
	case score >= 41:
		return LevelHigh
	default:
		return LevelCritical
	}
}
