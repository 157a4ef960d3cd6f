package narrative

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aegis-guard/aegis/internal/analyzer"
	"github.com/aegis-guard/aegis/internal/detector"
	"github.com/aegis-guard/aegis/internal/evidence"
	"github.com/aegis-guard/aegis/internal/riskscore"
)

func sampleResult() *analyzer.Result {
	return &analyzer.Result{
		Threat: detector.Threat{
			Kind:     detector.KindHighIL,
			Severity: detector.SeverityHigh,
			Detail:   "SOL-USDC: IL 12.0% (threshold 10.0%)",
		},
		Breakdown: riskscore.Breakdown{
			OverallScore: 55,
			Level:        riskscore.LevelHigh,
			Liquidity: riskscore.FamilyScore{
				Score:  45,
				Weight: riskscore.WeightLiquidity,
				Drivers: []riskscore.Driver{
					{Name: "TVL Severe Outflow", Impact: -30},
					{Name: "High LP Concentration", Impact: -20},
				},
			},
			Volatility:    riskscore.FamilyScore{Score: 100},
			Incentive:     riskscore.FamilyScore{Score: 100},
			SmartContract: riskscore.FamilyScore{Score: 100},
			Protocol:      riskscore.FamilyScore{Score: 100},
			Confidence:    80,
		},
		Recommendation: analyzer.RecommendReduce,
		Confidence:     80,
		Evidence:       evidence.NewSet(evidence.FamilyPriceVolume, evidence.FamilyLiquidity),
		AssessedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestForAnalysisContent(t *testing.T) {
	text := ForAnalysis(sampleResult())

	assert.Contains(t, text, "HighIL detected (High severity)")
	assert.Contains(t, text, "SOL-USDC: IL 12.0%")
	assert.Contains(t, text, "High risk, score 55/100, confidence 80%")
	assert.Contains(t, text, "Liquidity 45/100: TVL Severe Outflow, High LP Concentration")
	assert.Contains(t, text, "Evidence: 2 independent families")
	assert.True(t, strings.HasSuffix(text, "Recommendation: reduce"))
}

func TestForAnalysisOmitsCleanFamilies(t *testing.T) {
	text := ForAnalysis(sampleResult())

	assert.NotContains(t, text, "Volatility 100")
	assert.NotContains(t, text, "Protocol trust 100")
}

func TestForAnalysisDeterministic(t *testing.T) {
	res := sampleResult()
	assert.Equal(t, ForAnalysis(res), ForAnalysis(res))
}

func TestForAnalysisNoConcerns(t *testing.T) {
	res := sampleResult()
	res.Breakdown.Liquidity = riskscore.FamilyScore{Score: 100}
	res.Breakdown.OverallScore = 100
	res.Breakdown.Level = riskscore.LevelLow

	text := ForAnalysis(res)
	assert.Contains(t, text, "No scoring concerns across populated families")
}
