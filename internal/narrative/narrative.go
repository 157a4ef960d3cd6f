// Package narrative renders deterministic human-readable summaries of risk
// analyses. No model calls, no randomness: the same analysis always yields
// the same text, so narratives can sit next to hashed decision records
// without breaking reproducibility.
package narrative

import (
	"fmt"
	"strings"

	"github.com/aegis-guard/aegis/internal/analyzer"
	"github.com/aegis-guard/aegis/internal/riskscore"
)

// ForAnalysis renders the summary for one completed analysis.
func ForAnalysis(res *analyzer.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s detected (%s severity)\n", res.Threat.Kind, res.Threat.Severity)
	if res.Threat.Detail != "" {
		fmt.Fprintf(&b, "%s\n", res.Threat.Detail)
	}

	fmt.Fprintf(&b, "\nRisk analysis (%s risk, score %d/100, confidence %d%%):\n",
		res.Breakdown.Level, res.Breakdown.OverallScore, res.Confidence)

	for _, line := range familyLines(res.Breakdown) {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	fmt.Fprintf(&b, "\nEvidence: %d independent families (%s)\n",
		res.Evidence.Count(), res.Evidence)
	fmt.Fprintf(&b, "Recommendation: %s", res.Recommendation)

	return b.String()
}

// ForScore renders the summary for a standalone risk score, without threat
// context.
func ForScore(bd riskscore.Breakdown) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Risk analysis (%s risk, score %d/100, confidence %d%%):\n",
		bd.Level, bd.OverallScore, bd.Confidence)

	for _, line := range familyLines(bd) {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	return strings.TrimRight(b.String(), "\n")
}

// familyLines lists the families that lost points, worst first in the
// breakdown's fixed family order, with their leading drivers.
func familyLines(bd riskscore.Breakdown) []string {
	families := []struct {
		name  string
		score riskscore.FamilyScore
	}{
		{"Liquidity", bd.Liquidity},
		{"Volatility", bd.Volatility},
		{"Incentives", bd.Incentive},
		{"Smart contract", bd.SmartContract},
		{"Protocol trust", bd.Protocol},
	}

	var lines []string
	for _, f := range families {
		if f.score.Score >= 100 || len(f.score.Drivers) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %d/100: %s",
			f.name, f.score.Score, driverSummary(f.score.Drivers)))
	}
	if len(lines) == 0 {
		lines = append(lines, "No scoring concerns across populated families")
	}
	return lines
}

func driverSummary(drivers []riskscore.Driver) string {
	names := make([]string, 0, len(drivers))
	for _, d := range drivers {
		if d.Impact >= 0 {
			continue
		}
		names = append(names, d.Name)
	}
	if len(names) == 0 {
		return "minor signals only"
	}
	return strings.Join(names, ", ")
}
