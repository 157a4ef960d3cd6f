// Package detector scans a subject's wallet state for threats.
//
// The detector only evaluates — it emits findings and never executes or
// mutates anything. Each check runs against its own data source with its
// own timeout; a source failure degrades that check to "no findings" and
// the rest of the scan continues.
package detector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aegis-guard/aegis/internal/idgen"
	"github.com/aegis-guard/aegis/internal/permissions"
)

// Severity ranks a threat.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Kind identifies the threat category.
type Kind string

const (
	KindDangerousApproval  Kind = "DangerousApproval"
	KindHighIL             Kind = "HighIL"
	KindLowHealthFactor    Kind = "LowHealthFactor"
	KindSuspiciousActivity Kind = "SuspiciousActivity"
)

// Response is the action class a threat suggests. AlertOnly threats inform
// the subject and never derive an action.
type Response string

const (
	ResponseRevokeApproval Response = "revoke_approval"
	ResponseExitPool       Response = "exit_pool"
	ResponseUnstake        Response = "unstake"
	ResponseAlertOnly      Response = "alert_only"
)

// PositionKind classifies a DeFi position.
type PositionKind string

const (
	PositionLP      PositionKind = "LP"
	PositionLending PositionKind = "Lending"
	PositionStaking PositionKind = "Staking"
	PositionToken   PositionKind = "Token"
)

// Position is a subject's holding in one protocol.
type Position struct {
	Kind         PositionKind    `json:"kind"`
	Protocol     string          `json:"protocol"`
	Pool         string          `json:"pool,omitempty"`
	AmountUSD    decimal.Decimal `json:"amountUsd"`
	HealthFactor *float64        `json:"healthFactor,omitempty"` // lending only
	ILFraction   *float64        `json:"ilFraction,omitempty"`   // LP only, 0.12 = 12%
}

// Approval is a token spending approval granted by the subject.
type Approval struct {
	TokenSymbol string `json:"tokenSymbol"`
	Spender     string `json:"spender"`
	Unlimited   bool   `json:"unlimited"`
}

// ActivityFinding is a suspicious pattern in the subject's history.
type ActivityFinding struct {
	Pattern string `json:"pattern"` // wash_trading, bot_timing, phishing
	Detail  string `json:"detail"`
}

// Threat is one finding from a scan. Threats are consumed by the analyzer
// within the same cycle and not persisted.
type Threat struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Severity   Severity  `json:"severity"`
	Detail     string    `json:"detail"`
	Response   Response  `json:"response"`
	Protocol   string    `json:"protocol,omitempty"`
	Pool       string    `json:"pool,omitempty"`
	Position   *Position `json:"position,omitempty"`
	DetectedAt time.Time `json:"detectedAt"`
}

// PositionSource lists a subject's DeFi positions.
type PositionSource interface {
	Positions(ctx context.Context, subject string) ([]Position, error)
}

// ApprovalSource lists a subject's token approvals.
type ApprovalSource interface {
	Approvals(ctx context.Context, subject string) ([]Approval, error)
}

// ActivitySource reports suspicious patterns in a subject's activity.
type ActivitySource interface {
	Findings(ctx context.Context, subject string) ([]ActivityFinding, error)
}

// DefaultCheckTimeout bounds each data source call.
const DefaultCheckTimeout = 10 * time.Second

// Detector runs the threat checks.
type Detector struct {
	positions    PositionSource
	approvals    ApprovalSource
	activity     ActivitySource
	checkTimeout time.Duration
	log          *slog.Logger
	now          func() time.Time
}

// New creates a detector over the given sources.
func New(positions PositionSource, approvals ApprovalSource, activity ActivitySource) *Detector {
	return &Detector{
		positions:    positions,
		approvals:    approvals,
		activity:     activity,
		checkTimeout: DefaultCheckTimeout,
		log:          slog.Default(),
		now:          time.Now,
	}
}

// WithCheckTimeout overrides the per-source call timeout.
func (d *Detector) WithCheckTimeout(t time.Duration) *Detector {
	d.checkTimeout = t
	return d
}

// WithLogger sets the logger.
func (d *Detector) WithLogger(log *slog.Logger) *Detector {
	d.log = log
	return d
}

// Scan runs all checks for the subject and returns the union of findings.
// Checks are independent; a failed source logs a warning and contributes
// nothing.
func (d *Detector) Scan(ctx context.Context, subject string, snap *permissions.Snapshot) []Threat {
	var threats []Threat

	threats = append(threats, d.checkApprovals(ctx, subject)...)

	positions, err := d.fetchPositions(ctx, subject)
	if err != nil {
		d.log.Warn("position source unavailable, skipping position checks",
			"subject", subject, "error", err)
	} else {
		threats = append(threats, d.checkImpermanentLoss(positions, snap)...)
		threats = append(threats, d.checkHealthFactors(positions, snap)...)
	}

	threats = append(threats, d.checkActivity(ctx, subject)...)

	return threats
}

func (d *Detector) fetchPositions(ctx context.Context, subject string) ([]Position, error) {
	ctx, cancel := context.WithTimeout(ctx, d.checkTimeout)
	defer cancel()
	return d.positions.Positions(ctx, subject)
}

func (d *Detector) checkApprovals(ctx context.Context, subject string) []Threat {
	ctx, cancel := context.WithTimeout(ctx, d.checkTimeout)
	defer cancel()

	approvals, err := d.approvals.Approvals(ctx, subject)
	if err != nil {
		d.log.Warn("approval source unavailable, skipping approval check",
			"subject", subject, "error", err)
		return nil
	}

	var threats []Threat
	for _, a := range approvals {
		if !a.Unlimited {
			continue
		}
		threats = append(threats, Threat{
			ID:         idgen.WithPrefix("thr_"),
			Kind:       KindDangerousApproval,
			Severity:   SeverityHigh,
			Detail:     fmt.Sprintf("Unlimited approval for %s to %s", a.TokenSymbol, a.Spender),
			Response:   ResponseRevokeApproval,
			Protocol:   a.Spender,
			DetectedAt: d.now().UTC(),
		})
	}
	return threats
}

func (d *Detector) checkImpermanentLoss(positions []Position, snap *permissions.Snapshot) []Threat {
	threshold := snap.ILThreshold()

	var threats []Threat
	for _, p := range positions {
		if p.Kind != PositionLP || p.ILFraction == nil {
			continue
		}
		il := *p.ILFraction
		if il <= threshold {
			continue
		}

		severity := SeverityMedium
		if il > threshold*2 {
			severity = SeverityHigh
		}
		pos := p
		threats = append(threats, Threat{
			ID:       idgen.WithPrefix("thr_"),
			Kind:     KindHighIL,
			Severity: severity,
			Detail: fmt.Sprintf("%s: IL %.1f%% (threshold %.1f%%)",
				p.Pool, il*100, threshold*100),
			Response:   ResponseExitPool,
			Protocol:   p.Protocol,
			Pool:       p.Pool,
			Position:   &pos,
			DetectedAt: d.now().UTC(),
		})
	}
	return threats
}

func (d *Detector) checkHealthFactors(positions []Position, snap *permissions.Snapshot) []Threat {
	threshold := snap.HealthFactorThreshold()

	var threats []Threat
	for _, p := range positions {
		if p.Kind != PositionLending || p.HealthFactor == nil {
			continue
		}
		factor := *p.HealthFactor
		if factor >= threshold {
			continue
		}

		severity := SeverityHigh
		if factor < 1.1 {
			severity = SeverityCritical
		}
		pos := p
		threats = append(threats, Threat{
			ID:       idgen.WithPrefix("thr_"),
			Kind:     KindLowHealthFactor,
			Severity: severity,
			Detail: fmt.Sprintf("%s: health factor %.2f (threshold %.2f)",
				p.Protocol, factor, threshold),
			Response:   ResponseUnstake,
			Protocol:   p.Protocol,
			Position:   &pos,
			DetectedAt: d.now().UTC(),
		})
	}
	return threats
}

func (d *Detector) checkActivity(ctx context.Context, subject string) []Threat {
	ctx, cancel := context.WithTimeout(ctx, d.checkTimeout)
	defer cancel()

	findings, err := d.activity.Findings(ctx, subject)
	if err != nil {
		d.log.Warn("activity source unavailable, skipping activity check",
			"subject", subject, "error", err)
		return nil
	}

	var threats []Threat
	for _, f := range findings {
		threats = append(threats, Threat{
			ID:         idgen.WithPrefix("thr_"),
			Kind:       KindSuspiciousActivity,
			Severity:   SeverityMedium,
			Detail:     f.Detail,
			Response:   ResponseAlertOnly,
			DetectedAt: d.now().UTC(),
		})
	}
	return threats
}
