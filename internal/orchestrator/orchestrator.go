// Package orchestrator wires the pipeline: detect, analyze, authorize,
// execute, with a decision record ahead of every execution.
//
// Concurrency model: analyses for independent threats run concurrently;
// execution is strictly sequential in priority order under a per-subject
// lock, because the daily-cap consume must never let two concurrent runs
// both pass a cap meant to admit one. Runs for different subjects do not
// coordinate.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/aegis-guard/aegis/internal/analyzer"
	"github.com/aegis-guard/aegis/internal/detector"
	"github.com/aegis-guard/aegis/internal/evidence"
	"github.com/aegis-guard/aegis/internal/executor"
	"github.com/aegis-guard/aegis/internal/metrics"
	"github.com/aegis-guard/aegis/internal/permissions"
	"github.com/aegis-guard/aegis/internal/proofledger"
	"github.com/aegis-guard/aegis/internal/realtime"
	"github.com/aegis-guard/aegis/internal/syncutil"
	"github.com/aegis-guard/aegis/internal/traces"
)

// Status is the outcome class of one orchestration run.
type Status string

const (
	StatusExecuted         Status = "executed"
	StatusApprovalRequired Status = "approval_required"
	StatusError            Status = "error"
)

// Analysis pairs one completed analysis with the ledger record that logged it.
type Analysis struct {
	Result  *analyzer.Result `json:"result"`
	ProofID string           `json:"proofId"`
}

// PendingApproval is a derived action the gate did not auto-approve.
type PendingApproval struct {
	Action          executor.Action `json:"action"`
	AnalysisProofID string          `json:"analysisProofId"`
	Reason          string          `json:"reason"`
}

// Outcome is the full report of one run.
type Outcome struct {
	Status           Status            `json:"status"`
	Subject          string            `json:"subject"`
	Threats          []detector.Threat `json:"threats"`
	Analyses         []Analysis        `json:"analyses"`
	Results          []executor.Result `json:"results"`
	PendingApprovals []PendingApproval `json:"pendingApprovals"`
	Error            string            `json:"error,omitempty"`
	StartedAt        time.Time         `json:"startedAt"`
	CompletedAt      time.Time         `json:"completedAt"`
}

// candidate is an action awaiting authorization, bound to its analysis.
type candidate struct {
	action  executor.Action
	proofID string
}

// Orchestrator coordinates one detect-to-execute cycle per call.
type Orchestrator struct {
	perms    permissions.Store
	detector *detector.Detector
	analyzer *analyzer.Analyzer
	ledger   *proofledger.Ledger
	executor *executor.Executor
	locks    *syncutil.ContextShardedMutex
	hub      *realtime.Hub
	log      *slog.Logger
	now      func() time.Time
}

// New creates an orchestrator. The lock pool is internal: one orchestrator
// instance serializes same-subject runs across all its callers.
func New(perms permissions.Store, det *detector.Detector, ana *analyzer.Analyzer,
	ledger *proofledger.Ledger, exec *executor.Executor) *Orchestrator {
	return &Orchestrator{
		perms:    perms,
		detector: det,
		analyzer: ana,
		ledger:   ledger,
		executor: exec,
		locks:    syncutil.NewContextShardedMutex(),
		log:      slog.Default(),
		now:      time.Now,
	}
}

// WithHub wires realtime event publishing.
func (o *Orchestrator) WithHub(hub *realtime.Hub) *Orchestrator {
	o.hub = hub
	return o
}

// WithLogger sets the logger.
func (o *Orchestrator) WithLogger(log *slog.Logger) *Orchestrator {
	o.log = log
	return o
}

// DetectAndRespond runs one full cycle for the subject.
//
// Zero threats is a successful empty outcome. Status error is reserved for
// infrastructure failures: missing permission snapshot, monitoring
// disabled, lock acquisition cut off by the caller.
func (o *Orchestrator) DetectAndRespond(ctx context.Context, subject string) *Outcome {
	started := o.now().UTC()
	subject = strings.ToLower(subject)
	timer := time.Now()

	ctx, span := traces.StartSpan(ctx, "orchestrator.DetectAndRespond", traces.WalletAddr(subject))
	defer span.End()

	out := &Outcome{Subject: subject, StartedAt: started}
	finish := func(status Status, errMsg string) *Outcome {
		out.Status = status
		out.Error = errMsg
		out.CompletedAt = o.now().UTC()
		if errMsg != "" {
			span.SetStatus(codes.Error, errMsg)
		}
		metrics.ScansTotal.WithLabelValues(string(status)).Inc()
		metrics.ScanDuration.Observe(time.Since(timer).Seconds())
		return out
	}

	snap, err := o.perms.Get(ctx, subject)
	if err != nil {
		o.log.Error("permission snapshot unavailable", "subject", subject, "error", err)
		span.RecordError(err)
		return finish(StatusError, fmt.Sprintf("permission snapshot: %v", err))
	}
	if !snap.MonitoringEnabled {
		return finish(StatusError, "monitoring disabled for subject")
	}

	out.Threats = o.detector.Scan(ctx, subject, snap)
	for _, th := range out.Threats {
		metrics.ThreatsDetectedTotal.WithLabelValues(string(th.Kind), string(th.Severity)).Inc()
		if o.hub != nil {
			o.hub.BroadcastThreat(subject, th)
		}
	}
	if len(out.Threats) == 0 {
		o.log.Info("scan clean", "subject", subject)
		return finish(StatusExecuted, "")
	}

	out.Analyses = o.analyzeAll(ctx, subject, out.Threats)

	candidates, pending := o.deriveActions(out.Analyses, snap)
	out.PendingApprovals = pending

	// Same-subject runs must not interleave past this point.
	unlock, err := o.locks.LockContext(ctx, subject)
	if err != nil {
		return finish(StatusError, fmt.Sprintf("subject lock: %v", err))
	}
	defer unlock()

	approved, denied := o.authorize(candidates, snap)
	out.PendingApprovals = append(out.PendingApprovals, denied...)

	out.Results = o.executeAll(ctx, subject, approved, &out.PendingApprovals)

	if len(out.PendingApprovals) > 0 {
		return finish(StatusApprovalRequired, "")
	}
	return finish(StatusExecuted, "")
}

// Assess runs detection and analysis only. No actions are derived and the
// daily cap is untouched; analyses still get evaluation-class records so a
// later execute call can reference them.
func (o *Orchestrator) Assess(ctx context.Context, subject string) *Outcome {
	started := o.now().UTC()
	subject = strings.ToLower(subject)
	timer := time.Now()

	ctx, span := traces.StartSpan(ctx, "orchestrator.Assess", traces.WalletAddr(subject))
	defer span.End()

	out := &Outcome{Subject: subject, StartedAt: started}
	finish := func(status Status, errMsg string) *Outcome {
		out.Status = status
		out.Error = errMsg
		out.CompletedAt = o.now().UTC()
		if errMsg != "" {
			span.SetStatus(codes.Error, errMsg)
		}
		metrics.ScansTotal.WithLabelValues(string(status)).Inc()
		metrics.ScanDuration.Observe(time.Since(timer).Seconds())
		return out
	}

	snap, err := o.perms.Get(ctx, subject)
	if err != nil {
		o.log.Error("permission snapshot unavailable", "subject", subject, "error", err)
		span.RecordError(err)
		return finish(StatusError, fmt.Sprintf("permission snapshot: %v", err))
	}
	if !snap.MonitoringEnabled {
		return finish(StatusError, "monitoring disabled for subject")
	}

	out.Threats = o.detector.Scan(ctx, subject, snap)
	for _, th := range out.Threats {
		metrics.ThreatsDetectedTotal.WithLabelValues(string(th.Kind), string(th.Severity)).Inc()
		if o.hub != nil {
			o.hub.BroadcastThreat(subject, th)
		}
	}
	if len(out.Threats) == 0 {
		o.log.Info("scan clean", "subject", subject)
		return finish(StatusExecuted, "")
	}

	out.Analyses = o.analyzeAll(ctx, subject, out.Threats)
	return finish(StatusExecuted, "")
}

// analyzeAll runs one analysis per threat concurrently and logs an
// evaluation-class record for each.
func (o *Orchestrator) analyzeAll(ctx context.Context, subject string, threats []detector.Threat) []Analysis {
	results := make([]*analyzer.Result, len(threats))

	var wg sync.WaitGroup
	for i, th := range threats {
		wg.Add(1)
		go func(i int, th detector.Threat) {
			defer wg.Done()
			results[i] = o.analyzer.Analyze(ctx, th)
		}(i, th)
	}
	wg.Wait()

	analyses := make([]Analysis, 0, len(results))
	for _, res := range results {
		metrics.AnalysesTotal.WithLabelValues(string(res.Recommendation)).Inc()

		rec, err := o.ledger.LogDecision(ctx, proofledger.LogParams{
			Role:           proofledger.RoleAnalyzer,
			Subject:        subject,
			Input:          res.Threat,
			Decision:       res,
			Evidence:       res.Evidence,
			ExecutionClass: false,
		})
		if err != nil {
			// The analysis stands, it just has no record to execute
			// against. Action derivation will not see it.
			o.log.Error("failed to log analysis record", "subject", subject,
				"threat", res.Threat.ID, "error", err)
			analyses = append(analyses, Analysis{Result: res})
			continue
		}
		metrics.ProofRecordsTotal.WithLabelValues(proofledger.RoleAnalyzer.String()).Inc()
		analyses = append(analyses, Analysis{Result: res, ProofID: rec.ID})

		if o.hub != nil {
			o.hub.BroadcastAnalysis(subject, res)
		}
	}
	return analyses
}

// deriveActions turns analyses into candidate actions, enforcing the
// evidence floor and the subject's auto-response toggles. Toggled-off
// responses surface as pending approvals rather than silently dropping.
func (o *Orchestrator) deriveActions(analyses []Analysis, snap *permissions.Snapshot) ([]candidate, []PendingApproval) {
	var candidates []candidate
	var pending []PendingApproval

	for _, a := range analyses {
		res := a.Result
		if res.Threat.Response == detector.ResponseAlertOnly {
			continue
		}
		if a.ProofID == "" {
			continue
		}

		// Below the evidence floor nothing proceeds, regardless of
		// severity. Mirrors the ledger's execution-class gate.
		if res.Evidence.Count() < evidence.MinExecutionFamilies {
			metrics.ActionsSkippedEvidenceTotal.Inc()
			o.log.Warn("action skipped, insufficient evidence",
				"threat", res.Threat.ID, "kind", res.Threat.Kind,
				"families", res.Evidence.Count())
			continue
		}

		action, enabled := o.buildAction(res, snap)
		if !enabled {
			pending = append(pending, PendingApproval{
				Action:          action,
				AnalysisProofID: a.ProofID,
				Reason:          "auto_response_disabled",
			})
			continue
		}
		candidates = append(candidates, candidate{action: action, proofID: a.ProofID})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].action.Priority < candidates[j].action.Priority
	})
	return candidates, pending
}

// buildAction maps a threat response to a concrete action and reports
// whether the subject has auto-response enabled for it.
func (o *Orchestrator) buildAction(res *analyzer.Result, snap *permissions.Snapshot) (executor.Action, bool) {
	th := res.Threat
	action := executor.Action{
		Protocol:    permissions.Protocol(th.Protocol),
		Pool:        th.Pool,
		Amount:      executor.AmountAll(),
		SlippageBps: snap.MaxSlippageBps,
		ThreatID:    th.ID,
	}

	switch th.Response {
	case detector.ResponseRevokeApproval:
		action.Kind = executor.KindRevokeApproval
		action.Priority = 2
		if th.Severity == detector.SeverityCritical {
			action.Priority = 1
		}
		return action, snap.AutoRevokeApprovals

	case detector.ResponseExitPool:
		action.Kind = executor.KindRemoveLiquidity
		action.Priority = 2
		if th.Severity == detector.SeverityHigh || th.Severity == detector.SeverityCritical {
			action.Priority = 1
		}
		return action, snap.AutoExitPools

	case detector.ResponseUnstake:
		action.Kind = executor.KindUnstake
		action.Priority = 3
		if th.Severity == detector.SeverityCritical {
			action.Priority = 1
		}
		return action, snap.AutoUnstake
	}

	action.Kind = executor.KindSwap
	return action, false
}

// authorize partitions candidates through the pure gate.
func (o *Orchestrator) authorize(candidates []candidate, snap *permissions.Snapshot) ([]candidate, []PendingApproval) {
	var approved []candidate
	var denied []PendingApproval

	for _, c := range candidates {
		if err := permissions.Authorize(c.action.Protocol, snap, o.now()); err != nil {
			metrics.AuthorizationDenialsTotal.WithLabelValues(denialReason(err)).Inc()
			denied = append(denied, PendingApproval{
				Action:          c.action,
				AnalysisProofID: c.proofID,
				Reason:          denialReason(err),
			})
			continue
		}
		approved = append(approved, c)
	}
	return approved, denied
}

// executeAll consumes the daily cap and dispatches each approved action in
// priority order. A consume denial reroutes the action to pending; it is
// never silently dropped.
func (o *Orchestrator) executeAll(ctx context.Context, subject string, approved []candidate, pending *[]PendingApproval) []executor.Result {
	var results []executor.Result

	for _, c := range approved {
		day := permissions.UnixDay(o.now())
		ok, err := o.perms.ConsumeDailyTx(ctx, subject, day)
		if err != nil {
			o.log.Error("daily cap consume failed", "subject", subject, "error", err)
			results = append(results, executor.Result{
				Action:     c.action,
				Success:    false,
				Error:      fmt.Sprintf("consume daily tx: %v", err),
				ExecutedAt: o.now().UTC(),
			})
			continue
		}
		if !ok {
			metrics.AuthorizationDenialsTotal.WithLabelValues(denialReason(permissions.ErrDailyCapReached)).Inc()
			*pending = append(*pending, PendingApproval{
				Action:          c.action,
				AnalysisProofID: c.proofID,
				Reason:          denialReason(permissions.ErrDailyCapReached),
			})
			continue
		}

		res := o.executor.Execute(ctx, c.action, c.proofID, subject)
		results = append(results, res)

		result := "failure"
		if res.Success {
			result = "success"
			metrics.ProofConfirmationsTotal.Inc()
		}
		metrics.ExecutionsTotal.WithLabelValues(string(c.action.Kind), result).Inc()
		if res.ProofID != "" {
			metrics.ProofRecordsTotal.WithLabelValues(proofledger.RoleExecutor.String()).Inc()
		}
		if o.hub != nil {
			o.hub.BroadcastExecution(subject, res)
		}
	}
	return results
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, permissions.ErrExecutorDisabled):
		return "executor_disabled"
	case errors.Is(err, permissions.ErrProtocolNotAllowed):
		return "protocol_not_allowed"
	case errors.Is(err, permissions.ErrDailyCapReached):
		return "daily_cap_reached"
	default:
		return "other"
	}
}
