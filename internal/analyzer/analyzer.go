// Package analyzer turns detector findings into evidence-weighted risk
// assessments.
//
// The analyzer only evaluates. It pulls contextual metrics from five
// independently failable providers, scores them, and packages an immutable
// result whose evidence set records exactly which providers returned data.
// Evidence is never overstated: a provider that failed or timed out does
// not contribute its family.
package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aegis-guard/aegis/internal/circuitbreaker"
	"github.com/aegis-guard/aegis/internal/detector"
	"github.com/aegis-guard/aegis/internal/evidence"
	"github.com/aegis-guard/aegis/internal/riskscore"
	"github.com/aegis-guard/aegis/internal/traces"
)

// Recommendation is the analyzer's verdict for one threat.
type Recommendation string

const (
	RecommendSafe    Recommendation = "safe"
	RecommendMonitor Recommendation = "monitor"
	RecommendReduce  Recommendation = "reduce"
	RecommendExit    Recommendation = "exit"
)

// Target names what an analysis is about.
type Target struct {
	Pool     string `json:"pool,omitempty"`
	Protocol string `json:"protocol,omitempty"`
}

// Result is one completed analysis. Immutable once returned.
type Result struct {
	Threat         detector.Threat     `json:"threat"`
	Target         Target              `json:"target"`
	Breakdown      riskscore.Breakdown `json:"breakdown"`
	Recommendation Recommendation      `json:"recommendation"`
	Confidence     int                 `json:"confidence"` // 0-100
	Evidence       evidence.Set        `json:"evidence"`
	AssessedAt     time.Time           `json:"assessedAt"`
}

// Metric providers, one per evidence family. Each is independently
// queryable and independently failable.
type (
	PriceProvider interface {
		PriceMetrics(ctx context.Context, target Target) (*riskscore.VolatilityMetrics, error)
	}
	LiquidityProvider interface {
		LiquidityMetrics(ctx context.Context, target Target) (*riskscore.LiquidityMetrics, error)
	}
	BehaviorProvider interface {
		BehaviorMetrics(ctx context.Context, target Target) (*riskscore.ContractMetrics, error)
	}
	IncentiveProvider interface {
		IncentiveMetrics(ctx context.Context, target Target) (*riskscore.IncentiveMetrics, error)
	}
	TrustProvider interface {
		TrustMetrics(ctx context.Context, target Target) (*riskscore.ProtocolMetrics, error)
	}
)

// Confidence contributions per successful provider, on a base of 50.
const (
	confidenceBase      = 50
	confidencePrice     = 10
	confidenceLiquidity = 15
	confidenceBehavior  = 10
	confidenceIncentive = 10
	confidenceTrust     = 5
)

// DefaultFetchTimeout bounds each provider call.
const DefaultFetchTimeout = 10 * time.Second

// errNoData marks a provider that answered without usable metrics. It
// counts as a failure so the evidence set stays honest.
var errNoData = errors.New("provider returned no data")

// Analyzer wraps the risk scorer with metric collection and the
// recommendation rule.
type Analyzer struct {
	price        PriceProvider
	liquidity    LiquidityProvider
	behavior     BehaviorProvider
	incentive    IncentiveProvider
	trust        TrustProvider
	fetchTimeout time.Duration
	breaker      *circuitbreaker.Breaker
	log          *slog.Logger
	now          func() time.Time
}

// New creates an analyzer over the given providers. Any provider may be
// nil; its family then simply never contributes evidence.
func New(price PriceProvider, liquidity LiquidityProvider, behavior BehaviorProvider,
	incentive IncentiveProvider, trust TrustProvider) *Analyzer {
	return &Analyzer{
		price:        price,
		liquidity:    liquidity,
		behavior:     behavior,
		incentive:    incentive,
		trust:        trust,
		fetchTimeout: DefaultFetchTimeout,
		log:          slog.Default(),
		now:          time.Now,
	}
}

// WithFetchTimeout overrides the per-provider call timeout.
func (a *Analyzer) WithFetchTimeout(t time.Duration) *Analyzer {
	a.fetchTimeout = t
	return a
}

// WithLogger sets the logger.
func (a *Analyzer) WithLogger(log *slog.Logger) *Analyzer {
	a.log = log
	return a
}

// WithBreaker guards provider fetches with a per-provider circuit breaker.
// While a provider's circuit is open its fetch is skipped outright, so the
// evidence set shrinks the same way it does for a failing provider.
func (a *Analyzer) WithBreaker(b *circuitbreaker.Breaker) *Analyzer {
	a.breaker = b
	return a
}

// Analyze assesses one threat. Provider fetches run concurrently; failures
// shrink the evidence set and confidence but never fail the analysis.
func (a *Analyzer) Analyze(ctx context.Context, threat detector.Threat) *Result {
	ctx, span := traces.StartSpan(ctx, "analyzer.Analyze",
		traces.ThreatKind(string(threat.Kind)), traces.ThreatSeverity(string(threat.Severity)))
	defer span.End()

	target := Target{Pool: threat.Pool, Protocol: threat.Protocol}
	metrics, ev, conf := a.collect(ctx, target)

	breakdown := riskscore.Score(metrics)

	return &Result{
		Threat:         threat,
		Target:         target,
		Breakdown:      breakdown,
		Recommendation: Recommend(threat.Severity, breakdown.Level),
		Confidence:     conf,
		Evidence:       ev,
		AssessedAt:     a.now().UTC(),
	}
}

// collect fetches all five metric groups concurrently and reports which
// families actually produced data.
func (a *Analyzer) collect(ctx context.Context, target Target) (*riskscore.PoolMetrics, evidence.Set, int) {
	metrics := &riskscore.PoolMetrics{}
	var ev evidence.Set
	conf := confidenceBase

	var mu sync.Mutex
	var wg sync.WaitGroup

	fetch := func(family evidence.Family, points int, name string, do func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if a.breaker != nil && !a.breaker.Allow(name) {
				a.log.Warn("metric provider circuit open, skipping", "provider", name,
					"pool", target.Pool, "protocol", target.Protocol)
				return
			}

			fctx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
			defer cancel()

			if err := do(fctx); err != nil {
				if a.breaker != nil {
					a.breaker.RecordFailure(name)
				}
				a.log.Warn("metric provider failed", "provider", name,
					"pool", target.Pool, "protocol", target.Protocol, "error", err)
				return
			}
			if a.breaker != nil {
				a.breaker.RecordSuccess(name)
			}
			mu.Lock()
			ev = ev.Add(family)
			conf += points
			mu.Unlock()
		}()
	}

	if a.price != nil {
		fetch(evidence.FamilyPriceVolume, confidencePrice, "price", func(c context.Context) error {
			m, err := a.price.PriceMetrics(c, target)
			if err != nil {
				return err
			}
			if m == nil {
				return errNoData
			}
			mu.Lock()
			metrics.Volatility = m
			mu.Unlock()
			return nil
		})
	}
	if a.liquidity != nil {
		fetch(evidence.FamilyLiquidity, confidenceLiquidity, "liquidity", func(c context.Context) error {
			m, err := a.liquidity.LiquidityMetrics(c, target)
			if err != nil {
				return err
			}
			if m == nil {
				return errNoData
			}
			mu.Lock()
			metrics.Liquidity = m
			mu.Unlock()
			return nil
		})
	}
	if a.behavior != nil {
		fetch(evidence.FamilyBehavior, confidenceBehavior, "behavior", func(c context.Context) error {
			m, err := a.behavior.BehaviorMetrics(c, target)
			if err != nil {
				return err
			}
			if m == nil {
				return errNoData
			}
			mu.Lock()
			metrics.SmartContract = m
			mu.Unlock()
			return nil
		})
	}
	if a.incentive != nil {
		fetch(evidence.FamilyIncentive, confidenceIncentive, "incentive", func(c context.Context) error {
			m, err := a.incentive.IncentiveMetrics(c, target)
			if err != nil {
				return err
			}
			if m == nil {
				return errNoData
			}
			mu.Lock()
			metrics.Incentive = m
			mu.Unlock()
			return nil
		})
	}
	if a.trust != nil {
		fetch(evidence.FamilyProtocol, confidenceTrust, "trust", func(c context.Context) error {
			m, err := a.trust.TrustMetrics(c, target)
			if err != nil {
				return err
			}
			if m == nil {
				return errNoData
			}
			mu.Lock()
			metrics.Protocol = m
			mu.Unlock()
			return nil
		})
	}

	wg.Wait()

	if conf > 100 {
		conf = 100
	}
	return metrics, ev, conf
}

// Recommend applies the joint severity/risk-level rule. The worse of the
// two signals wins.
func Recommend(severity detector.Severity, level riskscore.RiskLevel) Recommendation {
	if severity == detector.SeverityCritical || level == riskscore.LevelCritical {
		return RecommendExit
	}
	if severity == detector.SeverityHigh || level == riskscore.LevelHigh {
		return RecommendReduce
	}
	if severity == detector.SeverityMedium || level == riskscore.LevelMedium {
		return RecommendMonitor
	}
	return RecommendSafe
}
