// Package monitor runs the background scan loop.
//
// Subjects that enabled auto-analysis get a periodic read-only assessment
// at their configured cadence. The loop never dispatches actions; it exists
// so threats surface without anyone calling the scan endpoint.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aegis-guard/aegis/internal/orchestrator"
	"github.com/aegis-guard/aegis/internal/permissions"
)

// Assessor runs one read-only assessment for a subject.
type Assessor interface {
	Assess(ctx context.Context, subject string) *orchestrator.Outcome
}

// Config for the background monitor.
type Config struct {
	// PollInterval is how often the loop checks for due subjects.
	PollInterval time.Duration
	// DefaultFrequency applies when a snapshot has no analysis cadence set.
	DefaultFrequency time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:     time.Minute,
		DefaultFrequency: 24 * time.Hour,
	}
}

// Monitor periodically assesses subjects with auto-analysis enabled.
type Monitor struct {
	cfg      Config
	perms    permissions.Store
	assessor Assessor
	logger   *slog.Logger

	mu       sync.Mutex
	lastScan map[string]time.Time

	now  func() time.Time
	stop chan struct{}
	done chan struct{}
}

// New creates a monitor.
func New(cfg Config, perms permissions.Store, assessor Assessor, logger *slog.Logger) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.DefaultFrequency <= 0 {
		cfg.DefaultFrequency = 24 * time.Hour
	}
	return &Monitor{
		cfg:      cfg,
		perms:    perms,
		assessor: assessor,
		logger:   logger,
		lastScan: make(map[string]time.Time),
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the poll loop.
func (m *Monitor) Start(ctx context.Context) {
	m.logger.Info("background monitor started",
		"poll_interval", m.cfg.PollInterval,
		"default_frequency", m.cfg.DefaultFrequency,
	)
	go m.pollLoop(ctx)
}

// Stop stops the monitor and waits for the loop to exit.
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

func (m *Monitor) pollLoop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick assesses every due subject, sequentially. A failing assessment is
// logged and retried at the next due time; it never stops the loop.
func (m *Monitor) tick(ctx context.Context) {
	snaps, err := m.perms.ListMonitored(ctx)
	if err != nil {
		m.logger.Error("monitor: list subjects failed", "error", err)
		return
	}

	for _, snap := range snaps {
		if !snap.AutoAnalysisEnabled {
			continue
		}
		if !m.due(snap) {
			continue
		}

		out := m.assessor.Assess(ctx, snap.Subject)
		m.markScanned(snap.Subject)

		if out.Error != "" {
			m.logger.Error("scheduled scan failed",
				"subject", snap.Subject, "error", out.Error)
			continue
		}
		m.logger.Info("scheduled scan completed",
			"subject", snap.Subject,
			"threats", len(out.Threats),
			"analyses", len(out.Analyses),
		)
	}
}

// due reports whether the subject's cadence has elapsed since its last scan.
// Unscanned subjects are always due.
func (m *Monitor) due(snap *permissions.Snapshot) bool {
	freq := m.cfg.DefaultFrequency
	if snap.AnalysisFrequencyHours > 0 {
		freq = time.Duration(snap.AnalysisFrequencyHours) * time.Hour
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.lastScan[snap.Subject]
	if !ok {
		return true
	}
	return m.now().Sub(last) >= freq
}

func (m *Monitor) markScanned(subject string) {
	m.mu.Lock()
	m.lastScan[subject] = m.now()
	m.mu.Unlock()
}
