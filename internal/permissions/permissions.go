// Package permissions holds per-subject declarative permission state and the
// authorization gate evaluated against it.
//
// Snapshots are owned by an external permission store; this core reads them
// and writes exactly one thing back: the rolling daily transaction (day,
// count) pair, via an atomic consume operation. Authorization is a pure
// function of the snapshot — never agent discretion, never ledger state.
package permissions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrSnapshotNotFound = errors.New("permissions: snapshot not found")

	// Gate denials. Each rejects a single action; siblings keep processing.
	ErrExecutorDisabled   = errors.New("permissions: executor disabled")
	ErrProtocolNotAllowed = errors.New("permissions: protocol not in allowlist")
	ErrDailyCapReached    = errors.New("permissions: daily transaction cap reached")
)

// Protocol is a supported execution venue.
type Protocol string

const (
	ProtocolJupiter  Protocol = "Jupiter"
	ProtocolRaydium  Protocol = "Raydium"
	ProtocolOrca     Protocol = "Orca"
	ProtocolMarinade Protocol = "Marinade"
	ProtocolJito     Protocol = "Jito"
)

var protocolBits = map[Protocol]uint32{
	ProtocolJupiter:  1 << 0,
	ProtocolRaydium:  1 << 1,
	ProtocolOrca:     1 << 2,
	ProtocolMarinade: 1 << 3,
	ProtocolJito:     1 << 4,
}

// ProtocolSet is a fixed indicator set over supported protocols.
// The zero value is the empty set (nothing allowed).
type ProtocolSet uint32

// NewProtocolSet builds a set from the given protocols.
func NewProtocolSet(protocols ...Protocol) ProtocolSet {
	var s ProtocolSet
	for _, p := range protocols {
		s = s.Add(p)
	}
	return s
}

// Add returns a copy of s with p present. Unknown protocols are ignored.
func (s ProtocolSet) Add(p Protocol) ProtocolSet {
	bit, ok := protocolBits[p]
	if !ok {
		return s
	}
	return s | ProtocolSet(bit)
}

// Has reports whether p is present. Unknown protocols are never present.
func (s ProtocolSet) Has(p Protocol) bool {
	bit, ok := protocolBits[p]
	return ok && s&ProtocolSet(bit) != 0
}

// Protocols returns the members in fixed declaration order.
func (s ProtocolSet) Protocols() []Protocol {
	ordered := []Protocol{ProtocolJupiter, ProtocolRaydium, ProtocolOrca, ProtocolMarinade, ProtocolJito}
	out := make([]Protocol, 0, len(ordered))
	for _, p := range ordered {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Bitmap returns the persistence encoding.
func (s ProtocolSet) Bitmap() uint32 { return uint32(s) & 0x1f }

// ProtocolSetFromBitmap decodes a persisted bitmap, dropping undefined bits.
func ProtocolSetFromBitmap(b uint32) ProtocolSet { return ProtocolSet(b & 0x1f) }

func (s ProtocolSet) String() string {
	ps := s.Protocols()
	if len(ps) == 0 {
		return "none"
	}
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = string(p)
	}
	return strings.Join(names, "|")
}

// Snapshot is a subject's declarative permission configuration.
//
// All fields except the rolling (LastTxDay, TxCountToday) pair are read-only
// from the core's perspective.
type Snapshot struct {
	Subject string `json:"subject"` // wallet address

	// Monitoring and auto-response toggles
	MonitoringEnabled   bool `json:"monitoringEnabled"`
	AutoRevokeApprovals bool `json:"autoRevokeApprovals"`
	AutoExitPools       bool `json:"autoExitPools"`
	AutoUnstake         bool `json:"autoUnstake"`

	// Detection thresholds (basis points)
	ILThresholdBps           int `json:"ilThresholdBps"`           // e.g. 1000 = 10% IL
	HealthFactorThresholdBps int `json:"healthFactorThresholdBps"` // e.g. 13000 = factor 1.3

	// Analysis cadence
	AutoAnalysisEnabled    bool `json:"autoAnalysisEnabled"`
	AnalysisFrequencyHours int  `json:"analysisFrequencyHours"`

	// Execution limits
	ExecutorEnabled  bool            `json:"executorEnabled"`
	MaxTxAmountUSD   decimal.Decimal `json:"maxTxAmountUsd"`
	AllowedProtocols ProtocolSet     `json:"allowedProtocols"`
	MaxSlippageBps   int             `json:"maxSlippageBps"`
	DCAEnabled       bool            `json:"dcaEnabled"`
	RebalanceEnabled bool            `json:"rebalanceEnabled"`

	// Rolling daily transaction cap. LastTxDay is a unix day number; the
	// count resets implicitly when the stored day differs from today.
	DailyTxLimit int   `json:"dailyTxLimit"`
	TxCountToday int   `json:"txCountToday"`
	LastTxDay    int64 `json:"lastTxDay"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// ILThreshold returns the impermanent-loss threshold as a fraction (0.10 = 10%).
func (s *Snapshot) ILThreshold() float64 {
	return float64(s.ILThresholdBps) / 10000
}

// HealthFactorThreshold returns the health-factor threshold (13000bps = 1.3).
func (s *Snapshot) HealthFactorThreshold() float64 {
	return float64(s.HealthFactorThresholdBps) / 10000
}

// DailyCount returns the effective transaction count for the given unix day,
// treating a stored count from a different day as zero.
func (s *Snapshot) DailyCount(day int64) int {
	if s.LastTxDay != day {
		return 0
	}
	return s.TxCountToday
}

// UnixDay converts a time to its unix day number (UTC).
func UnixDay(t time.Time) int64 {
	return t.Unix() / 86400
}

// Authorize is the authorization gate: pure, no I/O, no ledger access.
// Evidence sufficiency is checked upstream by the proof ledger — the two
// invariants stay independently testable.
//
// All checks must pass: executor globally enabled, target protocol in the
// allowlist, rolling daily count below the cap. Returns nil when authorized.
func Authorize(target Protocol, snap *Snapshot, now time.Time) error {
	if !snap.ExecutorEnabled {
		return ErrExecutorDisabled
	}
	if !snap.AllowedProtocols.Has(target) {
		return ErrProtocolNotAllowed
	}
	if snap.DailyCount(UnixDay(now)) >= snap.DailyTxLimit {
		return ErrDailyCapReached
	}
	return nil
}

// Store reads permission snapshots and owns the single mutable pair.
type Store interface {
	// Get returns the subject's snapshot, or ErrSnapshotNotFound.
	Get(ctx context.Context, subject string) (*Snapshot, error)

	// Put replaces a snapshot. This is the external owner's admin surface,
	// not something the pipeline calls.
	Put(ctx context.Context, snap *Snapshot) error

	// ConsumeDailyTx atomically increments the subject's transaction count
	// for the given day, resetting the pair first when the stored day
	// differs. Returns false without incrementing when the cap is already
	// reached. This is the only write the pipeline performs.
	ConsumeDailyTx(ctx context.Context, subject string, day int64) (bool, error)

	// ListMonitored returns every snapshot with monitoring enabled. The
	// background monitor uses this to find scan candidates.
	ListMonitored(ctx context.Context) ([]*Snapshot, error)
}
