package permissions

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for demo/test use.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// NewMemoryStore creates an empty in-memory permission store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]*Snapshot)}
}

func (s *MemoryStore) Get(ctx context.Context, subject string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[strings.ToLower(subject)]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	cp := *snap
	return &cp, nil
}

func (s *MemoryStore) Put(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *snap
	cp.Subject = strings.ToLower(snap.Subject)
	cp.UpdatedAt = time.Now()
	s.snapshots[cp.Subject] = &cp
	return nil
}

func (s *MemoryStore) ConsumeDailyTx(ctx context.Context, subject string, day int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snapshots[strings.ToLower(subject)]
	if !ok {
		return false, ErrSnapshotNotFound
	}

	if snap.LastTxDay != day {
		snap.LastTxDay = day
		snap.TxCountToday = 0
	}
	if snap.TxCountToday >= snap.DailyTxLimit {
		return false, nil
	}
	snap.TxCountToday++
	snap.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) ListMonitored(ctx context.Context) ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Snapshot
	for _, snap := range s.snapshots {
		if !snap.MonitoringEnabled {
			continue
		}
		cp := *snap
		out = append(out, &cp)
	}
	return out, nil
}
