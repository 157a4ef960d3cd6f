package proofledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aegis-guard/aegis/internal/pagination"
)

// MemoryStore is an in-memory Store for demo/test use. It enforces the
// same invariants as the Postgres store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Insert(ctx context.Context, rec *Record) error {
	if rec.ExecutionClass && !rec.Evidence.Sufficient() {
		return ErrInsufficientEvidence
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	cp.Subject = strings.ToLower(rec.Subject)
	s.records[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Confirm(ctx context.Context, id string, resultHash common.Hash, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	if rec.Confirmed {
		return ErrAlreadyConfirmed
	}

	rec.Confirmed = true
	rec.ConfirmedAt = &at
	rec.ResultHash = &resultHash
	return nil
}

func (s *MemoryStore) List(ctx context.Context, subject string, limit int) ([]*Record, error) {
	return s.ListBefore(ctx, subject, nil, limit)
}

func (s *MemoryStore) ListBefore(ctx context.Context, subject string, before *pagination.Cursor, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subject = strings.ToLower(subject)
	out := make([]*Record, 0)
	for _, rec := range s.records {
		if rec.Subject != subject {
			continue
		}
		if before != nil && !beforeCursor(rec, before) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// beforeCursor reports whether rec sorts strictly after the cursor position
// in newest-first order, with IDs breaking timestamp ties.
func beforeCursor(rec *Record, c *pagination.Cursor) bool {
	if rec.CreatedAt.Before(c.CreatedAt) {
		return true
	}
	return rec.CreatedAt.Equal(c.CreatedAt) && rec.ID < c.ID
}
