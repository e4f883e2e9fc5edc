package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/smallbiznis/subsync/internal/clock"
	"github.com/smallbiznis/subsync/internal/subscriber/domain"
)

// MemoryStore is the placeholder store: a process-local map keyed by contact
// email. Merges for the same key serialize on a per-key mutex; the map itself
// is only held long enough to swap whole records, so readers never observe a
// partially merged record and writers on different keys do not contend.
type MemoryStore struct {
	clk clock.Clock

	mu      sync.RWMutex
	records map[string]domain.Record

	locks sync.Map // identity key -> *sync.Mutex
}

func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{
		clk:     clk,
		records: make(map[string]domain.Record),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (domain.Record, error) {
	_ = ctx
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.Record{}, domain.ErrEmptyKey
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return domain.Record{}, domain.ErrNotFound
	}
	return cloneRecord(record), nil
}

func (s *MemoryStore) UpsertMerge(ctx context.Context, key string, partial domain.Partial) (domain.Record, error) {
	_ = ctx
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.Record{}, domain.ErrEmptyKey
	}

	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	existing := s.records[key]
	s.mu.RUnlock()

	merged := domain.Merge(existing, key, partial, s.clk.Now())

	s.mu.Lock()
	s.records[key] = merged
	s.mu.Unlock()

	return cloneRecord(merged), nil
}

func (s *MemoryStore) keyLock(key string) *sync.Mutex {
	if lock, ok := s.locks.Load(key); ok {
		return lock.(*sync.Mutex)
	}
	lock, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// cloneRecord deep-copies pointer fields so callers cannot alias stored state.
func cloneRecord(record domain.Record) domain.Record {
	out := record
	if record.PeriodEnd != nil {
		end := *record.PeriodEnd
		out.PeriodEnd = &end
	}
	if record.SuspensionEffectiveAt != nil {
		at := *record.SuspensionEffectiveAt
		out.SuspensionEffectiveAt = &at
	}
	return out
}
