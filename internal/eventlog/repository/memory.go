package repository

import (
	"context"
	"sync"

	"github.com/smallbiznis/subsync/internal/eventlog/domain"
)

const defaultListLimit = 100

// MemoryJournal keeps the event log in process memory, newest first.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []domain.Entry
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Append(ctx context.Context, entry domain.Entry) error {
	_ = ctx
	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()
	return nil
}

func (j *MemoryJournal) List(ctx context.Context, limit int) ([]domain.Entry, error) {
	_ = ctx
	if limit <= 0 {
		limit = defaultListLimit
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit > len(j.entries) {
		limit = len(j.entries)
	}
	out := make([]domain.Entry, 0, limit)
	for i := len(j.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, j.entries[i])
	}
	return out, nil
}
