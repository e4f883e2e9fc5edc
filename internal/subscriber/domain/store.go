package domain

import (
	"context"
	"errors"
)

// Store is the subscriber record store contract.
//
// UpsertMerge behaves as if executed under a per-key mutual-exclusion lock:
// concurrent merges for the same key apply in some serial order, the last
// completed merge owns LastUpdatedAt, and a concurrent Get observes either
// the pre- or post-merge record, never a torn one. Writes to different keys
// must not block each other.
type Store interface {
	// Get returns the record for key, or ErrNotFound.
	Get(ctx context.Context, key string) (Record, error)
	// UpsertMerge creates the record if absent, otherwise merges the partial
	// over it. LastUpdatedAt advances on every call, even when no substantive
	// field changed. A blank key is refused with ErrEmptyKey.
	UpsertMerge(ctx context.Context, key string, partial Partial) (Record, error)
}

var (
	ErrNotFound = errors.New("not_found")
	ErrEmptyKey = errors.New("empty_identity_key")
)
