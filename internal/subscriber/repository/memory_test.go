package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/subsync/internal/clock"
	"github.com/smallbiznis/subsync/internal/subscriber/domain"
	"github.com/stretchr/testify/require"
)

func TestUpsertMergeCreatesOnFirstEvent(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryStore(clk)

	record, err := store.UpsertMerge(context.Background(), "jane@example.com", domain.Partial{
		CustomerRef: domain.String("cus_123"),
		Status:      domain.StatusOf(domain.StatusIncomplete),
	})
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", record.IdentityKey)
	require.Equal(t, "cus_123", record.CustomerRef)
	require.Equal(t, domain.StatusIncomplete, record.Status)
	require.Equal(t, clk.Now(), record.LastUpdatedAt)
}

func TestUpsertMergeIsFieldWise(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryStore(clk)
	ctx := context.Background()

	_, err := store.UpsertMerge(ctx, "jane@example.com", domain.Partial{
		Status:           domain.StatusOf(domain.StatusActive),
		PaymentMethodRef: domain.String("pm_abc"),
	})
	require.NoError(t, err)

	record, err := store.UpsertMerge(ctx, "jane@example.com", domain.Partial{
		Status: domain.StatusOf(domain.StatusPastDue),
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPastDue, record.Status)
	require.Equal(t, "pm_abc", record.PaymentMethodRef, "absent field must not overwrite")
}

func TestUpsertMergeAdvancesTimestampWithoutChanges(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryStore(clk)
	ctx := context.Background()

	first, err := store.UpsertMerge(ctx, "jane@example.com", domain.Partial{
		Status: domain.StatusOf(domain.StatusActive),
	})
	require.NoError(t, err)

	clk.Advance(time.Minute)
	second, err := store.UpsertMerge(ctx, "jane@example.com", domain.Partial{
		Status: domain.StatusOf(domain.StatusActive),
	})
	require.NoError(t, err)
	require.True(t, second.LastUpdatedAt.After(first.LastUpdatedAt))
	second.LastUpdatedAt = first.LastUpdatedAt
	require.Equal(t, first, second, "replay must only advance the timestamp")
}

func TestClearSuspension(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC))
	store := NewMemoryStore(clk)
	ctx := context.Background()

	at := clk.Now().Add(30 * 24 * time.Hour)
	_, err := store.UpsertMerge(ctx, "jane@example.com", domain.Partial{
		Status:       domain.StatusOf(domain.StatusPastDue),
		SuspensionAt: &at,
	})
	require.NoError(t, err)

	record, err := store.UpsertMerge(ctx, "jane@example.com", domain.Partial{
		Status:          domain.StatusOf(domain.StatusActive),
		ClearSuspension: true,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, record.Status)
	require.Nil(t, record.SuspensionEffectiveAt, "suspension must be cleared, not left stale")
}

func TestEmptyKeyRefused(t *testing.T) {
	store := NewMemoryStore(clock.NewSystem())

	_, err := store.UpsertMerge(context.Background(), "  ", domain.Partial{
		Status: domain.StatusOf(domain.StatusActive),
	})
	require.ErrorIs(t, err, domain.ErrEmptyKey)

	_, err = store.Get(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrEmptyKey)
}

func TestGetAbsent(t *testing.T) {
	store := NewMemoryStore(clock.NewSystem())
	_, err := store.Get(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentMergesUnion(t *testing.T) {
	store := NewMemoryStore(clock.NewSystem())
	ctx := context.Background()

	const writers = 100
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			var partial domain.Partial
			// Distinct single-field updates across all writers.
			switch i % 5 {
			case 0:
				partial.CustomerRef = domain.String(fmt.Sprintf("cus_%03d", i))
			case 1:
				partial.SubscriptionRef = domain.String(fmt.Sprintf("sub_%03d", i))
			case 2:
				partial.PriceRef = domain.String(fmt.Sprintf("price_%03d", i))
			case 3:
				partial.LatestInvoiceRef = domain.String(fmt.Sprintf("in_%03d", i))
			case 4:
				partial.PaymentMethodRef = domain.String(fmt.Sprintf("pm_%03d", i))
			}
			_, err := store.UpsertMerge(ctx, "jane@example.com", partial)
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	record, err := store.Get(ctx, "jane@example.com")
	require.NoError(t, err)
	// Every field group had at least one writer; the union must be present.
	require.NotEmpty(t, record.CustomerRef)
	require.NotEmpty(t, record.SubscriptionRef)
	require.NotEmpty(t, record.PriceRef)
	require.NotEmpty(t, record.LatestInvoiceRef)
	require.NotEmpty(t, record.PaymentMethodRef)
}

func TestConcurrentDistinctKeys(t *testing.T) {
	store := NewMemoryStore(clock.NewSystem())
	ctx := context.Background()

	const keys = 50
	var wg sync.WaitGroup
	wg.Add(keys)
	for i := 0; i < keys; i++ {
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("user%02d@example.com", i)
			_, err := store.UpsertMerge(ctx, key, domain.Partial{
				Status: domain.StatusOf(domain.StatusActive),
			})
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < keys; i++ {
		_, err := store.Get(ctx, fmt.Sprintf("user%02d@example.com", i))
		require.NoError(t, err)
	}
}
