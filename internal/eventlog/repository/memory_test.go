package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/subsync/internal/eventlog/domain"
)

func TestJournalListNewestFirst(t *testing.T) {
	journal := NewMemoryJournal()
	ctx := context.Background()

	base := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := journal.Append(ctx, domain.Entry{
			ProviderEventID: fmt.Sprintf("evt_%d", i),
			EventType:       "invoice.paid",
			Outcome:         "applied",
			ReceivedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	entries, err := journal.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "evt_4", entries[0].ProviderEventID)
	require.Equal(t, "evt_2", entries[2].ProviderEventID)
}

func TestJournalListDefaultLimit(t *testing.T) {
	journal := NewMemoryJournal()
	ctx := context.Background()

	require.NoError(t, journal.Append(ctx, domain.Entry{ProviderEventID: "evt_1"}))

	entries, err := journal.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
