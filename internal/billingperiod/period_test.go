package billingperiod

import (
	"testing"
	"time"
)

func TestNextPeriodEnd(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		interval Interval
		want     time.Time
	}{{
		name:     "month mid-month",
		start:    time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC),
		interval: IntervalMonth,
		want:     time.Date(2024, time.April, 15, 10, 30, 0, 0, time.UTC),
	}, {
		// AddDate normalizes Feb 31 forward instead of clamping to Feb 29.
		name:     "month from Jan 31 leap year",
		start:    time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
		interval: IntervalMonth,
		want:     time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC),
	}, {
		name:     "month from Jan 31 non-leap year",
		start:    time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
		interval: IntervalMonth,
		want:     time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
	}, {
		name:     "year plain",
		start:    time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		interval: IntervalYear,
		want:     time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	}, {
		// Feb 29 + year normalizes to Mar 1 in the non-leap target year.
		name:     "year from leap day",
		start:    time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		interval: IntervalYear,
		want:     time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextPeriodEnd(tt.start, tt.interval)
			if err != nil {
				t.Fatalf("NextPeriodEnd: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNextPeriodEndUnsupported(t *testing.T) {
	if _, err := NextPeriodEnd(time.Now(), Interval("week")); err != ErrUnsupportedInterval {
		t.Fatalf("expected ErrUnsupportedInterval, got %v", err)
	}
}

func TestParseInterval(t *testing.T) {
	if iv, err := ParseInterval(" Month "); err != nil || iv != IntervalMonth {
		t.Fatalf("expected month, got %q (%v)", iv, err)
	}
	if iv, err := ParseInterval("year"); err != nil || iv != IntervalYear {
		t.Fatalf("expected year, got %q (%v)", iv, err)
	}
	if _, err := ParseInterval("day"); err != ErrUnsupportedInterval {
		t.Fatalf("expected ErrUnsupportedInterval, got %v", err)
	}
}
