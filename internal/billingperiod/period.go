// Package billingperiod computes billing period boundaries from a start
// instant and a provider billing interval.
package billingperiod

import (
	"errors"
	"strings"
	"time"
)

// Interval is a provider billing interval.
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

var ErrUnsupportedInterval = errors.New("unsupported_interval")

// ParseInterval normalizes a raw provider interval string.
func ParseInterval(raw string) (Interval, error) {
	switch Interval(strings.ToLower(strings.TrimSpace(raw))) {
	case IntervalMonth:
		return IntervalMonth, nil
	case IntervalYear:
		return IntervalYear, nil
	default:
		return "", ErrUnsupportedInterval
	}
}

// NextPeriodEnd returns the end of the billing period opened at start.
//
// Calendar arithmetic uses time.AddDate, which normalizes overflow rather
// than clamping: a month added to Jan 31 lands on Mar 2 in leap years (Mar 3
// otherwise), and a year added to Feb 29 lands on Mar 1. Callers that need a
// clamp-to-month-end rule must not use this package.
func NextPeriodEnd(start time.Time, interval Interval) (time.Time, error) {
	switch interval {
	case IntervalMonth:
		return start.AddDate(0, 1, 0), nil
	case IntervalYear:
		return start.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, ErrUnsupportedInterval
	}
}
