package timer

import (
	"fmt"
	"time"

	"workclock/internal/apperr"
)

// ParseArrival resolves an HH:MM arrival time-of-day against now. When the
// resolved instant lies in the future the arrival belongs to an overnight
// shift that started yesterday, so it is rolled back by exactly one day.
// Arrivals staler than that are out of scope.
func ParseArrival(arrival string, now time.Time) (time.Time, error) {
	if arrival == "" {
		return time.Time{}, fmt.Errorf("arrival time is required: %w", apperr.ErrValidation)
	}

	t, err := time.Parse("15:04", arrival)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid arrival time %q: %w", arrival, apperr.ErrValidation)
	}

	instant := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if instant.After(now) {
		instant = instant.AddDate(0, 0, -1)
	}

	return instant, nil
}

// IntervalDuration computes the length of a lunch-style HH:MM interval.
// An interval that ends at or before its start is malformed.
func IntervalDuration(from, until string) (time.Duration, error) {
	start, err := time.Parse("15:04", from)
	if err != nil {
		return 0, fmt.Errorf("invalid interval start %q: %w", from, apperr.ErrValidation)
	}

	end, err := time.Parse("15:04", until)
	if err != nil {
		return 0, fmt.Errorf("invalid interval end %q: %w", until, apperr.ErrValidation)
	}

	d := end.Sub(start)
	if d <= 0 {
		return 0, fmt.Errorf("interval ends before it starts: %w", apperr.ErrValidation)
	}

	return d, nil
}
