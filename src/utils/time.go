package utils

import (
	"fmt"
	"time"
)

func GetMinTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}

	return b
}

func GetMaxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}

	return b
}

// ParseDateRange parses start and end query values as whole dates and
// validates their order. Empty strings yield nil bounds.
func ParseDateRange(start, end string) (*time.Time, *time.Time, error) {
	var from, to *time.Time

	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start date %q: %w", start, err)
		}

		from = &t
	}

	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end date %q: %w", end, err)
		}

		to = &t
	}

	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("end date %s is before start date %s", end, start)
	}

	return from, to, nil
}
