package models

import (
	"fmt"
	"time"
)

type TimeGranularity string

const (
	TimeGranularityDaily  TimeGranularity = "daily"
	TimeGranularityHourly TimeGranularity = "hourly"
	TimeGranularityMinute TimeGranularity = "minute"
)

func (g TimeGranularity) Validate() error {
	switch g {
	case TimeGranularityDaily, TimeGranularityHourly, TimeGranularityMinute:
		return nil
	default:
		return fmt.Errorf("invalid time granularity: %s", g)
	}
}

// Period returns the width of one bucket at this granularity.
func (g TimeGranularity) Period() time.Duration {
	switch g {
	case TimeGranularityHourly:
		return time.Hour
	case TimeGranularityMinute:
		return time.Minute
	default:
		return 24 * time.Hour
	}
}

// Truncate snaps a timestamp down to the start of its bucket, in UTC.
func (g TimeGranularity) Truncate(t time.Time) time.Time {
	u := t.UTC()
	switch g {
	case TimeGranularityHourly:
		return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), 0, 0, 0, time.UTC)
	case TimeGranularityMinute:
		return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), 0, 0, time.UTC)
	default:
		return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// BucketLayout is the time.Format layout used for bucket keys.
func (g TimeGranularity) BucketLayout() string {
	switch g {
	case TimeGranularityHourly:
		return "2006-01-02 15:00"
	case TimeGranularityMinute:
		return "2006-01-02 15:04"
	default:
		return "2006-01-02"
	}
}
