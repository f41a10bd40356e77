package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

func TestBucketKey(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 45, 30, 0, time.UTC)

	t.Run("daily", func(t *testing.T) {
		require.Equal(t, "2024-03-05", BucketKey(ts, models.TimeGranularityDaily))
	})

	t.Run("hourly", func(t *testing.T) {
		require.Equal(t, "2024-03-05 10:00", BucketKey(ts, models.TimeGranularityHourly))
	})

	t.Run("minute", func(t *testing.T) {
		require.Equal(t, "2024-03-05 10:45", BucketKey(ts, models.TimeGranularityMinute))
	})

	t.Run("non-utc timestamps are normalized", func(t *testing.T) {
		loc := time.FixedZone("UTC+8", 8*3600)
		local := time.Date(2024, 3, 6, 2, 0, 0, 0, loc)
		require.Equal(t, "2024-03-05", BucketKey(local, models.TimeGranularityDaily))
	})
}

func TestResolveToAxis(t *testing.T) {
	axis := []time.Time{
		time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC),
	}

	t.Run("intra-bucket time resolves to its bucket", func(t *testing.T) {
		target := time.Date(2024, 3, 5, 10, 45, 0, 0, time.UTC)
		require.Equal(t, 1, ResolveToAxis(target, axis, models.TimeGranularityHourly))
	})

	t.Run("exact bucket start resolves to that bucket", func(t *testing.T) {
		target := time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC)
		require.Equal(t, 2, ResolveToAxis(target, axis, models.TimeGranularityHourly))
	})

	t.Run("time after last bucket resolves to last bucket", func(t *testing.T) {
		target := time.Date(2024, 3, 5, 15, 30, 0, 0, time.UTC)
		require.Equal(t, 2, ResolveToAxis(target, axis, models.TimeGranularityHourly))
	})

	t.Run("time before first bucket resolves to -1", func(t *testing.T) {
		target := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
		require.Equal(t, -1, ResolveToAxis(target, axis, models.TimeGranularityHourly))
	})

	t.Run("empty axis resolves to -1", func(t *testing.T) {
		target := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
		require.Equal(t, -1, ResolveToAxis(target, nil, models.TimeGranularityHourly))
	})

	t.Run("gap resolves to nearest prior bucket", func(t *testing.T) {
		gappyAxis := []time.Time{
			time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
		}

		// March 6th has no bar (holiday), so it lands on March 5th.
		target := time.Date(2024, 3, 6, 14, 0, 0, 0, time.UTC)
		require.Equal(t, 0, ResolveToAxis(target, gappyAxis, models.TimeGranularityDaily))
	})
}
