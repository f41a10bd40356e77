package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeGranularityTruncate(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 45, 30, 0, time.UTC)

	require.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), TimeGranularityDaily.Truncate(ts))
	require.Equal(t, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), TimeGranularityHourly.Truncate(ts))
	require.Equal(t, time.Date(2024, 3, 5, 10, 45, 0, 0, time.UTC), TimeGranularityMinute.Truncate(ts))
}

func TestTimeGranularityValidate(t *testing.T) {
	require.NoError(t, TimeGranularityDaily.Validate())
	require.Error(t, TimeGranularity("weekly").Validate())
}

func TestParseFlexibleTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-03-05 14:30", time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)},
		{"2024-03-05 14:30:15", time.Date(2024, 3, 5, 14, 30, 15, 0, time.UTC)},
		{"2024-03-05T14:30:15Z", time.Date(2024, 3, 5, 14, 30, 15, 0, time.UTC)},
	}

	for _, tc := range cases {
		got, err := ParseFlexibleTime(tc.in)
		require.NoError(t, err, tc.in)
		require.True(t, got.Equal(tc.want), tc.in)
	}

	_, err := ParseFlexibleTime("05/03/2024")
	require.Error(t, err)
}

func TestKlineBarIsPlottable(t *testing.T) {
	bar := KlineBar{Open: 1, High: 2, Low: 0.5, Close: 1.5}
	require.True(t, bar.IsPlottable())

	bar.High = math.NaN()
	require.False(t, bar.IsPlottable())

	bar.High = math.Inf(1)
	require.False(t, bar.IsPlottable())
}

func TestTaskStatusIsTerminal(t *testing.T) {
	require.True(t, TaskStatusCompleted.IsTerminal())
	require.True(t, TaskStatusFailed.IsTerminal())
	require.True(t, TaskStatusCancelled.IsTerminal())
	require.False(t, TaskStatusPending.IsTerminal())
	require.False(t, TaskStatusRunning.IsTerminal())
	require.False(t, TaskStatusPaused.IsTerminal())
}

func TestNormalizeTrend(t *testing.T) {
	trend, known := NormalizeTrend(" Bullish ")
	require.Equal(t, TrendBullish, trend)
	require.True(t, known)

	trend, known = NormalizeTrend("downtrend")
	require.Equal(t, TrendBearish, trend)
	require.True(t, known)

	trend, known = NormalizeTrend("whatever")
	require.Equal(t, TrendRanging, trend)
	require.False(t, known)
}

func TestNewPageData(t *testing.T) {
	page := NewPageData([]int{1, 2, 3}, 1, 10, 23)
	require.Equal(t, int64(3), page.TotalPages)

	page = NewPageData(nil, 1, 10, 30)
	require.Equal(t, int64(3), page.TotalPages)

	page = NewPageData(nil, 1, 10, 0)
	require.Equal(t, int64(0), page.TotalPages)
}

func TestTaskTransitions(t *testing.T) {
	task := &Task{Status: TaskStatusPending}
	require.True(t, task.CanStart())
	require.True(t, task.CanStop())

	task.Status = TaskStatusRunning
	require.False(t, task.CanStart())
	require.True(t, task.CanStop())

	task.Status = TaskStatusCompleted
	require.True(t, task.CanStart())
	require.False(t, task.CanStop())
}

func TestNewTaskProgressFormatsTimestamps(t *testing.T) {
	started := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	task := &Task{
		TaskID:         "task-1",
		StockSymbol:    "AAPL",
		Status:         TaskStatusRunning,
		ProcessedItems: 5,
		TotalItems:     10,
		StartedAt:      &started,
	}

	p := NewTaskProgress(task)
	require.Equal(t, "2024-03-05T09:00:00Z", *p.StartedAt)
	require.Nil(t, p.CompletedAt)
	require.Equal(t, 5, p.ProcessedItems)
}

func TestVirtualAccountReset(t *testing.T) {
	account := &VirtualAccount{
		InitialBalance: 10000,
		CurrentBalance: 5000,
		StockQuantity:  12,
		PositionSide:   PositionSideShort,
		MarginUsed:     1200,
		TotalFees:      34,
	}

	account.Reset()

	require.Equal(t, 10000.0, account.CurrentBalance)
	require.Equal(t, 10000.0, account.AvailableBalance)
	require.Equal(t, 10000.0, account.TotalValue)
	require.Equal(t, 0.0, account.StockQuantity)
	require.Equal(t, PositionSideLong, account.PositionSide)
	require.Equal(t, 0.0, account.MarginUsed)
	require.Equal(t, 0.0, account.TotalFees)
}
