package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

func newTestController(onDrillDown DrillDownFunc) *Controller {
	ctx := DrillDownContext{TaskID: "task-1", AccountID: "acct-1", StockSymbol: "AAPL"}
	return NewController(models.TimeGranularityDaily, ctx, onDrillDown)
}

func TestControllerOnDataRefresh(t *testing.T) {
	t.Run("initial refresh shows the full range", func(t *testing.T) {
		c := newTestController(nil)

		c.OnDataRefresh(dailyBars(4, 5, 6), nil, nil, nil)

		require.Equal(t, ViewportWindow{StartIndex: 0, EndIndex: 2}, c.Window())
		require.Len(t, c.AlignedRows(), 3)
	})

	t.Run("window survives a refresh by index", func(t *testing.T) {
		c := newTestController(nil)
		c.OnDataRefresh(dailyBars(1, 2, 3, 4, 5, 6, 7, 8, 9, 10), nil, nil, nil)
		c.OnZoom(20, 60)
		zoomed := c.Window()

		c.OnDataRefresh(dailyBars(1, 2, 3, 4, 5, 6, 7, 8, 9, 10), nil, nil, nil)

		require.Equal(t, zoomed, c.Window())
	})

	t.Run("window ending at the first row survives a refresh", func(t *testing.T) {
		c := newTestController(nil)
		c.OnDataRefresh(dailyBars(1, 2, 3, 4, 5, 6, 7, 8, 9, 10), nil, nil, nil)
		c.OnZoom(0, 0)
		require.Equal(t, ViewportWindow{StartIndex: 0, EndIndex: 0}, c.Window())

		c.OnDataRefresh(dailyBars(1, 2, 3, 4, 5, 6, 7, 8, 9, 10), nil, nil, nil)

		require.Equal(t, ViewportWindow{StartIndex: 0, EndIndex: 0}, c.Window())
	})

	t.Run("window is clamped when the dataset shrinks", func(t *testing.T) {
		c := newTestController(nil)
		c.OnDataRefresh(dailyBars(1, 2, 3, 4, 5, 6, 7, 8, 9, 10), nil, nil, nil)
		c.OnZoom(50, 100)

		c.OnDataRefresh(dailyBars(1, 2, 3), nil, nil, nil)

		w := c.Window()
		require.LessOrEqual(t, w.EndIndex, 2)
		require.LessOrEqual(t, w.StartIndex, w.EndIndex)
	})

	t.Run("empty refresh resets the window", func(t *testing.T) {
		c := newTestController(nil)
		c.OnDataRefresh(dailyBars(4, 5, 6), nil, nil, nil)

		c.OnDataRefresh(nil, nil, nil, nil)

		require.Equal(t, ViewportWindow{}, c.Window())
		require.Empty(t, c.AlignedRows())
	})
}

func TestControllerOnZoom(t *testing.T) {
	c := newTestController(nil)
	c.OnDataRefresh(dailyBars(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11), nil, nil, nil)

	t.Run("percent range maps to indices", func(t *testing.T) {
		c.OnZoom(0, 50)
		require.Equal(t, ViewportWindow{StartIndex: 0, EndIndex: 5}, c.Window())
	})

	t.Run("full range", func(t *testing.T) {
		c.OnZoom(0, 100)
		require.Equal(t, ViewportWindow{StartIndex: 0, EndIndex: 10}, c.Window())
	})

	t.Run("out of range percentages are clamped", func(t *testing.T) {
		c.OnZoom(-10, 140)
		require.Equal(t, ViewportWindow{StartIndex: 0, EndIndex: 10}, c.Window())
	})
}

func TestControllerOnPointClick(t *testing.T) {
	t.Run("resolves the bucket to the true bar timestamp", func(t *testing.T) {
		var gotTime time.Time
		var gotCtx DrillDownContext

		c := newTestController(func(ts time.Time, ctx DrillDownContext) {
			gotTime = ts
			gotCtx = ctx
		})

		bars := []Bar{{
			Timestamp: time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC),
			Open:      100, High: 101, Low: 99, Close: 100,
		}}
		c.OnDataRefresh(bars, nil, nil, nil)

		require.NoError(t, c.OnPointClick("kline", "2024-03-05"))
		require.Equal(t, bars[0].Timestamp, gotTime)
		require.Equal(t, "task-1", gotCtx.TaskID)
	})

	t.Run("unknown bucket returns an error", func(t *testing.T) {
		c := newTestController(nil)
		c.OnDataRefresh(dailyBars(5), nil, nil, nil)

		require.Error(t, c.OnPointClick("kline", "1999-01-01"))
	})

	t.Run("stale bucket after refresh returns an error", func(t *testing.T) {
		c := newTestController(nil)
		c.OnDataRefresh(dailyBars(5), nil, nil, nil)
		c.OnDataRefresh(dailyBars(6), nil, nil, nil)

		require.Error(t, c.OnPointClick("kline", "2024-03-05"))
		require.NoError(t, c.OnPointClick("kline", "2024-03-06"))
	})
}

func TestControllerAxisRange(t *testing.T) {
	c := newTestController(nil)
	equity := []EquityPoint{
		{Timestamp: day(4), TotalValue: 10000},
		{Timestamp: day(5), TotalValue: 10200},
		{Timestamp: day(6), TotalValue: 10500},
	}
	c.OnDataRefresh(dailyBars(4, 5, 6), equity, nil, nil)

	r := c.AxisRange(PriceSelector, EquitySelector)

	require.LessOrEqual(t, r.Min, 100.0)
	require.GreaterOrEqual(t, r.Max, 10500.0)
}
