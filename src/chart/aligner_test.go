package chart

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func dailyBars(days ...int) []Bar {
	bars := make([]Bar, 0, len(days))
	for _, d := range days {
		price := float64(100 + d)
		bars = append(bars, Bar{
			Timestamp: day(d),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
		})
	}

	return bars
}

func TestAlign(t *testing.T) {
	t.Run("one row per bar on the shared axis", func(t *testing.T) {
		rows := Align(dailyBars(4, 5, 6), nil, nil, nil, models.TimeGranularityDaily)

		require.Len(t, rows, 3)
		require.Equal(t, "2024-03-04", rows[0].BucketKey)
		require.Equal(t, "2024-03-05", rows[1].BucketKey)
		require.Equal(t, "2024-03-06", rows[2].BucketKey)
	})

	t.Run("non-finite bars are excluded from the axis", func(t *testing.T) {
		bars := dailyBars(4, 5, 6)
		bars[1].Close = math.NaN()

		rows := Align(bars, nil, nil, nil, models.TimeGranularityDaily)

		require.Len(t, rows, 2)
		require.Equal(t, "2024-03-04", rows[0].BucketKey)
		require.Equal(t, "2024-03-06", rows[1].BucketKey)
	})

	t.Run("equity is forward-filled after its first sample", func(t *testing.T) {
		equity := []EquityPoint{{Timestamp: day(5), TotalValue: 10500}}

		rows := Align(dailyBars(4, 5, 6), equity, nil, nil, models.TimeGranularityDaily)

		require.Nil(t, rows[0].EquityValue)
		require.NotNil(t, rows[1].EquityValue)
		require.Equal(t, 10500.0, *rows[1].EquityValue)
		require.NotNil(t, rows[2].EquityValue)
		require.Equal(t, 10500.0, *rows[2].EquityValue)
	})

	t.Run("later equity samples in one bucket win", func(t *testing.T) {
		equity := []EquityPoint{
			{Timestamp: day(5).Add(10 * time.Hour), TotalValue: 10100},
			{Timestamp: day(5).Add(15 * time.Hour), TotalValue: 10200},
		}

		rows := Align(dailyBars(4, 5, 6), equity, nil, nil, models.TimeGranularityDaily)

		require.Equal(t, 10200.0, *rows[1].EquityValue)
	})

	t.Run("intraday trade lands on its day bucket", func(t *testing.T) {
		trades := []TradeEvent{{
			ID:        "t1",
			Timestamp: day(5).Add(14 * time.Hour),
			Action:    models.TradeActionBuy,
			Price:     105,
			Quantity:  10,
		}}

		rows := Align(dailyBars(4, 5, 6), nil, trades, nil, models.TimeGranularityDaily)

		require.Empty(t, rows[0].Trades)
		require.Len(t, rows[1].Trades, 1)
		require.Equal(t, "t1", rows[1].Trades[0].ID)
		require.Empty(t, rows[2].Trades)
	})

	t.Run("trade before the axis is omitted", func(t *testing.T) {
		trades := []TradeEvent{{ID: "early", Timestamp: day(1), Action: models.TradeActionBuy}}

		rows := Align(dailyBars(4, 5, 6), nil, trades, nil, models.TimeGranularityDaily)

		for _, row := range rows {
			require.Empty(t, row.Trades)
		}
	})

	t.Run("multiple trades in one bucket are all retained", func(t *testing.T) {
		trades := []TradeEvent{
			{ID: "a", Timestamp: day(5).Add(10 * time.Hour)},
			{ID: "b", Timestamp: day(5).Add(11 * time.Hour)},
		}

		rows := Align(dailyBars(4, 5, 6), nil, trades, nil, models.TimeGranularityDaily)

		require.Len(t, rows[1].Trades, 2)
	})

	t.Run("trend labels attach by calendar day", func(t *testing.T) {
		labels := []TrendLabel{{Date: day(5), Classification: models.TrendBullish}}

		rows := Align(dailyBars(4, 5, 6), nil, nil, labels, models.TimeGranularityDaily)

		require.Nil(t, rows[0].Trend)
		require.NotNil(t, rows[1].Trend)
		require.Equal(t, models.TrendBullish, *rows[1].Trend)
		require.Equal(t, models.TrendRanging, rows[0].EffectiveTrend())
		require.Equal(t, models.TrendBullish, rows[1].EffectiveTrend())
	})

	t.Run("full join across all series", func(t *testing.T) {
		equity := []EquityPoint{{Timestamp: day(5), TotalValue: 10500}}
		trades := []TradeEvent{{ID: "t1", Timestamp: day(5).Add(14 * time.Hour), Price: 105}}
		labels := []TrendLabel{{Date: day(5), Classification: models.TrendBearish}}

		rows := Align(dailyBars(4, 5, 6), equity, trades, labels, models.TimeGranularityDaily)

		require.Len(t, rows, 3)
		mid := rows[1]
		require.Equal(t, "2024-03-05", mid.BucketKey)
		require.Equal(t, 10500.0, *mid.EquityValue)
		require.Len(t, mid.Trades, 1)
		require.Equal(t, models.TrendBearish, *mid.Trend)
	})

	t.Run("identical inputs yield structurally equal outputs", func(t *testing.T) {
		bars := dailyBars(4, 5, 6)
		equity := []EquityPoint{{Timestamp: day(5), TotalValue: 10500}}
		trades := []TradeEvent{
			{ID: "t1", Timestamp: day(5).Add(10 * time.Hour), Action: models.TradeActionBuy, Price: 105},
			{ID: "t2", Timestamp: day(5).Add(14 * time.Hour), Action: models.TradeActionSell, Price: 106},
		}
		labels := []TrendLabel{{Date: day(5), Classification: models.TrendBullish}}

		first := Align(bars, equity, trades, labels, models.TimeGranularityDaily)
		second := Align(bars, equity, trades, labels, models.TimeGranularityDaily)

		require.Equal(t, first, second)
	})
}
