package chart

import (
	"math"
	"time"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

// Align joins price bars, the equity curve, trade events, and daily trend
// labels onto one shared category axis. It is a pure function of its
// inputs: same inputs, same rows, safe to re-run on every refresh.
//
// Bars with non-finite prices are excluded from the axis entirely; equity
// is forward-filled from the last sample at or before each bucket; trades
// resolve to the nearest prior bucket and unresolved trades are omitted
// from the chart (they stay visible in tabular history); trend labels are
// looked up by calendar day regardless of the display granularity.
func Align(bars []Bar, equityPoints []EquityPoint, trades []TradeEvent, trendLabels []TrendLabel, granularity models.TimeGranularity) []AlignedRow {
	rows := make([]AlignedRow, 0, len(bars))
	axis := make([]time.Time, 0, len(bars))
	rowIndexByKey := make(map[string]int, len(bars))

	for _, bar := range bars {
		if !isFiniteBar(bar) {
			continue
		}

		key := BucketKey(bar.Timestamp, granularity)
		rowIndexByKey[key] = len(rows)
		rows = append(rows, AlignedRow{BucketKey: key, Bar: bar})
		axis = append(axis, bar.Timestamp)
	}

	alignEquity(rows, equityPoints, granularity)
	alignTrades(rows, axis, trades, granularity)
	alignTrends(rows, trendLabels)

	return rows
}

func isFiniteBar(bar Bar) bool {
	for _, v := range []float64{bar.Open, bar.High, bar.Low, bar.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

func alignEquity(rows []AlignedRow, points []EquityPoint, granularity models.TimeGranularity) {
	if len(points) == 0 {
		return
	}

	valueByKey := make(map[string]float64, len(points))
	for _, p := range points {
		if math.IsNaN(p.TotalValue) || math.IsInf(p.TotalValue, 0) {
			continue
		}

		// Later samples in the same bucket win.
		valueByKey[BucketKey(p.Timestamp, granularity)] = p.TotalValue
	}

	var lastSeen *float64
	for i := range rows {
		if v, ok := valueByKey[rows[i].BucketKey]; ok {
			value := v
			lastSeen = &value
		}

		if lastSeen != nil {
			value := *lastSeen
			rows[i].EquityValue = &value
		}
	}
}

func alignTrades(rows []AlignedRow, axis []time.Time, trades []TradeEvent, granularity models.TimeGranularity) {
	for _, trade := range trades {
		idx := ResolveToAxis(trade.Timestamp, axis, granularity)
		if idx < 0 {
			// Predates the axis, nothing to anchor it to.
			continue
		}

		rows[idx].Trades = append(rows[idx].Trades, trade)
	}
}

func alignTrends(rows []AlignedRow, labels []TrendLabel) {
	if len(labels) == 0 {
		return
	}

	labelByDay := make(map[string]models.TrendClassification, len(labels))
	for _, l := range labels {
		labelByDay[models.TimeGranularityDaily.Truncate(l.Date).Format("2006-01-02")] = l.Classification
	}

	for i := range rows {
		dayKey := models.TimeGranularityDaily.Truncate(rows[i].Bar.Timestamp).Format("2006-01-02")
		if trend, ok := labelByDay[dayKey]; ok {
			value := trend
			rows[i].Trend = &value
		}
	}
}
