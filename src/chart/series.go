package chart

import (
	"time"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

// Bar is one OHLC candle on the category axis. The ordered bar sequence
// defines the axis; each surviving bar yields exactly one AlignedRow.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
}

// EquityPoint is one sample of the portfolio equity curve. The curve is
// sparse relative to bars and is forward-filled during alignment.
type EquityPoint struct {
	Timestamp  time.Time
	TotalValue float64
}

// TradeEvent is a discrete execution. Several trades may share a bucket;
// all of them are retained and independently addressable.
type TradeEvent struct {
	ID        string
	Timestamp time.Time
	Action    models.TradeAction
	Price     float64
	Quantity  float64
	Fee       float64
}

// TrendLabel classifies one calendar day.
type TrendLabel struct {
	Date           time.Time
	Classification models.TrendClassification
}

// AlignedRow is the join of all series at one bucket. Derived, never
// persisted; rebuilt wholesale on every refresh.
type AlignedRow struct {
	BucketKey   string
	Bar         Bar
	EquityValue *float64
	Trades      []TradeEvent
	Trend       *models.TrendClassification
}

// EffectiveTrend returns the trend used for rendering. Absent labels read
// as ranging without being stored as a value.
func (r *AlignedRow) EffectiveTrend() models.TrendClassification {
	if r.Trend == nil {
		return models.TrendRanging
	}

	return *r.Trend
}

// ViewportWindow is the visible index range over the aligned rows,
// inclusive on both ends.
type ViewportWindow struct {
	StartIndex int
	EndIndex   int
}
