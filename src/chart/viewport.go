package chart

import "math"

// AxisRange is a padded, tick-aligned value-axis range for the current
// viewport.
type AxisRange struct {
	Min          float64
	Max          float64
	TickInterval float64
}

// SeriesSelector extracts the numeric values one overlaid series
// contributes to the value axis for a given row.
type SeriesSelector func(row AlignedRow) []float64

// PriceSelector contributes all four OHLC values.
func PriceSelector(row AlignedRow) []float64 {
	return []float64{row.Bar.Open, row.Bar.High, row.Bar.Low, row.Bar.Close}
}

// EquitySelector contributes the forward-filled equity value, if any.
func EquitySelector(row AlignedRow) []float64 {
	if row.EquityValue == nil {
		return nil
	}

	return []float64{*row.EquityValue}
}

// TradePriceSelector contributes every trade execution price in the bucket.
func TradePriceSelector(row AlignedRow) []float64 {
	if len(row.Trades) == 0 {
		return nil
	}

	prices := make([]float64, 0, len(row.Trades))
	for _, t := range row.Trades {
		prices = append(prices, t.Price)
	}

	return prices
}

const rangeMarginFraction = 0.05

// ComputeRange derives the value-axis range for the rows visible in the
// window, across all overlaid series combined. It must be re-run on every
// zoom or pan: a cached whole-dataset range would clip or dwarf series
// whose extrema lie outside the viewport. Degenerate input yields a unit
// range so the caller can always draw an axis.
func ComputeRange(rows []AlignedRow, window ViewportWindow, selectors []SeriesSelector) AxisRange {
	start, end := clampWindow(window, len(rows))
	if len(rows) == 0 || start > end {
		return AxisRange{Min: 0, Max: 1, TickInterval: 0.25}
	}

	min := math.Inf(1)
	max := math.Inf(-1)

	for i := start; i <= end; i++ {
		for _, selector := range selectors {
			for _, v := range selector(rows[i]) {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					continue
				}

				min = math.Min(min, v)
				max = math.Max(max, v)
			}
		}
	}

	if math.IsInf(min, 1) {
		return AxisRange{Min: 0, Max: 1, TickInterval: 0.25}
	}

	span := max - min
	if span == 0 {
		span = math.Max(math.Abs(max)*rangeMarginFraction, 1)
	}

	margin := span * rangeMarginFraction
	lo := min - margin
	hi := max + margin

	tick := niceTickInterval((hi - lo) / 5)
	if tick > 0 {
		lo = math.Floor(lo/tick) * tick
		hi = math.Ceil(hi/tick) * tick
	}

	return AxisRange{Min: lo, Max: hi, TickInterval: tick}
}

// niceTickInterval rounds a raw interval up to a readable step. The table
// keeps axis labels roundish without producing more ticks than requested.
func niceTickInterval(raw float64) float64 {
	switch {
	case raw >= 10000:
		return math.Ceil(raw/10000) * 10000
	case raw >= 1000:
		return math.Ceil(raw/1000) * 1000
	case raw >= 100:
		return math.Ceil(raw/100) * 100
	case raw >= 10:
		return math.Ceil(raw/10) * 10
	default:
		return raw
	}
}

func clampWindow(window ViewportWindow, length int) (int, int) {
	if length == 0 {
		return 0, -1
	}

	start := window.StartIndex
	end := window.EndIndex

	if start < 0 {
		start = 0
	}

	if end > length-1 {
		end = length - 1
	}

	return start, end
}
