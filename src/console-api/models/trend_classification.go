package models

import "strings"

type TrendClassification string

const (
	TrendBullish TrendClassification = "bullish"
	TrendBearish TrendClassification = "bearish"
	TrendRanging TrendClassification = "ranging"
)

// NormalizeTrend maps raw trend strings from imported files onto the
// canonical classification set. Unknown values fall back to ranging.
func NormalizeTrend(raw string) (TrendClassification, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "bullish", "bull", "up", "uptrend":
		return TrendBullish, true
	case "bearish", "bear", "down", "downtrend":
		return TrendBearish, true
	case "ranging", "range", "sideways", "flat":
		return TrendRanging, true
	default:
		return TrendRanging, false
	}
}
