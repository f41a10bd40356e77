package models

import (
	"fmt"
	"math"
	"time"
)

// KlineBarDTO is the CSV row shape used by the kline store and the import
// endpoints. Dates accept RFC3339 or plain dates.
type KlineBarDTO struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

type KlineBar struct {
	Timestamp time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

func (dto *KlineBarDTO) ToModel() (*KlineBar, error) {
	t, err := ParseFlexibleTime(dto.Date)
	if err != nil {
		return nil, fmt.Errorf("KlineBarDTO.ToModel: %w", err)
	}

	return &KlineBar{
		Timestamp: t,
		Open:      dto.Open,
		High:      dto.High,
		Low:       dto.Low,
		Close:     dto.Close,
		Volume:    dto.Volume,
	}, nil
}

func (b *KlineBar) ToDTO() *KlineBarDTO {
	return &KlineBarDTO{
		Date:   b.Timestamp.UTC().Format(time.RFC3339),
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
}

// IsPlottable reports whether all four price fields are finite. A partial
// bar cannot be drawn and must not silently become zero.
func (b *KlineBar) IsPlottable() bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ParseFlexibleTime accepts the timestamp formats seen in imported files.
func ParseFlexibleTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}
