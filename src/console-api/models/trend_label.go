package models

import (
	"fmt"
	"time"
)

// TrendLabelDTO is the CSV row shape of trend files: one label per day.
type TrendLabelDTO struct {
	Date  string `csv:"date"`
	Trend string `csv:"trend"`
}

type TrendLabel struct {
	Date           time.Time           `json:"date"`
	Classification TrendClassification `json:"trend"`
}

func (dto *TrendLabelDTO) ToModel() (*TrendLabel, bool, error) {
	t, err := time.Parse("2006-01-02", dto.Date)
	if err != nil {
		return nil, false, fmt.Errorf("TrendLabelDTO.ToModel: invalid date %q: %w", dto.Date, err)
	}

	trend, known := NormalizeTrend(dto.Trend)
	return &TrendLabel{Date: t.UTC(), Classification: trend}, known, nil
}

func (l *TrendLabel) ToDTO() *TrendLabelDTO {
	return &TrendLabelDTO{
		Date:  l.Date.UTC().Format("2006-01-02"),
		Trend: string(l.Classification),
	}
}
