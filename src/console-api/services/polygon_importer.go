package services

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	polygonmodels "github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

// PolygonImporter pulls aggregate bars from the Polygon REST API and
// merges them into the kline store.
type PolygonImporter struct {
	client *polygon.Client
	store  *KlineStore
}

func NewPolygonImporter(apiKey string, store *KlineStore) *PolygonImporter {
	return &PolygonImporter{
		client: polygon.New(apiKey),
		store:  store,
	}
}

func timespanFor(granularity models.TimeGranularity) polygonmodels.Timespan {
	switch granularity {
	case models.TimeGranularityHourly:
		return polygonmodels.Hour
	case models.TimeGranularityMinute:
		return polygonmodels.Minute
	default:
		return polygonmodels.Day
	}
}

// Import fetches bars for the symbol over [from, to] and writes them to
// the store. Returns the number of imported bars.
func (p *PolygonImporter) Import(ctx context.Context, symbol string, granularity models.TimeGranularity, from, to time.Time) (int, error) {
	params := polygonmodels.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   timespanFor(granularity),
		From:       polygonmodels.Millis(from),
		To:         polygonmodels.Millis(to),
	}.WithOrder(polygonmodels.Asc).WithAdjusted(true)

	iter := p.client.ListAggs(ctx, params)

	var bars []*models.KlineBar
	for iter.Next() {
		item := iter.Item()
		bars = append(bars, &models.KlineBar{
			Timestamp: time.Time(item.Timestamp).UTC(),
			Open:      item.Open,
			High:      item.High,
			Low:       item.Low,
			Close:     item.Close,
			Volume:    item.Volume,
		})
	}

	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("PolygonImporter.Import: failed to list aggs for %s: %w", symbol, err)
	}

	if len(bars) == 0 {
		return 0, fmt.Errorf("PolygonImporter.Import: no results for %s between %s and %s", symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	if err := p.store.Write(symbol, granularity, bars); err != nil {
		return 0, err
	}

	log.Infof("PolygonImporter: imported %d %s bars for %s", len(bars), granularity, symbol)
	return len(bars), nil
}
