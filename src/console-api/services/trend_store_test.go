package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

func TestTrendStoreRoundTrip(t *testing.T) {
	store := NewTrendStore(t.TempDir())

	labels := []*models.TrendLabel{
		{Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Classification: models.TrendBullish},
		{Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Classification: models.TrendBearish},
	}
	require.NoError(t, store.Write("AAPL", labels))

	got, err := store.Read("AAPL")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, models.TrendBearish, got[0].Classification)
	require.Equal(t, models.TrendBullish, got[1].Classification)
}

func TestTrendStoreMergeDedupesByDate(t *testing.T) {
	store := NewTrendStore(t.TempDir())
	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Write("AAPL", []*models.TrendLabel{{Date: date, Classification: models.TrendBullish}}))
	require.NoError(t, store.Write("AAPL", []*models.TrendLabel{{Date: date, Classification: models.TrendBearish}}))

	got, err := store.Read("AAPL")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, models.TrendBearish, got[0].Classification)
}

func TestTrendStoreImportCSVNormalizesUnknowns(t *testing.T) {
	store := NewTrendStore(t.TempDir())

	csv := strings.Join([]string{
		"date,trend",
		"2024-03-04,bullish",
		"2024-03-05,sideways",
		"2024-03-06,mystery",
	}, "\n")

	count, err := store.ImportCSV(strings.NewReader(csv), "AAPL")
	require.NoError(t, err)
	require.Equal(t, 3, count)

	got, err := store.Read("AAPL")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, models.TrendBullish, got[0].Classification)
	require.Equal(t, models.TrendRanging, got[1].Classification)
	require.Equal(t, models.TrendRanging, got[2].Classification)
}

func TestTrendStoreMissingFile(t *testing.T) {
	store := NewTrendStore(t.TempDir())

	got, err := store.Read("MISSING")
	require.NoError(t, err)
	require.Empty(t, got)
}
