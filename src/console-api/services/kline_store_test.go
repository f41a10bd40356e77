package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

func testBar(day int, close float64) *models.KlineBar {
	return &models.KlineBar{
		Timestamp: time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		Open:      close - 1,
		High:      close + 1,
		Low:       close - 2,
		Close:     close,
		Volume:    1000,
	}
}

func TestKlineStoreRoundTrip(t *testing.T) {
	store := NewKlineStore(t.TempDir())

	bars := []*models.KlineBar{testBar(5, 100), testBar(4, 99), testBar(6, 101)}
	require.NoError(t, store.Write("AAPL", models.TimeGranularityDaily, bars))

	got, err := store.Read("AAPL", models.TimeGranularityDaily)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Always sorted ascending regardless of write order.
	require.Equal(t, 99.0, got[0].Close)
	require.Equal(t, 100.0, got[1].Close)
	require.Equal(t, 101.0, got[2].Close)
}

func TestKlineStoreMergeDedupes(t *testing.T) {
	store := NewKlineStore(t.TempDir())

	require.NoError(t, store.Write("AAPL", models.TimeGranularityDaily, []*models.KlineBar{testBar(4, 99), testBar(5, 100)}))
	require.NoError(t, store.Write("AAPL", models.TimeGranularityDaily, []*models.KlineBar{testBar(5, 105), testBar(6, 101)}))

	got, err := store.Read("AAPL", models.TimeGranularityDaily)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// The newer write wins for the shared date.
	require.Equal(t, 105.0, got[1].Close)
}

func TestKlineStoreMissingFile(t *testing.T) {
	store := NewKlineStore(t.TempDir())

	got, err := store.Read("MISSING", models.TimeGranularityDaily)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestKlineStoreQueryDailyRangeIsInclusive(t *testing.T) {
	store := NewKlineStore(t.TempDir())
	require.NoError(t, store.Write("AAPL", models.TimeGranularityDaily, []*models.KlineBar{
		testBar(4, 99), testBar(5, 100), testBar(6, 101), testBar(7, 102),
	}))

	from := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

	got, err := store.Query("AAPL", models.TimeGranularityDaily, &from, &to)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 100.0, got[0].Close)
	require.Equal(t, 101.0, got[1].Close)
}

func TestKlineStoreImportCSV(t *testing.T) {
	store := NewKlineStore(t.TempDir())

	csv := strings.Join([]string{
		"date,open,high,low,close,volume",
		"2024-03-04,99,101,98,100,5000",
		"2024-03-05,100,102,99,101,6000",
		"bad-date,1,1,1,1,1",
	}, "\n")

	count, err := store.ImportCSV(strings.NewReader(csv), "MSFT", models.TimeGranularityDaily)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	got, err := store.Read("MSFT", models.TimeGranularityDaily)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestKlineStoreGranularitiesAreSeparate(t *testing.T) {
	store := NewKlineStore(t.TempDir())

	require.NoError(t, store.Write("AAPL", models.TimeGranularityDaily, []*models.KlineBar{testBar(4, 99)}))
	require.NoError(t, store.Write("AAPL", models.TimeGranularityHourly, []*models.KlineBar{testBar(4, 50), testBar(5, 51)}))

	daily, err := store.Read("AAPL", models.TimeGranularityDaily)
	require.NoError(t, err)
	require.Len(t, daily, 1)

	hourly, err := store.Read("AAPL", models.TimeGranularityHourly)
	require.NoError(t, err)
	require.Len(t, hourly, 2)
}

func TestKlineStoreSymbolsAndDelete(t *testing.T) {
	store := NewKlineStore(t.TempDir())

	require.NoError(t, store.Write("AAPL", models.TimeGranularityDaily, []*models.KlineBar{testBar(4, 99)}))
	require.NoError(t, store.Write("MSFT", models.TimeGranularityDaily, []*models.KlineBar{testBar(4, 300)}))

	symbols, err := store.Symbols(models.TimeGranularityDaily)
	require.NoError(t, err)
	require.Equal(t, []string{"AAPL", "MSFT"}, symbols)

	removed, err := store.Delete("AAPL", models.TimeGranularityDaily)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = store.Delete("AAPL", models.TimeGranularityDaily)
	require.NoError(t, err)
	require.False(t, removed)

	symbols, err = store.Symbols(models.TimeGranularityDaily)
	require.NoError(t, err)
	require.Equal(t, []string{"MSFT"}, symbols)
}

func TestKlineStorePaginate(t *testing.T) {
	store := NewKlineStore(t.TempDir())

	bars := make([]*models.KlineBar, 0, 25)
	for d := 1; d <= 25; d++ {
		bars = append(bars, testBar(d, float64(100+d)))
	}

	t.Run("middle page", func(t *testing.T) {
		page := store.Paginate(bars, 2, 10)
		require.Equal(t, int64(25), page.Total)
		require.Equal(t, int64(3), page.TotalPages)
		require.Len(t, page.Items.([]*models.KlineBar), 10)
	})

	t.Run("last partial page", func(t *testing.T) {
		page := store.Paginate(bars, 3, 10)
		require.Len(t, page.Items.([]*models.KlineBar), 5)
	})

	t.Run("page beyond the end is empty", func(t *testing.T) {
		page := store.Paginate(bars, 9, 10)
		require.Empty(t, page.Items.([]*models.KlineBar))
	})
}

func TestKlineStoreDateRange(t *testing.T) {
	store := NewKlineStore(t.TempDir())
	require.NoError(t, store.Write("AAPL", models.TimeGranularityDaily, []*models.KlineBar{testBar(4, 99), testBar(8, 103)}))

	summary, err := store.DateRange("AAPL", models.TimeGranularityDaily)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Count)
	require.Contains(t, *summary.StartDate, "2024-03-04")
	require.Contains(t, *summary.EndDate, "2024-03-08")
}
