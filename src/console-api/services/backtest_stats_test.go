package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

func snapshotAt(day int, totalValue float64) *models.AccountSnapshot {
	return &models.AccountSnapshot{
		TaskID:     "task-1",
		TotalValue: totalValue,
		Timestamp:  time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
	}
}

func closedTrade(action models.TradeAction, price, quantity, fees float64) *models.TradeRecord {
	return &models.TradeRecord{
		TradeAction: action,
		Price:       price,
		Quantity:    quantity,
		TotalFees:   fees,
	}
}

func TestComputeBacktestStats(t *testing.T) {
	account := newTestAccount()
	account.TotalValue = 11000
	account.TotalFees = 42

	snapshots := []*models.AccountSnapshot{
		snapshotAt(1, 10000),
		snapshotAt(2, 10800),
		snapshotAt(3, 9720), // 10% drawdown from the 10800 peak
		snapshotAt(4, 11000),
	}

	trades := []*models.TradeRecord{
		closedTrade(models.TradeActionBuy, 100, 10, 5),
		closedTrade(models.TradeActionSell, 110, 10, 6), // +100 net of 6
		closedTrade(models.TradeActionBuy, 110, 10, 5),
		closedTrade(models.TradeActionSell, 105, 10, 6), // -50
	}

	stats := ComputeBacktestStats(account, snapshots, trades)

	require.Equal(t, 2, stats.TotalTrades)
	require.Equal(t, 1, stats.WinningTrades)
	require.InDelta(t, 50.0, stats.WinRate, 1e-9)
	require.InDelta(t, 10.0, stats.TotalReturnPercent, 1e-9)
	require.InDelta(t, 10.0, stats.MaxDrawdownPercent, 1e-9)
	require.Greater(t, stats.Volatility, 0.0)
	require.Equal(t, 42.0, stats.TotalFees)
	require.Equal(t, 11000.0, stats.FinalValue)
}

func TestComputeBacktestStatsShortRoundTrip(t *testing.T) {
	account := newTestAccount()
	account.TotalValue = 10100

	trades := []*models.TradeRecord{
		closedTrade(models.TradeActionShortSell, 100, 10, 5),
		closedTrade(models.TradeActionCoverShort, 90, 10, 6), // +100 short gain
	}

	stats := ComputeBacktestStats(account, nil, trades)

	require.Equal(t, 1, stats.TotalTrades)
	require.Equal(t, 1, stats.WinningTrades)
}

func TestComputeBacktestStatsNoActivity(t *testing.T) {
	account := newTestAccount()
	account.TotalValue = account.InitialBalance

	stats := ComputeBacktestStats(account, nil, nil)

	require.Equal(t, 0, stats.TotalTrades)
	require.Equal(t, 0.0, stats.WinRate)
	require.Equal(t, 0.0, stats.TotalReturnPercent)
	require.Equal(t, 0.0, stats.MaxDrawdownPercent)
	require.Equal(t, 0.0, stats.Volatility)
}

func TestMaxDrawdownMonotonicEquity(t *testing.T) {
	snapshots := []*models.AccountSnapshot{
		snapshotAt(1, 10000),
		snapshotAt(2, 10500),
		snapshotAt(3, 11000),
	}

	require.Equal(t, 0.0, maxDrawdown(snapshots))
}
