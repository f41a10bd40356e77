package services

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

// ComputeBacktestStats summarizes a finished run from its equity curve
// and trade log.
func ComputeBacktestStats(account *models.VirtualAccount, snapshots []*models.AccountSnapshot, trades []*models.TradeRecord) *models.BacktestStats {
	out := &models.BacktestStats{
		TotalFees:  account.TotalFees,
		FinalValue: account.TotalValue,
	}

	if account.InitialBalance > 0 {
		out.TotalReturnPercent = (account.TotalValue - account.InitialBalance) / account.InitialBalance * 100
	}

	out.TotalTrades, out.WinningTrades, out.WinRate = winRate(trades)
	out.MaxDrawdownPercent = maxDrawdown(snapshots)
	out.Volatility = equityVolatility(snapshots)

	return out
}

// winRate pairs each closing trade (SELL, COVER_SHORT) against the
// position's entry price and counts round trips that ended positive net
// of fees.
func winRate(trades []*models.TradeRecord) (total, winning int, rate float64) {
	var entryPrice float64
	var entrySide models.PositionSide

	for _, trade := range trades {
		switch trade.TradeAction {
		case models.TradeActionBuy:
			entryPrice = trade.Price
			entrySide = models.PositionSideLong
		case models.TradeActionShortSell:
			entryPrice = trade.Price
			entrySide = models.PositionSideShort
		case models.TradeActionSell, models.TradeActionCoverShort:
			if entryPrice == 0 {
				continue
			}

			total++
			pnl := (trade.Price - entryPrice) * trade.Quantity
			if entrySide == models.PositionSideShort {
				pnl = -pnl
			}

			if pnl-trade.TotalFees > 0 {
				winning++
			}

			entryPrice = 0
		}
	}

	if total > 0 {
		rate = float64(winning) / float64(total) * 100
	}

	return total, winning, rate
}

func maxDrawdown(snapshots []*models.AccountSnapshot) float64 {
	peak := math.Inf(-1)
	worst := 0.0

	for _, snap := range snapshots {
		if snap.TotalValue > peak {
			peak = snap.TotalValue
		}

		if peak > 0 {
			dd := (peak - snap.TotalValue) / peak * 100
			if dd > worst {
				worst = dd
			}
		}
	}

	return worst
}

// equityVolatility is the standard deviation of per-snapshot equity
// returns, in percent.
func equityVolatility(snapshots []*models.AccountSnapshot) float64 {
	if len(snapshots) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(snapshots)-1)
	for i := 1; i < len(snapshots); i++ {
		prev := snapshots[i-1].TotalValue
		if prev <= 0 {
			continue
		}

		returns = append(returns, (snapshots[i].TotalValue-prev)/prev)
	}

	if len(returns) < 2 {
		return 0
	}

	sd, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return 0
	}

	return sd * 100
}
