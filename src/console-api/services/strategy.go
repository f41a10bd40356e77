package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

const smaWindow = 20

// Strategy produces one trade decision per bar. Implementations must be
// pure with respect to the account so the runner can replay them.
type Strategy interface {
	Decide(bars []*models.KlineBar, i int, account *models.VirtualAccount, trend models.TrendClassification) (models.TradeAction, float64, string)
}

// SMACrossStrategy trades closes against a simple moving average,
// gated by the day's trend classification. Uptrends take the long side,
// downtrends the short side, ranging days flatten.
type SMACrossStrategy struct{}

func (SMACrossStrategy) Decide(bars []*models.KlineBar, i int, account *models.VirtualAccount, trend models.TrendClassification) (models.TradeAction, float64, string) {
	if i < smaWindow {
		return models.TradeActionHold, 0, "warming up moving average"
	}

	closes := make([]float64, smaWindow)
	for j := 0; j < smaWindow; j++ {
		closes[j] = bars[i-smaWindow+j].Close
	}

	sma, err := stats.Mean(closes)
	if err != nil {
		return models.TradeActionHold, 0, "moving average unavailable"
	}

	price := bars[i].Close
	flat := account.StockQuantity == 0
	long := account.PositionSide == models.PositionSideLong && account.StockQuantity > 0
	short := account.PositionSide == models.PositionSideShort && account.StockQuantity > 0

	switch trend {
	case models.TrendBullish:
		if short {
			return models.TradeActionCoverShort, account.StockQuantity, fmt.Sprintf("uptrend, covering short at %.2f", price)
		}

		if flat && price > sma {
			qty := affordableQuantity(account, price)
			if qty > 0 {
				return models.TradeActionBuy, qty, fmt.Sprintf("uptrend, close %.2f above SMA%d %.2f", price, smaWindow, sma)
			}
		}
	case models.TrendBearish:
		if long {
			return models.TradeActionSell, account.StockQuantity, fmt.Sprintf("downtrend, exiting long at %.2f", price)
		}

		if flat && price < sma {
			qty := affordableQuantity(account, price)
			if qty > 0 {
				return models.TradeActionShortSell, qty, fmt.Sprintf("downtrend, close %.2f below SMA%d %.2f", price, smaWindow, sma)
			}
		}
	default:
		if long && price < sma {
			return models.TradeActionSell, account.StockQuantity, fmt.Sprintf("ranging, close %.2f fell under SMA%d %.2f", price, smaWindow, sma)
		}

		if short && price > sma {
			return models.TradeActionCoverShort, account.StockQuantity, fmt.Sprintf("ranging, close %.2f rose over SMA%d %.2f", price, smaWindow, sma)
		}
	}

	return models.TradeActionHold, 0, "no signal"
}

// affordableQuantity sizes a full-balance entry in whole shares, leaving
// headroom for the entry commission.
func affordableQuantity(account *models.VirtualAccount, price float64) float64 {
	if price <= 0 {
		return 0
	}

	budget := account.AvailableBalance * 0.99
	qty := float64(int(budget / price))
	if qty < 1 {
		return 0
	}

	return qty
}

// NewDecision wraps a strategy verdict as a persisted decision row.
func NewDecision(taskID string, account *models.VirtualAccount, action models.TradeAction, reasoning string, at time.Time, elapsed time.Duration) *models.LocalDecision {
	end := at
	ms := elapsed.Milliseconds()

	return &models.LocalDecision{
		DecisionID:      uuid.NewString(),
		TaskID:          taskID,
		AccountID:       account.AccountID,
		StockSymbol:     account.StockSymbol,
		DecisionResult:  models.DecisionResultFromAction(action),
		ConfidenceScore: 1,
		Reasoning:       reasoning,
		AnalysisDate:    &at,
		StartTime:       at,
		EndTime:         &end,
		ExecutionTimeMs: &ms,
	}
}
