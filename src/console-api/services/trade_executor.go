package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

// TradeExecutor applies fills to a virtual account and produces trade
// records. It mutates the account in memory only; persistence is the
// caller's job.
type TradeExecutor struct {
	account *models.VirtualAccount
}

func NewTradeExecutor(account *models.VirtualAccount) *TradeExecutor {
	return &TradeExecutor{account: account}
}

func (e *TradeExecutor) commission(amount, rate float64) float64 {
	c := amount * rate
	if c < e.account.MinCommission {
		c = e.account.MinCommission
	}

	return c
}

func (e *TradeExecutor) markToMarket(price float64) {
	a := e.account
	a.StockPrice = price

	switch a.PositionSide {
	case models.PositionSideShort:
		a.StockMarketValue = a.StockQuantity * price
		// Short equity is cash plus the open P&L on the borrowed shares.
		a.TotalValue = a.CurrentBalance + (a.ShortTotalCost - a.StockMarketValue)
	default:
		a.StockMarketValue = a.StockQuantity * price
		a.TotalValue = a.CurrentBalance + a.StockMarketValue
	}
}

// MarkToMarket revalues the position at the given price without trading.
func (e *TradeExecutor) MarkToMarket(price float64) {
	e.markToMarket(price)
}

// Execute applies a single action at the given price and time. HOLD
// revalues only and returns a nil record.
func (e *TradeExecutor) Execute(action models.TradeAction, quantity, price float64, at time.Time, taskID string, decisionID *string) (*models.TradeRecord, error) {
	switch action {
	case models.TradeActionHold:
		e.markToMarket(price)
		return nil, nil
	case models.TradeActionBuy:
		return e.buy(quantity, price, at, taskID, decisionID)
	case models.TradeActionSell:
		return e.sell(quantity, price, at, taskID, decisionID)
	case models.TradeActionShortSell:
		return e.shortSell(quantity, price, at, taskID, decisionID)
	case models.TradeActionCoverShort:
		return e.coverShort(quantity, price, at, taskID, decisionID)
	default:
		return nil, fmt.Errorf("TradeExecutor.Execute: unknown action %q", action)
	}
}

func (e *TradeExecutor) buy(quantity, price float64, at time.Time, taskID string, decisionID *string) (*models.TradeRecord, error) {
	a := e.account
	if a.PositionSide == models.PositionSideShort && a.StockQuantity > 0 {
		return nil, fmt.Errorf("TradeExecutor.buy: account %s holds a short position, cover it first", a.AccountID)
	}

	amount := quantity * price
	commission := e.commission(amount, a.CommissionRateBuy)
	cost := amount + commission

	if cost > a.AvailableBalance {
		return nil, fmt.Errorf("TradeExecutor.buy: insufficient balance, need %.2f have %.2f", cost, a.AvailableBalance)
	}

	a.CurrentBalance -= cost
	a.AvailableBalance -= cost
	a.StockQuantity += quantity
	a.PositionSide = models.PositionSideLong
	a.TotalFees += commission
	e.markToMarket(price)

	return e.record(models.TradeActionBuy, quantity, price, amount, commission, 0, at, taskID, decisionID), nil
}

func (e *TradeExecutor) sell(quantity, price float64, at time.Time, taskID string, decisionID *string) (*models.TradeRecord, error) {
	a := e.account
	if a.PositionSide != models.PositionSideLong || quantity > a.StockQuantity {
		return nil, fmt.Errorf("TradeExecutor.sell: insufficient position, want %.2f have %.2f", quantity, a.StockQuantity)
	}

	amount := quantity * price
	commission := e.commission(amount, a.CommissionRateSell)
	tax := amount * a.TaxRate
	proceeds := amount - commission - tax

	a.CurrentBalance += proceeds
	a.AvailableBalance += proceeds
	a.StockQuantity -= quantity
	a.TotalFees += commission + tax
	e.markToMarket(price)

	return e.record(models.TradeActionSell, quantity, price, amount, commission, tax, at, taskID, decisionID), nil
}

func (e *TradeExecutor) shortSell(quantity, price float64, at time.Time, taskID string, decisionID *string) (*models.TradeRecord, error) {
	a := e.account
	if a.PositionSide == models.PositionSideLong && a.StockQuantity > 0 {
		return nil, fmt.Errorf("TradeExecutor.shortSell: account %s holds a long position, sell it first", a.AccountID)
	}

	amount := quantity * price
	commission := e.commission(amount, a.CommissionRateSell)

	// Full notional margin. The proceeds of the borrow are not spendable.
	if amount+commission > a.AvailableBalance {
		return nil, fmt.Errorf("TradeExecutor.shortSell: insufficient margin, need %.2f have %.2f", amount+commission, a.AvailableBalance)
	}

	prevCost := a.ShortTotalCost
	a.CurrentBalance -= commission
	a.AvailableBalance -= amount + commission
	a.MarginUsed += amount
	a.StockQuantity += quantity
	a.PositionSide = models.PositionSideShort
	a.ShortTotalCost = prevCost + amount
	a.ShortAvgPrice = a.ShortTotalCost / a.StockQuantity
	a.TotalFees += commission
	e.markToMarket(price)

	return e.record(models.TradeActionShortSell, quantity, price, amount, commission, 0, at, taskID, decisionID), nil
}

func (e *TradeExecutor) coverShort(quantity, price float64, at time.Time, taskID string, decisionID *string) (*models.TradeRecord, error) {
	a := e.account
	if a.PositionSide != models.PositionSideShort || quantity > a.StockQuantity {
		return nil, fmt.Errorf("TradeExecutor.coverShort: insufficient short position, want %.2f have %.2f", quantity, a.StockQuantity)
	}

	amount := quantity * price
	commission := e.commission(amount, a.CommissionRateBuy)
	tax := amount * a.TaxRate

	costBasis := a.ShortAvgPrice * quantity
	pnl := costBasis - amount
	released := costBasis

	a.MarginUsed -= released
	a.CurrentBalance += pnl - commission - tax
	a.AvailableBalance += released + pnl - commission - tax
	a.StockQuantity -= quantity
	a.ShortTotalCost -= costBasis
	a.TotalFees += commission + tax

	if a.StockQuantity == 0 {
		a.PositionSide = models.PositionSideLong
		a.ShortAvgPrice = 0
		a.ShortTotalCost = 0
		a.MarginUsed = 0
	}

	e.markToMarket(price)

	return e.record(models.TradeActionCoverShort, quantity, price, amount, commission, tax, at, taskID, decisionID), nil
}

func (e *TradeExecutor) record(action models.TradeAction, quantity, price, amount, commission, tax float64, at time.Time, taskID string, decisionID *string) *models.TradeRecord {
	a := e.account
	avgPrice := 0.0
	if a.PositionSide == models.PositionSideShort {
		avgPrice = a.ShortAvgPrice
	} else if a.StockQuantity > 0 {
		avgPrice = a.StockPrice
	}

	return &models.TradeRecord{
		TradeID:         uuid.NewString(),
		TaskID:          taskID,
		AccountID:       a.AccountID,
		StockSymbol:     a.StockSymbol,
		TradeAction:     action,
		Quantity:        quantity,
		Price:           price,
		TotalAmount:     amount,
		Commission:      commission,
		Tax:             tax,
		TotalFees:       commission + tax,
		Status:          models.TradeStatusCompleted,
		PositionSide:    a.PositionSide,
		DecisionID:      decisionID,
		TotalValueAfter: a.TotalValue,
		QuantityAfter:   a.StockQuantity,
		AvgPriceAfter:   avgPrice,
		TradeTime:       at,
	}
}

// Snapshot captures the account state as one equity curve point.
func (e *TradeExecutor) Snapshot(taskID string, at time.Time) *models.AccountSnapshot {
	a := e.account
	pnl := a.TotalValue - a.InitialBalance
	pnlPct := 0.0
	if a.InitialBalance > 0 {
		pnlPct = pnl / a.InitialBalance * 100
	}

	return &models.AccountSnapshot{
		SnapshotID:        uuid.NewString(),
		TaskID:            taskID,
		AccountID:         a.AccountID,
		Balance:           a.CurrentBalance,
		StockQuantity:     a.StockQuantity,
		StockPrice:        a.StockPrice,
		StockMarketValue:  a.StockMarketValue,
		TotalValue:        a.TotalValue,
		ProfitLoss:        pnl,
		ProfitLossPercent: pnlPct,
		MarginUsed:        a.MarginUsed,
		Timestamp:         at,
	}
}
