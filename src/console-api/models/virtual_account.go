package models

import "time"

type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

type VirtualAccount struct {
	AccountID          string       `json:"account_id" gorm:"column:account_id;primaryKey"`
	MarketType         string       `json:"market_type" gorm:"column:market_type;index"`
	StockSymbol        string       `json:"stock_symbol" gorm:"column:stock_symbol;index"`
	InitialBalance     float64      `json:"initial_balance" gorm:"column:initial_balance;type:numeric;not null"`
	CurrentBalance     float64      `json:"current_balance" gorm:"column:current_balance;type:numeric;not null"`
	AvailableBalance   float64      `json:"available_balance" gorm:"column:available_balance;type:numeric"`
	StockPrice         float64      `json:"stock_price" gorm:"column:stock_price;type:numeric"`
	StockQuantity      float64      `json:"stock_quantity" gorm:"column:stock_quantity;type:numeric"`
	StockMarketValue   float64      `json:"stock_market_value" gorm:"column:stock_market_value;type:numeric"`
	TotalValue         float64      `json:"total_value" gorm:"column:total_value;type:numeric"`
	PositionSide       PositionSide `json:"position_side" gorm:"column:position_side"`
	MarginUsed         float64      `json:"margin_used" gorm:"column:margin_used;type:numeric"`
	ShortAvgPrice      float64      `json:"short_avg_price" gorm:"column:short_avg_price;type:numeric"`
	ShortTotalCost     float64      `json:"short_total_cost" gorm:"column:short_total_cost;type:numeric"`
	CommissionRateBuy  float64      `json:"commission_rate_buy" gorm:"column:commission_rate_buy;type:numeric"`
	CommissionRateSell float64      `json:"commission_rate_sell" gorm:"column:commission_rate_sell;type:numeric"`
	TaxRate            float64      `json:"tax_rate" gorm:"column:tax_rate;type:numeric"`
	MinCommission      float64      `json:"min_commission" gorm:"column:min_commission;type:numeric"`
	TotalFees          float64      `json:"total_fees" gorm:"column:total_fees;type:numeric"`
	CreatedAt          time.Time    `json:"created_at" gorm:"column:created_at;type:timestamptz"`
	UpdatedAt          time.Time    `json:"updated_at" gorm:"column:updated_at;type:timestamptz"`
}

func (VirtualAccount) TableName() string {
	return "virtual_accounts"
}

// Reset returns the account to its pre-backtest state.
func (a *VirtualAccount) Reset() {
	a.CurrentBalance = a.InitialBalance
	a.AvailableBalance = a.InitialBalance
	a.StockQuantity = 0
	a.StockPrice = 0
	a.StockMarketValue = 0
	a.TotalValue = a.InitialBalance
	a.PositionSide = PositionSideLong
	a.MarginUsed = 0
	a.ShortAvgPrice = 0
	a.ShortTotalCost = 0
	a.TotalFees = 0
}
