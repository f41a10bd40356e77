package models

import "time"

type TradeRecord struct {
	TradeID         string       `json:"trade_id" gorm:"column:trade_id;primaryKey"`
	TaskID          string       `json:"task_id" gorm:"column:task_id;index"`
	AccountID       string       `json:"account_id" gorm:"column:account_id;index"`
	StockSymbol     string       `json:"stock_symbol" gorm:"column:stock_symbol;index"`
	TradeAction     TradeAction  `json:"trade_action" gorm:"column:trade_action;index"`
	Quantity        float64      `json:"quantity" gorm:"column:quantity;type:numeric"`
	Price           float64      `json:"price" gorm:"column:price;type:numeric"`
	TotalAmount     float64      `json:"total_amount" gorm:"column:total_amount;type:numeric"`
	Commission      float64      `json:"commission" gorm:"column:commission;type:numeric"`
	Tax             float64      `json:"tax" gorm:"column:tax;type:numeric"`
	TotalFees       float64      `json:"total_fees" gorm:"column:total_fees;type:numeric"`
	Status          TradeStatus  `json:"status" gorm:"column:status;default:PENDING"`
	PositionSide    PositionSide `json:"position_side" gorm:"column:position_side"`
	OpenID          *string      `json:"open_id" gorm:"column:open_id"`
	DecisionID      *string      `json:"decision_id" gorm:"column:decision_id"`
	TotalValueAfter float64      `json:"total_value_after" gorm:"column:total_value_after;type:numeric"`
	QuantityAfter   float64      `json:"remaining_quantity_after" gorm:"column:remaining_quantity_after;type:numeric"`
	AvgPriceAfter   float64      `json:"avg_price_after" gorm:"column:avg_price_after;type:numeric"`
	TradeTime       time.Time    `json:"trade_time" gorm:"column:trade_time;type:timestamptz;index"`
}

func (TradeRecord) TableName() string {
	return "trade_records"
}
