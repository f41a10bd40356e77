package models

import "time"

// AccountSnapshot is one point on a task's equity curve.
type AccountSnapshot struct {
	SnapshotID        string    `json:"snapshot_id" gorm:"column:snapshot_id;primaryKey"`
	TaskID            string    `json:"task_id" gorm:"column:task_id;index"`
	AccountID         string    `json:"account_id" gorm:"column:account_id;index"`
	Balance           float64   `json:"balance" gorm:"column:balance;type:numeric"`
	StockQuantity     float64   `json:"stock_quantity" gorm:"column:stock_quantity;type:numeric"`
	StockPrice        float64   `json:"stock_price" gorm:"column:stock_price;type:numeric"`
	StockMarketValue  float64   `json:"stock_market_value" gorm:"column:stock_market_value;type:numeric"`
	TotalValue        float64   `json:"total_value" gorm:"column:total_value;type:numeric"`
	ProfitLoss        float64   `json:"profit_loss" gorm:"column:profit_loss;type:numeric"`
	ProfitLossPercent float64   `json:"profit_loss_percent" gorm:"column:profit_loss_percent;type:numeric"`
	MarginUsed        float64   `json:"margin_used" gorm:"column:margin_used;type:numeric"`
	Timestamp         time.Time `json:"timestamp" gorm:"column:timestamp;type:timestamptz;index"`
}

func (AccountSnapshot) TableName() string {
	return "account_snapshots"
}
