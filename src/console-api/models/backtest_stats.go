package models

// BacktestStats is the summary block attached to a finished task.
type BacktestStats struct {
	TotalTrades        int     `json:"total_trades"`
	WinningTrades      int     `json:"winning_trades"`
	WinRate            float64 `json:"win_rate"`
	TotalReturnPercent float64 `json:"total_return_percent"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
	Volatility         float64 `json:"volatility"`
	TotalFees          float64 `json:"total_fees"`
	FinalValue         float64 `json:"final_value"`
}
