package models

import "time"

type LocalDecision struct {
	DecisionID      string         `json:"decision_id" gorm:"column:decision_id;primaryKey"`
	TaskID          string         `json:"task_id" gorm:"column:task_id;index"`
	AccountID       string         `json:"account_id" gorm:"column:account_id;index"`
	StockSymbol     string         `json:"stock_symbol" gorm:"column:stock_symbol;index"`
	DecisionResult  DecisionResult `json:"decision_result" gorm:"column:decision_result"`
	ConfidenceScore float64        `json:"confidence_score" gorm:"column:confidence_score;type:numeric"`
	Reasoning       string         `json:"reasoning" gorm:"column:reasoning;type:text"`
	MarketData      map[string]any `json:"market_data" gorm:"column:market_data;type:jsonb;serializer:json"`
	AnalysisDate    *time.Time     `json:"analysis_date" gorm:"column:analysis_date;type:timestamptz"`
	StartTime       time.Time      `json:"start_time" gorm:"column:start_time;type:timestamptz;index"`
	EndTime         *time.Time     `json:"end_time" gorm:"column:end_time;type:timestamptz;index"`
	ExecutionTimeMs *int64         `json:"execution_time_ms" gorm:"column:execution_time_ms"`
}

func (LocalDecision) TableName() string {
	return "local_decisions"
}
