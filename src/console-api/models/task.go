package models

import (
	"time"

	"gorm.io/gorm"
)

type Task struct {
	TaskID           string          `json:"task_id" gorm:"column:task_id;primaryKey"`
	AccountID        string          `json:"account_id" gorm:"column:account_id;index;not null"`
	StockSymbol      string          `json:"stock_symbol" gorm:"column:stock_symbol;index;not null"`
	MarketType       string          `json:"market_type" gorm:"column:market_type"`
	UserPromptID     *string         `json:"user_prompt_id" gorm:"column:user_prompt_id"`
	AIConfigID       *string         `json:"ai_config_id" gorm:"column:ai_config_id;index"`
	StartDate        time.Time       `json:"start_date" gorm:"column:start_date;type:timestamptz;index;not null"`
	EndDate          time.Time       `json:"end_date" gorm:"column:end_date;type:timestamptz;index;not null"`
	Status           TaskStatus      `json:"status" gorm:"column:status;index;default:PENDING"`
	TimeGranularity  TimeGranularity `json:"time_granularity" gorm:"column:time_granularity;index;default:daily"`
	DecisionInterval int             `json:"decision_interval" gorm:"column:decision_interval;default:1"`
	TotalItems       int             `json:"total_items" gorm:"column:total_items"`
	ProcessedItems   int             `json:"processed_items" gorm:"column:processed_items"`
	ErrorMessage     *string         `json:"error_message" gorm:"column:error_message"`
	Stats            *BacktestStats  `json:"stats" gorm:"column:stats;type:jsonb;serializer:json"`
	CreatedAt        time.Time       `json:"created_at" gorm:"column:created_at;type:timestamptz;index"`
	StartedAt        *time.Time      `json:"started_at" gorm:"column:started_at;type:timestamptz"`
	PausedAt         *time.Time      `json:"paused_at" gorm:"column:paused_at;type:timestamptz"`
	ResumedAt        *time.Time      `json:"resumed_at" gorm:"column:resumed_at;type:timestamptz"`
	CompletedAt      *time.Time      `json:"completed_at" gorm:"column:completed_at;type:timestamptz"`
}

func (Task) TableName() string {
	return "tasks"
}

// CanStart reports whether a start/resume request is valid in the current state.
func (t *Task) CanStart() bool {
	return t.Status != TaskStatusRunning
}

// CanStop reports whether the task can transition to CANCELLED.
func (t *Task) CanStop() bool {
	switch t.Status {
	case TaskStatusPending, TaskStatusRunning, TaskStatusPaused:
		return true
	default:
		return false
	}
}

// UpdateStatusTx persists a status transition inside the caller's transaction.
func (t *Task) UpdateStatusTx(tx *gorm.DB, status TaskStatus) error {
	t.Status = status
	return tx.Model(t).Update("status", status).Error
}
