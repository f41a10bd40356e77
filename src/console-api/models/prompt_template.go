package models

import (
	"fmt"
	"time"
)

type PromptStatus string

const (
	PromptStatusAvailable   PromptStatus = "AVAILABLE"
	PromptStatusUnavailable PromptStatus = "UNAVAILABLE"
	PromptStatusDeleted     PromptStatus = "DELETED"
)

func (s PromptStatus) Validate() error {
	switch s {
	case PromptStatusAvailable, PromptStatusUnavailable, PromptStatusDeleted:
		return nil
	default:
		return fmt.Errorf("invalid prompt status: %s", s)
	}
}

// PromptTemplate is an operator-authored strategy prompt.
type PromptTemplate struct {
	PromptID    string       `json:"prompt_id" gorm:"column:prompt_id;primaryKey"`
	Content     string       `json:"content" gorm:"column:content;type:text;not null"`
	Description *string      `json:"description" gorm:"column:description"`
	Status      PromptStatus `json:"status" gorm:"column:status;default:AVAILABLE"`
	Tags        *string      `json:"tags" gorm:"column:tags"`
	CreatedAt   time.Time    `json:"created_at" gorm:"column:created_at;type:timestamptz"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"column:updated_at;type:timestamptz"`
}

func (PromptTemplate) TableName() string {
	return "prompt_templates"
}
