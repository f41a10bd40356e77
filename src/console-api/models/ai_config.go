package models

import "time"

type AIConfig struct {
	ConfigID  string    `json:"config_id" gorm:"column:config_id;primaryKey"`
	Name      string    `json:"name" gorm:"column:name;not null"`
	BaseURL   string    `json:"local_ai_base_url" gorm:"column:local_ai_base_url"`
	APIKey    string    `json:"-" gorm:"column:local_ai_api_key"`
	ModelName string    `json:"local_ai_model_name" gorm:"column:local_ai_model_name"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;type:timestamptz"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;type:timestamptz"`
}

func (AIConfig) TableName() string {
	return "ai_configs"
}
