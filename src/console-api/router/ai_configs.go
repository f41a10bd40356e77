package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

type AIConfigRequest struct {
	Name      string `json:"name"`
	BaseURL   string `json:"local_ai_base_url"`
	APIKey    string `json:"local_ai_api_key"`
	ModelName string `json:"local_ai_model_name"`
}

func (s *Server) handleAIConfigList(w http.ResponseWriter, r *http.Request) {
	var configs []*models.AIConfig
	if err := s.db.Order("created_at desc").Find(&configs).Error; err != nil {
		setErrorResponse("handleAIConfigList", err, w)
		return
	}

	if err := setResponse(configs, w); err != nil {
		setErrorResponse("handleAIConfigList", err, w)
	}
}

func (s *Server) handleAIConfigCreate(w http.ResponseWriter, r *http.Request) {
	var req AIConfigRequest
	if err := decodeBody(r, &req); err != nil {
		setErrorResponse("handleAIConfigCreate", err, w)
		return
	}

	if req.Name == "" {
		setErrorResponse("handleAIConfigCreate", models.NewWebError(400, "name is required", nil), w)
		return
	}

	now := time.Now().UTC()
	config := &models.AIConfig{
		ConfigID:  uuid.NewString(),
		Name:      req.Name,
		BaseURL:   req.BaseURL,
		APIKey:    req.APIKey,
		ModelName: req.ModelName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.Create(config).Error; err != nil {
		setErrorResponse("handleAIConfigCreate", models.NewWebError(500, "failed to create ai config", err), w)
		return
	}

	if err := setResponse(config, w); err != nil {
		setErrorResponse("handleAIConfigCreate", err, w)
	}
}

func (s *Server) loadAIConfig(id string) (*models.AIConfig, error) {
	var config models.AIConfig
	if err := s.db.First(&config, "config_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewWebError(404, "ai config not found", err)
		}

		return nil, models.NewWebError(500, "failed to load ai config", err)
	}

	return &config, nil
}

func (s *Server) handleAIConfigGet(w http.ResponseWriter, r *http.Request) {
	config, err := s.loadAIConfig(pathID(r))
	if err != nil {
		setErrorResponse("handleAIConfigGet", err, w)
		return
	}

	if err := setResponse(config, w); err != nil {
		setErrorResponse("handleAIConfigGet", err, w)
	}
}

func (s *Server) handleAIConfigUpdate(w http.ResponseWriter, r *http.Request) {
	config, err := s.loadAIConfig(pathID(r))
	if err != nil {
		setErrorResponse("handleAIConfigUpdate", err, w)
		return
	}

	var req AIConfigRequest
	if err := decodeBody(r, &req); err != nil {
		setErrorResponse("handleAIConfigUpdate", err, w)
		return
	}

	if req.Name != "" {
		config.Name = req.Name
	}

	if req.BaseURL != "" {
		config.BaseURL = req.BaseURL
	}

	if req.APIKey != "" {
		config.APIKey = req.APIKey
	}

	if req.ModelName != "" {
		config.ModelName = req.ModelName
	}

	config.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(config).Error; err != nil {
		setErrorResponse("handleAIConfigUpdate", models.NewWebError(500, "failed to update ai config", err), w)
		return
	}

	if err := setResponse(config, w); err != nil {
		setErrorResponse("handleAIConfigUpdate", err, w)
	}
}

func (s *Server) handleAIConfigDelete(w http.ResponseWriter, r *http.Request) {
	config, err := s.loadAIConfig(pathID(r))
	if err != nil {
		setErrorResponse("handleAIConfigDelete", err, w)
		return
	}

	var inUse int64
	if err := s.db.Model(&models.Task{}).Where("ai_config_id = ?", config.ConfigID).Count(&inUse).Error; err != nil {
		setErrorResponse("handleAIConfigDelete", err, w)
		return
	}

	if inUse > 0 {
		setErrorResponse("handleAIConfigDelete", models.NewWebError(409, "ai config is referenced by existing tasks", nil), w)
		return
	}

	if err := s.db.Delete(config).Error; err != nil {
		setErrorResponse("handleAIConfigDelete", models.NewWebError(500, "failed to delete ai config", err), w)
		return
	}

	if err := setResponse(map[string]string{"config_id": config.ConfigID}, w); err != nil {
		setErrorResponse("handleAIConfigDelete", err, w)
	}
}
