package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

type PromptRequest struct {
	Content     string  `json:"content"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Tags        *string `json:"tags"`
}

type ListPromptsRequest struct {
	Page     int    `schema:"page"`
	PageSize int    `schema:"page_size"`
	Status   string `schema:"status"`
}

func (s *Server) handlePromptList(w http.ResponseWriter, r *http.Request) {
	var req ListPromptsRequest
	if err := decodeQuery(r, &req); err != nil {
		setErrorResponse("handlePromptList", err, w)
		return
	}

	if req.Page < 1 {
		req.Page = 1
	}

	if req.PageSize < 1 {
		req.PageSize = 20
	}

	// Soft-deleted prompts never appear in listings.
	query := s.db.Model(&models.PromptTemplate{}).Where("status <> ?", models.PromptStatusDeleted)
	if req.Status != "" {
		status := models.PromptStatus(req.Status)
		if err := status.Validate(); err != nil {
			setErrorResponse("handlePromptList", models.NewWebError(400, err.Error(), err), w)
			return
		}

		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		setErrorResponse("handlePromptList", err, w)
		return
	}

	var prompts []*models.PromptTemplate
	err := query.Order("created_at desc").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&prompts).Error
	if err != nil {
		setErrorResponse("handlePromptList", err, w)
		return
	}

	if err := setResponse(models.NewPageData(prompts, req.Page, req.PageSize, total), w); err != nil {
		setErrorResponse("handlePromptList", err, w)
	}
}

func (s *Server) handlePromptCreate(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if err := decodeBody(r, &req); err != nil {
		setErrorResponse("handlePromptCreate", err, w)
		return
	}

	if req.Content == "" {
		setErrorResponse("handlePromptCreate", models.NewWebError(400, "content is required", nil), w)
		return
	}

	status := models.PromptStatusAvailable
	if req.Status != "" {
		status = models.PromptStatus(req.Status)
		if err := status.Validate(); err != nil {
			setErrorResponse("handlePromptCreate", models.NewWebError(400, err.Error(), err), w)
			return
		}
	}

	now := time.Now().UTC()
	prompt := &models.PromptTemplate{
		PromptID:    uuid.NewString(),
		Content:     req.Content,
		Description: req.Description,
		Status:      status,
		Tags:        req.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.Create(prompt).Error; err != nil {
		setErrorResponse("handlePromptCreate", models.NewWebError(500, "failed to create prompt", err), w)
		return
	}

	if err := setResponse(prompt, w); err != nil {
		setErrorResponse("handlePromptCreate", err, w)
	}
}

func (s *Server) loadPrompt(id string) (*models.PromptTemplate, error) {
	var prompt models.PromptTemplate
	if err := s.db.First(&prompt, "prompt_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewWebError(404, "prompt not found", err)
		}

		return nil, models.NewWebError(500, "failed to load prompt", err)
	}

	if prompt.Status == models.PromptStatusDeleted {
		return nil, models.NewWebError(404, "prompt not found", nil)
	}

	return &prompt, nil
}

func (s *Server) handlePromptGet(w http.ResponseWriter, r *http.Request) {
	prompt, err := s.loadPrompt(pathID(r))
	if err != nil {
		setErrorResponse("handlePromptGet", err, w)
		return
	}

	if err := setResponse(prompt, w); err != nil {
		setErrorResponse("handlePromptGet", err, w)
	}
}

func (s *Server) handlePromptUpdate(w http.ResponseWriter, r *http.Request) {
	prompt, err := s.loadPrompt(pathID(r))
	if err != nil {
		setErrorResponse("handlePromptUpdate", err, w)
		return
	}

	var req PromptRequest
	if err := decodeBody(r, &req); err != nil {
		setErrorResponse("handlePromptUpdate", err, w)
		return
	}

	if req.Content != "" {
		prompt.Content = req.Content
	}

	if req.Description != nil {
		prompt.Description = req.Description
	}

	if req.Tags != nil {
		prompt.Tags = req.Tags
	}

	if req.Status != "" {
		status := models.PromptStatus(req.Status)
		if err := status.Validate(); err != nil {
			setErrorResponse("handlePromptUpdate", models.NewWebError(400, err.Error(), err), w)
			return
		}

		prompt.Status = status
	}

	prompt.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(prompt).Error; err != nil {
		setErrorResponse("handlePromptUpdate", models.NewWebError(500, "failed to update prompt", err), w)
		return
	}

	if err := setResponse(prompt, w); err != nil {
		setErrorResponse("handlePromptUpdate", err, w)
	}
}

// handlePromptDelete soft-deletes so tasks that reference the prompt keep
// a resolvable id.
func (s *Server) handlePromptDelete(w http.ResponseWriter, r *http.Request) {
	prompt, err := s.loadPrompt(pathID(r))
	if err != nil {
		setErrorResponse("handlePromptDelete", err, w)
		return
	}

	prompt.Status = models.PromptStatusDeleted
	prompt.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(prompt).Error; err != nil {
		setErrorResponse("handlePromptDelete", models.NewWebError(500, "failed to delete prompt", err), w)
		return
	}

	if err := setResponse(map[string]string{"prompt_id": prompt.PromptID}, w); err != nil {
		setErrorResponse("handlePromptDelete", err, w)
	}
}
