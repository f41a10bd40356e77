package router

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

type ListDecisionsRequest struct {
	Page        int    `schema:"page"`
	PageSize    int    `schema:"page_size"`
	TaskID      string `schema:"task_id"`
	AccountID   string `schema:"account_id"`
	StockSymbol string `schema:"stock_symbol"`
}

func (s *Server) handleDecisionList(w http.ResponseWriter, r *http.Request) {
	var req ListDecisionsRequest
	if err := decodeQuery(r, &req); err != nil {
		setErrorResponse("handleDecisionList", err, w)
		return
	}

	if req.Page < 1 {
		req.Page = 1
	}

	if req.PageSize < 1 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.LocalDecision{})
	if req.TaskID != "" {
		query = query.Where("task_id = ?", req.TaskID)
	}

	if req.AccountID != "" {
		query = query.Where("account_id = ?", req.AccountID)
	}

	if req.StockSymbol != "" {
		query = query.Where("stock_symbol = ?", req.StockSymbol)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		setErrorResponse("handleDecisionList", err, w)
		return
	}

	var decisions []*models.LocalDecision
	err := query.Order("start_time asc").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&decisions).Error
	if err != nil {
		setErrorResponse("handleDecisionList", err, w)
		return
	}

	if err := setResponse(models.NewPageData(decisions, req.Page, req.PageSize, total), w); err != nil {
		setErrorResponse("handleDecisionList", err, w)
	}
}

func (s *Server) handleDecisionGet(w http.ResponseWriter, r *http.Request) {
	var decision models.LocalDecision
	if err := s.db.First(&decision, "decision_id = ?", pathID(r)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			setErrorResponse("handleDecisionGet", models.NewWebError(404, "decision not found", err), w)
			return
		}

		setErrorResponse("handleDecisionGet", err, w)
		return
	}

	if err := setResponse(&decision, w); err != nil {
		setErrorResponse("handleDecisionGet", err, w)
	}
}
