package router

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

type ListAccountsRequest struct {
	Page        int    `schema:"page"`
	PageSize    int    `schema:"page_size"`
	MarketType  string `schema:"market_type"`
	StockSymbol string `schema:"stock_symbol"`
}

func (s *Server) handleAccountList(w http.ResponseWriter, r *http.Request) {
	var req ListAccountsRequest
	if err := decodeQuery(r, &req); err != nil {
		setErrorResponse("handleAccountList", err, w)
		return
	}

	if req.Page < 1 {
		req.Page = 1
	}

	if req.PageSize < 1 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.VirtualAccount{})
	if req.MarketType != "" {
		query = query.Where("market_type = ?", req.MarketType)
	}

	if req.StockSymbol != "" {
		query = query.Where("stock_symbol = ?", req.StockSymbol)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		setErrorResponse("handleAccountList", err, w)
		return
	}

	var accounts []*models.VirtualAccount
	err := query.Order("created_at desc").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&accounts).Error
	if err != nil {
		setErrorResponse("handleAccountList", err, w)
		return
	}

	if err := setResponse(models.NewPageData(accounts, req.Page, req.PageSize, total), w); err != nil {
		setErrorResponse("handleAccountList", err, w)
	}
}

func (s *Server) handleAccountGet(w http.ResponseWriter, r *http.Request) {
	var account models.VirtualAccount
	if err := s.db.First(&account, "account_id = ?", pathID(r)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			setErrorResponse("handleAccountGet", models.NewWebError(404, "account not found", err), w)
			return
		}

		setErrorResponse("handleAccountGet", err, w)
		return
	}

	if err := setResponse(&account, w); err != nil {
		setErrorResponse("handleAccountGet", err, w)
	}
}

type ListSnapshotsRequest struct {
	TaskID   string `schema:"task_id"`
	Page     int    `schema:"page"`
	PageSize int    `schema:"page_size"`
}

// handleAccountSnapshots returns the equity curve points for an account,
// optionally narrowed to one task's run.
func (s *Server) handleAccountSnapshots(w http.ResponseWriter, r *http.Request) {
	var req ListSnapshotsRequest
	if err := decodeQuery(r, &req); err != nil {
		setErrorResponse("handleAccountSnapshots", err, w)
		return
	}

	if req.Page < 1 {
		req.Page = 1
	}

	if req.PageSize < 1 {
		req.PageSize = 500
	}

	query := s.db.Model(&models.AccountSnapshot{}).Where("account_id = ?", pathID(r))
	if req.TaskID != "" {
		query = query.Where("task_id = ?", req.TaskID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		setErrorResponse("handleAccountSnapshots", err, w)
		return
	}

	var snapshots []*models.AccountSnapshot
	err := query.Order("timestamp asc").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&snapshots).Error
	if err != nil {
		setErrorResponse("handleAccountSnapshots", err, w)
		return
	}

	if err := setResponse(models.NewPageData(snapshots, req.Page, req.PageSize, total), w); err != nil {
		setErrorResponse("handleAccountSnapshots", err, w)
	}
}
