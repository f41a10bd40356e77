package router

import (
	"net/http"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

type ListTradesRequest struct {
	Page        int    `schema:"page"`
	PageSize    int    `schema:"page_size"`
	TaskID      string `schema:"task_id"`
	AccountID   string `schema:"account_id"`
	StockSymbol string `schema:"stock_symbol"`
	TradeAction string `schema:"trade_action"`
	SortOrder   string `schema:"sort_order"`
}

func (s *Server) handleTradeList(w http.ResponseWriter, r *http.Request) {
	var req ListTradesRequest
	if err := decodeQuery(r, &req); err != nil {
		setErrorResponse("handleTradeList", err, w)
		return
	}

	if req.Page < 1 {
		req.Page = 1
	}

	if req.PageSize < 1 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.TradeRecord{})
	if req.TaskID != "" {
		query = query.Where("task_id = ?", req.TaskID)
	}

	if req.AccountID != "" {
		query = query.Where("account_id = ?", req.AccountID)
	}

	if req.StockSymbol != "" {
		query = query.Where("stock_symbol = ?", req.StockSymbol)
	}

	if req.TradeAction != "" {
		action := models.TradeAction(req.TradeAction)
		if err := action.Validate(); err != nil {
			setErrorResponse("handleTradeList", models.NewWebError(400, err.Error(), err), w)
			return
		}

		query = query.Where("trade_action = ?", action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		setErrorResponse("handleTradeList", err, w)
		return
	}

	order := "trade_time asc"
	if req.SortOrder == "desc" {
		order = "trade_time desc"
	}

	var trades []*models.TradeRecord
	err := query.Order(order).
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&trades).Error
	if err != nil {
		setErrorResponse("handleTradeList", err, w)
		return
	}

	if err := setResponse(models.NewPageData(trades, req.Page, req.PageSize, total), w); err != nil {
		setErrorResponse("handleTradeList", err, w)
	}
}
