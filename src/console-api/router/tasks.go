package router

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ruixin88/backtest-console/src/console-api/models"
	"github.com/ruixin88/backtest-console/src/utils"
)

type CreateTaskRequest struct {
	AccountID        string  `json:"account_id"`
	StockSymbol      string  `json:"stock_symbol"`
	MarketType       string  `json:"market_type"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	TimeGranularity  string  `json:"time_granularity"`
	DecisionInterval int     `json:"decision_interval"`
	UserPromptID     *string `json:"user_prompt_id"`
	AIConfigID       *string `json:"ai_config_id"`
}

type ListTasksRequest struct {
	Page        int    `schema:"page"`
	PageSize    int    `schema:"page_size"`
	Status      string `schema:"status"`
	StockSymbol string `schema:"stock_symbol"`
	AccountID   string `schema:"account_id"`
	StartDate   string `schema:"start_date"`
	EndDate     string `schema:"end_date"`
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		setErrorResponse("handleTaskCreate", err, w)
		return
	}

	task, err := s.createTask(&req)
	if err != nil {
		setErrorResponse("handleTaskCreate", err, w)
		return
	}

	if err := setResponse(task, w); err != nil {
		setErrorResponse("handleTaskCreate", err, w)
	}
}

func (s *Server) createTask(req *CreateTaskRequest) (*models.Task, error) {
	if req.AccountID == "" || req.StockSymbol == "" {
		return nil, models.NewWebError(400, "account_id and stock_symbol are required", nil)
	}

	granularity := models.TimeGranularity(req.TimeGranularity)
	if req.TimeGranularity == "" {
		granularity = models.TimeGranularityDaily
	}

	if err := granularity.Validate(); err != nil {
		return nil, models.NewWebError(400, err.Error(), err)
	}

	startDate, err := models.ParseFlexibleTime(req.StartDate)
	if err != nil {
		return nil, models.NewWebError(400, "invalid start_date", err)
	}

	endDate, err := models.ParseFlexibleTime(req.EndDate)
	if err != nil {
		return nil, models.NewWebError(400, "invalid end_date", err)
	}

	if endDate.Before(startDate) {
		return nil, models.NewWebError(400, "end_date is before start_date", nil)
	}

	var account models.VirtualAccount
	if err := s.db.First(&account, "account_id = ?", req.AccountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewWebError(404, "account not found", err)
		}

		return nil, models.NewWebError(500, "failed to load account", err)
	}

	interval := req.DecisionInterval
	if interval < 1 {
		interval = 1
	}

	task := &models.Task{
		TaskID:           uuid.NewString(),
		AccountID:        req.AccountID,
		StockSymbol:      req.StockSymbol,
		MarketType:       req.MarketType,
		UserPromptID:     req.UserPromptID,
		AIConfigID:       req.AIConfigID,
		StartDate:        startDate,
		EndDate:          endDate,
		Status:           models.TaskStatusPending,
		TimeGranularity:  granularity,
		DecisionInterval: interval,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.db.Create(task).Error; err != nil {
		return nil, models.NewWebError(500, "failed to create task", err)
	}

	return task, nil
}

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	var req ListTasksRequest
	if err := decodeQuery(r, &req); err != nil {
		setErrorResponse("handleTaskList", err, w)
		return
	}

	if req.Page < 1 {
		req.Page = 1
	}

	if req.PageSize < 1 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.Task{})
	if req.Status != "" {
		status := models.TaskStatus(req.Status)
		if err := status.Validate(); err != nil {
			setErrorResponse("handleTaskList", models.NewWebError(400, err.Error(), err), w)
			return
		}

		query = query.Where("status = ?", status)
	}

	if req.StockSymbol != "" {
		query = query.Where("stock_symbol = ?", req.StockSymbol)
	}

	if req.AccountID != "" {
		query = query.Where("account_id = ?", req.AccountID)
	}

	if req.StartDate != "" || req.EndDate != "" {
		from, to, err := utils.ParseDateRange(req.StartDate, req.EndDate)
		if err != nil {
			setErrorResponse("handleTaskList", models.NewWebError(400, err.Error(), err), w)
			return
		}

		if from != nil {
			query = query.Where("created_at >= ?", *from)
		}

		if to != nil {
			query = query.Where("created_at < ?", to.AddDate(0, 0, 1))
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		setErrorResponse("handleTaskList", err, w)
		return
	}

	var tasks []*models.Task
	err := query.Order("created_at desc").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&tasks).Error
	if err != nil {
		setErrorResponse("handleTaskList", err, w)
		return
	}

	if err := setResponse(models.NewPageData(tasks, req.Page, req.PageSize, total), w); err != nil {
		setErrorResponse("handleTaskList", err, w)
	}
}

func (s *Server) loadTask(id string) (*models.Task, error) {
	var task models.Task
	if err := s.db.First(&task, "task_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewWebError(404, "task not found", err)
		}

		return nil, models.NewWebError(500, "failed to load task", err)
	}

	return &task, nil
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	task, err := s.loadTask(pathID(r))
	if err != nil {
		setErrorResponse("handleTaskGet", err, w)
		return
	}

	if err := setResponse(task, w); err != nil {
		setErrorResponse("handleTaskGet", err, w)
	}
}

func (s *Server) handleTaskStart(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if _, err := s.loadTask(id); err != nil {
		setErrorResponse("handleTaskStart", err, w)
		return
	}

	if runningID, ok := s.runner.RunningTaskID(); ok && runningID != id {
		setErrorResponse("handleTaskStart", models.NewWebError(409, "another task is already running", nil), w)
		return
	}

	if err := s.runner.Start(id); err != nil {
		setErrorResponse("handleTaskStart", models.NewWebError(409, err.Error(), err), w)
		return
	}

	if err := setResponse(map[string]string{"task_id": id, "status": string(models.TaskStatusRunning)}, w); err != nil {
		setErrorResponse("handleTaskStart", err, w)
	}
}

func (s *Server) handleTaskStop(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if _, err := s.loadTask(id); err != nil {
		setErrorResponse("handleTaskStop", err, w)
		return
	}

	if err := s.runner.Stop(id); err != nil {
		setErrorResponse("handleTaskStop", models.NewWebError(409, err.Error(), err), w)
		return
	}

	if err := setResponse(map[string]string{"task_id": id, "status": string(models.TaskStatusCancelled)}, w); err != nil {
		setErrorResponse("handleTaskStop", err, w)
	}
}

func (s *Server) handleTaskPause(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if err := s.runner.Pause(id); err != nil {
		setErrorResponse("handleTaskPause", models.NewWebError(409, err.Error(), err), w)
		return
	}

	if err := setResponse(map[string]string{"task_id": id, "status": string(models.TaskStatusPaused)}, w); err != nil {
		setErrorResponse("handleTaskPause", err, w)
	}
}

func (s *Server) handleTaskResume(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	task, err := s.loadTask(id)
	if err != nil {
		setErrorResponse("handleTaskResume", err, w)
		return
	}

	if task.Status != models.TaskStatusPaused {
		setErrorResponse("handleTaskResume", models.NewWebError(409, "task is not paused", nil), w)
		return
	}

	if err := s.runner.Resume(id); err != nil {
		setErrorResponse("handleTaskResume", models.NewWebError(409, err.Error(), err), w)
		return
	}

	if err := setResponse(map[string]string{"task_id": id, "status": string(models.TaskStatusRunning)}, w); err != nil {
		setErrorResponse("handleTaskResume", err, w)
	}
}

// handleTaskDelete removes a task and everything it produced. Running
// tasks must be stopped first.
func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	task, err := s.loadTask(id)
	if err != nil {
		setErrorResponse("handleTaskDelete", err, w)
		return
	}

	if task.Status == models.TaskStatusRunning || s.runner.IsRunning(id) {
		setErrorResponse("handleTaskDelete", models.NewWebError(409, "task is running, stop it first", nil), w)
		return
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.AccountSnapshot{}, &models.TradeRecord{}, &models.LocalDecision{}} {
			if err := tx.Where("task_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(task).Error; err != nil {
			return err
		}

		// The virtual account goes with its last task.
		var remaining int64
		if err := tx.Model(&models.Task{}).Where("account_id = ?", task.AccountID).Count(&remaining).Error; err != nil {
			return err
		}

		if remaining == 0 {
			return tx.Where("account_id = ?", task.AccountID).Delete(&models.VirtualAccount{}).Error
		}

		return nil
	})
	if err != nil {
		setErrorResponse("handleTaskDelete", models.NewWebError(500, "failed to delete task", err), w)
		return
	}

	if err := setResponse(map[string]string{"task_id": id}, w); err != nil {
		setErrorResponse("handleTaskDelete", err, w)
	}
}
