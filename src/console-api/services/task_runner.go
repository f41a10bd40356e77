package services

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ruixin88/backtest-console/src/console-api/models"
	"github.com/ruixin88/backtest-console/src/eventpubsub"
)

// statusPollInterval is how often a paused run re-checks the DB for a
// resume or stop request.
const statusPollInterval = 200 * time.Millisecond

// TaskRunner executes backtest tasks in the background. One goroutine
// per running task; pause, resume and stop are signalled through the
// task's status column so they survive the API process.
type TaskRunner struct {
	db       *gorm.DB
	klines   *KlineStore
	trends   *TrendStore
	pubsub   *eventpubsub.PubSub
	strategy Strategy

	mu      sync.Mutex
	running map[string]struct{}
}

func NewTaskRunner(db *gorm.DB, klines *KlineStore, trends *TrendStore, pubsub *eventpubsub.PubSub) *TaskRunner {
	return &TaskRunner{
		db:       db,
		klines:   klines,
		trends:   trends,
		pubsub:   pubsub,
		strategy: SMACrossStrategy{},
		running:  make(map[string]struct{}),
	}
}

// IsRunning reports whether this process owns a live goroutine for the
// task.
func (r *TaskRunner) IsRunning(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.running[taskID]
	return ok
}

// RunningTaskID returns the id of any currently running task, if one
// exists. The console only ever runs one backtest at a time.
func (r *TaskRunner) RunningTaskID() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.running {
		return id, true
	}

	return "", false
}

// Start transitions the task to RUNNING and launches the worker
// goroutine. Starting a PAUSED task resumes it from its checkpoint.
func (r *TaskRunner) Start(taskID string) error {
	var task models.Task
	if err := r.db.First(&task, "task_id = ?", taskID).Error; err != nil {
		return fmt.Errorf("TaskRunner.Start: failed to load task %s: %w", taskID, err)
	}

	if !task.CanStart() {
		return fmt.Errorf("TaskRunner.Start: task %s is already %s", taskID, task.Status)
	}

	r.mu.Lock()
	if _, ok := r.running[taskID]; ok {
		r.mu.Unlock()
		return fmt.Errorf("TaskRunner.Start: task %s already has a worker", taskID)
	}
	r.running[taskID] = struct{}{}
	r.mu.Unlock()

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": models.TaskStatusRunning}
	if task.Status == models.TaskStatusPaused {
		updates["resumed_at"] = now
	} else {
		updates["started_at"] = now
		updates["processed_items"] = 0
		updates["error_message"] = nil
	}

	if err := r.db.Model(&task).Updates(updates).Error; err != nil {
		r.release(taskID)
		return fmt.Errorf("TaskRunner.Start: failed to mark task running: %w", err)
	}

	task.Status = models.TaskStatusRunning
	if task.StartedAt == nil {
		task.StartedAt = &now
	}

	go r.run(task)
	return nil
}

// Pause requests a pause. The worker observes it at the next bar.
func (r *TaskRunner) Pause(taskID string) error {
	return r.transition(taskID, models.TaskStatusRunning, models.TaskStatusPaused, "paused_at")
}

// Resume lifts a pause. A live worker picks the new status up on its
// next poll; after a process restart a fresh worker is launched from
// the checkpoint instead.
func (r *TaskRunner) Resume(taskID string) error {
	if r.IsRunning(taskID) {
		return r.transition(taskID, models.TaskStatusPaused, models.TaskStatusRunning, "resumed_at")
	}

	return r.Start(taskID)
}

// Stop cancels a pending, running or paused task.
func (r *TaskRunner) Stop(taskID string) error {
	var task models.Task
	if err := r.db.First(&task, "task_id = ?", taskID).Error; err != nil {
		return fmt.Errorf("TaskRunner.Stop: failed to load task %s: %w", taskID, err)
	}

	if !task.CanStop() {
		return fmt.Errorf("TaskRunner.Stop: task %s is %s and cannot be stopped", taskID, task.Status)
	}

	now := time.Now().UTC()
	err := r.db.Model(&task).Updates(map[string]interface{}{
		"status":       models.TaskStatusCancelled,
		"completed_at": now,
	}).Error
	if err != nil {
		return fmt.Errorf("TaskRunner.Stop: failed to cancel task: %w", err)
	}

	// A PENDING or PAUSED task with no live worker still needs its
	// terminal event on the stream.
	if !r.IsRunning(taskID) {
		task.Status = models.TaskStatusCancelled
		task.CompletedAt = &now
		r.publish(&task)
	}

	return nil
}

func (r *TaskRunner) transition(taskID string, from, to models.TaskStatus, stampColumn string) error {
	res := r.db.Model(&models.Task{}).
		Where("task_id = ? AND status = ?", taskID, from).
		Updates(map[string]interface{}{"status": to, stampColumn: time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("TaskRunner: failed to move task %s to %s: %w", taskID, to, res.Error)
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("TaskRunner: task %s is not %s", taskID, from)
	}

	return nil
}

func (r *TaskRunner) release(taskID string) {
	r.mu.Lock()
	delete(r.running, taskID)
	r.mu.Unlock()
}

func (r *TaskRunner) publish(task *models.Task) {
	progress := models.NewTaskProgress(task)
	r.pubsub.Publish(eventpubsub.TaskProgressTopic(task.TaskID), progress)
	r.pubsub.Publish(eventpubsub.TopicTaskProgress, progress)
}

// run is the worker body. Any panic fails the task instead of the
// process.
func (r *TaskRunner) run(task models.Task) {
	defer r.release(task.TaskID)
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("TaskRunner: task %s panicked: %v", task.TaskID, rec)
			r.fail(&task, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	log.Infof("TaskRunner: task %s started for %s [%s]", task.TaskID, task.StockSymbol, task.TimeGranularity)

	if err := r.execute(&task); err != nil {
		log.Errorf("TaskRunner: task %s failed: %v", task.TaskID, err)
		r.fail(&task, err.Error())
	}
}

func (r *TaskRunner) fail(task *models.Task, msg string) {
	now := time.Now().UTC()
	task.Status = models.TaskStatusFailed
	task.ErrorMessage = &msg
	task.CompletedAt = &now

	err := r.db.Model(task).Updates(map[string]interface{}{
		"status":        models.TaskStatusFailed,
		"error_message": msg,
		"completed_at":  now,
	}).Error
	if err != nil {
		log.Errorf("TaskRunner: failed to persist failure for task %s: %v", task.TaskID, err)
	}

	r.publish(task)
}

// execute runs the five phases: load data, reset state, iterate bars,
// finalize, persist stats.
func (r *TaskRunner) execute(task *models.Task) error {
	// Phase 1: load market data and trend labels.
	bars, err := r.klines.Query(task.StockSymbol, task.TimeGranularity, &task.StartDate, &task.EndDate)
	if err != nil {
		return fmt.Errorf("load market data: %w", err)
	}

	if len(bars) == 0 {
		return fmt.Errorf("no %s market data for %s between %s and %s", task.TimeGranularity, task.StockSymbol, task.StartDate.Format("2006-01-02"), task.EndDate.Format("2006-01-02"))
	}

	trendByDay, err := r.loadTrends(task.StockSymbol)
	if err != nil {
		return fmt.Errorf("load trend data: %w", err)
	}

	// Phase 2: reset the account and clear artifacts of a previous run,
	// unless we are resuming from a pause checkpoint.
	var account models.VirtualAccount
	if err := r.db.First(&account, "account_id = ?", task.AccountID).Error; err != nil {
		return fmt.Errorf("load account %s: %w", task.AccountID, err)
	}

	startIndex := 0
	if task.ResumedAt != nil && task.ProcessedItems > 0 && task.ProcessedItems < len(bars) {
		startIndex = task.ProcessedItems
	} else {
		account.Reset()
		if err := r.db.Save(&account).Error; err != nil {
			return fmt.Errorf("reset account: %w", err)
		}

		if err := r.clearArtifacts(task.TaskID); err != nil {
			return err
		}
	}

	task.TotalItems = len(bars)
	task.ProcessedItems = startIndex
	if err := r.db.Model(task).Updates(map[string]interface{}{
		"total_items":     task.TotalItems,
		"processed_items": task.ProcessedItems,
	}).Error; err != nil {
		return fmt.Errorf("persist item counts: %w", err)
	}

	r.publish(task)

	// Phase 3: walk the bars.
	executor := NewTradeExecutor(&account)
	interval := task.DecisionInterval
	if interval < 1 {
		interval = 1
	}

	for i := startIndex; i < len(bars); i++ {
		proceed, err := r.waitWhilePaused(task)
		if err != nil {
			return err
		}

		if !proceed {
			log.Infof("TaskRunner: task %s cancelled at bar %d/%d", task.TaskID, i, len(bars))
			return nil
		}

		bar := bars[i]
		if !bar.IsPlottable() {
			log.Warnf("TaskRunner: task %s skipping non-finite bar at %s", task.TaskID, bar.Timestamp)
			task.ProcessedItems = i + 1
			continue
		}

		if (i-startIndex)%interval == 0 {
			if err := r.step(task, executor, &account, bars, i, trendByDay); err != nil {
				return err
			}
		} else {
			executor.MarkToMarket(bar.Close)
		}

		snap := executor.Snapshot(task.TaskID, bar.Timestamp)
		if err := r.db.Create(snap).Error; err != nil {
			return fmt.Errorf("persist snapshot: %w", err)
		}

		task.ProcessedItems = i + 1
		if err := r.db.Model(task).Update("processed_items", task.ProcessedItems).Error; err != nil {
			return fmt.Errorf("persist progress: %w", err)
		}

		r.publish(task)
	}

	// Phase 4: close any open position at the final bar.
	last := bars[len(bars)-1]
	if err := r.closeOut(task, executor, &account, last); err != nil {
		return err
	}

	if err := r.db.Save(&account).Error; err != nil {
		return fmt.Errorf("persist final account: %w", err)
	}

	// Phase 5: compute stats and mark completed.
	var snapshots []*models.AccountSnapshot
	if err := r.db.Where("task_id = ?", task.TaskID).Order("timestamp asc").Find(&snapshots).Error; err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}

	var trades []*models.TradeRecord
	if err := r.db.Where("task_id = ?", task.TaskID).Order("trade_time asc").Find(&trades).Error; err != nil {
		return fmt.Errorf("load trades: %w", err)
	}

	statsBlock := ComputeBacktestStats(&account, snapshots, trades)

	now := time.Now().UTC()
	task.Status = models.TaskStatusCompleted
	task.Stats = statsBlock
	task.CompletedAt = &now

	err = r.db.Model(task).Updates(map[string]interface{}{
		"status":       models.TaskStatusCompleted,
		"stats":        statsBlock,
		"completed_at": now,
	}).Error
	if err != nil {
		return fmt.Errorf("persist completion: %w", err)
	}

	r.publish(task)
	log.Infof("TaskRunner: task %s completed, return %.2f%%, %d trades", task.TaskID, statsBlock.TotalReturnPercent, statsBlock.TotalTrades)
	return nil
}

func (r *TaskRunner) loadTrends(symbol string) (map[string]models.TrendClassification, error) {
	labels, err := r.trends.Read(symbol)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]models.TrendClassification, len(labels))
	for _, label := range labels {
		byDay[label.Date.Format("2006-01-02")] = label.Classification
	}

	return byDay, nil
}

func (r *TaskRunner) clearArtifacts(taskID string) error {
	if err := r.db.Where("task_id = ?", taskID).Delete(&models.AccountSnapshot{}).Error; err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}

	if err := r.db.Where("task_id = ?", taskID).Delete(&models.TradeRecord{}).Error; err != nil {
		return fmt.Errorf("clear trades: %w", err)
	}

	if err := r.db.Where("task_id = ?", taskID).Delete(&models.LocalDecision{}).Error; err != nil {
		return fmt.Errorf("clear decisions: %w", err)
	}

	return nil
}

// waitWhilePaused blocks while the task status is PAUSED. Returns false
// when the task was cancelled.
func (r *TaskRunner) waitWhilePaused(task *models.Task) (bool, error) {
	for {
		var current models.Task
		if err := r.db.Select("status").First(&current, "task_id = ?", task.TaskID).Error; err != nil {
			return false, fmt.Errorf("poll status: %w", err)
		}

		switch current.Status {
		case models.TaskStatusRunning:
			task.Status = models.TaskStatusRunning
			return true, nil
		case models.TaskStatusPaused:
			if task.Status != models.TaskStatusPaused {
				task.Status = models.TaskStatusPaused
				r.publish(task)
				log.Infof("TaskRunner: task %s paused at %d/%d", task.TaskID, task.ProcessedItems, task.TotalItems)
			}

			time.Sleep(statusPollInterval)
		default:
			task.Status = current.Status
			r.publish(task)
			return false, nil
		}
	}
}

func (r *TaskRunner) step(task *models.Task, executor *TradeExecutor, account *models.VirtualAccount, bars []*models.KlineBar, i int, trendByDay map[string]models.TrendClassification) error {
	bar := bars[i]
	trend := models.TrendRanging
	if t, ok := trendByDay[bar.Timestamp.UTC().Format("2006-01-02")]; ok {
		trend = t
	}

	started := time.Now()
	action, qty, reasoning := r.strategy.Decide(bars, i, account, trend)
	decision := NewDecision(task.TaskID, account, action, reasoning, bar.Timestamp, time.Since(started))
	if err := r.db.Create(decision).Error; err != nil {
		return fmt.Errorf("persist decision: %w", err)
	}

	trade, err := executor.Execute(action, qty, bar.Close, bar.Timestamp, task.TaskID, &decision.DecisionID)
	if err != nil {
		// A rejected order is a strategy outcome, not a run failure.
		log.Warnf("TaskRunner: task %s order rejected at %s: %v", task.TaskID, bar.Timestamp, err)
		executor.MarkToMarket(bar.Close)
		return nil
	}

	if trade != nil {
		if err := r.db.Create(trade).Error; err != nil {
			return fmt.Errorf("persist trade: %w", err)
		}
	}

	return nil
}

// closeOut flattens any open position at the last bar's close so final
// equity is all cash.
func (r *TaskRunner) closeOut(task *models.Task, executor *TradeExecutor, account *models.VirtualAccount, last *models.KlineBar) error {
	if account.StockQuantity <= 0 {
		executor.MarkToMarket(last.Close)
		return nil
	}

	action := models.TradeActionSell
	if account.PositionSide == models.PositionSideShort {
		action = models.TradeActionCoverShort
	}

	trade, err := executor.Execute(action, account.StockQuantity, last.Close, last.Timestamp, task.TaskID, nil)
	if err != nil {
		return fmt.Errorf("close final position: %w", err)
	}

	if trade != nil {
		if err := r.db.Create(trade).Error; err != nil {
			return fmt.Errorf("persist closing trade: %w", err)
		}
	}

	return nil
}
