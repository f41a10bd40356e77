package models

// TaskProgress is the payload pushed over the task progress and monitor
// streams. Field names are part of the wire contract with the console UI.
type TaskProgress struct {
	TaskID         string     `json:"task_id"`
	StockSymbol    string     `json:"stock_symbol,omitempty"`
	Status         TaskStatus `json:"status"`
	ProcessedItems int        `json:"processed_items"`
	TotalItems     int        `json:"total_items"`
	StartedAt      *string    `json:"started_at,omitempty"`
	CompletedAt    *string    `json:"completed_at,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
}

func NewTaskProgress(t *Task) *TaskProgress {
	p := &TaskProgress{
		TaskID:         t.TaskID,
		StockSymbol:    t.StockSymbol,
		Status:         t.Status,
		ProcessedItems: t.ProcessedItems,
		TotalItems:     t.TotalItems,
		ErrorMessage:   t.ErrorMessage,
	}

	if t.StartedAt != nil {
		s := t.StartedAt.UTC().Format("2006-01-02T15:04:05Z")
		p.StartedAt = &s
	}

	if t.CompletedAt != nil {
		s := t.CompletedAt.UTC().Format("2006-01-02T15:04:05Z")
		p.CompletedAt = &s
	}

	return p
}
