package models

import "fmt"

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusRunning   TaskStatus = "RUNNING"
	TaskStatusPaused    TaskStatus = "PAUSED"
	TaskStatusCompleted TaskStatus = "COMPLETED"
	TaskStatusFailed    TaskStatus = "FAILED"
	TaskStatusCancelled TaskStatus = "CANCELLED"
)

func (s TaskStatus) Validate() error {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusPaused, TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return nil
	default:
		return fmt.Errorf("invalid task status: %s", s)
	}
}

// IsTerminal reports whether no further progress events are expected.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}
