package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

// TaskState is the last pushed progress for one task with an open stream.
type TaskState struct {
	TaskID         string
	Status         models.TaskStatus
	ProcessedItems int
	TotalItems     int
	LastError      string
}

type progressPayload struct {
	TaskID         string  `json:"task_id"`
	Status         string  `json:"status"`
	ProcessedItems int     `json:"processed_items"`
	TotalItems     int     `json:"total_items"`
	ErrorMessage   *string `json:"error_message"`
}

type taskConn struct {
	taskID string
	conn   Connection
}

// Manager owns the registry of live progress streams, one per running
// task. States and connections are created on Open and removed when the
// task reports a non-running status, the transport fails, or the owning
// view tears the manager down via CloseAll. There is no automatic
// reconnect: a lost stream surfaces as a non-running task and the operator
// restarts it explicitly, so backend failures stay visible.
type Manager struct {
	mu       sync.Mutex
	factory  ConnectionFactory
	conns    map[string]*taskConn
	states   map[string]TaskState
	onUpdate func(TaskState)
	disposed bool
}

// NewManager builds a manager around a connection factory. onUpdate, if
// non-nil, is invoked after every state change, including the final one
// that removes a task from the active set.
func NewManager(factory ConnectionFactory, onUpdate func(TaskState)) *Manager {
	return &Manager{
		factory:  factory,
		conns:    map[string]*taskConn{},
		states:   map[string]TaskState{},
		onUpdate: onUpdate,
	}
}

// Open starts streaming progress for a task. An existing connection for
// the same task is force-closed first; a task never has two live streams.
func (m *Manager) Open(ctx context.Context, taskID string) error {
	m.mu.Lock()

	if m.disposed {
		m.mu.Unlock()
		return fmt.Errorf("stream: manager is disposed")
	}

	if prev, ok := m.conns[taskID]; ok {
		delete(m.conns, taskID)
		delete(m.states, taskID)
		prev.conn.Close()
		log.Warnf("stream: force-closed previous connection for task %s", taskID)
	}

	m.mu.Unlock()

	conn, err := m.factory(ctx, taskID)
	if err != nil {
		return fmt.Errorf("stream: failed to open connection for task %s: %w", taskID, err)
	}

	tc := &taskConn{taskID: taskID, conn: conn}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		conn.Close()
		return fmt.Errorf("stream: manager is disposed")
	}

	// A concurrent Open for the same task may have registered between the
	// two critical sections; the loser must not leak its connection.
	if racer, ok := m.conns[taskID]; ok {
		racer.conn.Close()
		log.Warnf("stream: force-closed racing connection for task %s", taskID)
	}

	m.conns[taskID] = tc
	m.states[taskID] = TaskState{TaskID: taskID, Status: models.TaskStatusRunning}
	m.mu.Unlock()

	go m.readLoop(tc)

	return nil
}

func (m *Manager) readLoop(tc *taskConn) {
	for frame := range tc.conn.Frames() {
		line := strings.TrimSpace(frame)
		if line == "" || strings.HasPrefix(line, ":") {
			// keepalive comment
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		var dto progressPayload
		if err := json.Unmarshal([]byte(payload), &dto); err != nil {
			log.Warnf("stream: ignoring malformed frame for task %s: %v", tc.taskID, err)
			continue
		}

		if dto.Status == "" {
			// Empty payload: the server no longer knows the task.
			m.cleanup(tc, TaskState{TaskID: tc.taskID, Status: models.TaskStatusFailed, LastError: "task not found"})
			return
		}

		state := TaskState{
			TaskID:         tc.taskID,
			Status:         models.TaskStatus(dto.Status),
			ProcessedItems: dto.ProcessedItems,
			TotalItems:     dto.TotalItems,
		}

		if dto.ErrorMessage != nil {
			state.LastError = *dto.ErrorMessage
		}

		if state.Status == models.TaskStatusRunning {
			if !m.upsert(tc, state) {
				// Stale handle: another connection owns this task now.
				return
			}

			continue
		}

		m.cleanup(tc, state)
		return
	}

	// Transport ended without a terminal status: same cleanup, no retry.
	m.cleanup(tc, TaskState{TaskID: tc.taskID, Status: models.TaskStatusFailed, LastError: "stream closed unexpectedly"})
}

// upsert applies a running-state update if tc is still the registered
// connection for its task.
func (m *Manager) upsert(tc *taskConn, state TaskState) bool {
	m.mu.Lock()
	if m.conns[tc.taskID] != tc {
		m.mu.Unlock()
		return false
	}

	m.states[tc.taskID] = state
	m.mu.Unlock()

	m.notify(state)
	return true
}

// cleanup deregisters tc and closes its transport. Events arriving on a
// stale handle after deregistration are never applied.
func (m *Manager) cleanup(tc *taskConn, state TaskState) {
	m.mu.Lock()
	if m.conns[tc.taskID] != tc {
		m.mu.Unlock()
		tc.conn.Close()
		return
	}

	delete(m.conns, tc.taskID)
	delete(m.states, tc.taskID)
	m.mu.Unlock()

	tc.conn.Close()
	m.notify(state)
}

func (m *Manager) notify(state TaskState) {
	if m.onUpdate != nil {
		m.onUpdate(state)
	}
}

// Close tears down the stream for one task regardless of its last
// reported status. Used on user-initiated pause/stop.
func (m *Manager) Close(taskID string) {
	m.mu.Lock()
	tc, ok := m.conns[taskID]
	if ok {
		delete(m.conns, taskID)
	}
	delete(m.states, taskID)
	m.mu.Unlock()

	if ok {
		tc.conn.Close()
	}
}

// CloseAll closes every registered connection and empties the active
// state map. It runs on every teardown path of the owning view so a
// navigation away can never leak background streams.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	conns := make([]*taskConn, 0, len(m.conns))
	for _, tc := range m.conns {
		conns = append(conns, tc)
	}
	m.conns = map[string]*taskConn{}
	m.states = map[string]TaskState{}
	m.disposed = true
	m.mu.Unlock()

	for _, tc := range conns {
		tc.conn.Close()
	}
}

// ActiveStates returns a snapshot of the active registry.
func (m *Manager) ActiveStates() map[string]TaskState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]TaskState, len(m.states))
	for k, v := range m.states {
		out[k] = v
	}

	return out
}

// ActiveCount returns the number of live connections.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.conns)
}
