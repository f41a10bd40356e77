package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ruixin88/backtest-console/src/console-api/models"
	"github.com/ruixin88/backtest-console/src/eventpubsub"
)

// keepaliveInterval is how often an idle SSE stream emits a comment
// frame so proxies do not drop the connection.
const keepaliveInterval = 15 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func writeSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

func writeSSEData(w http.ResponseWriter, flusher http.Flusher, payload []byte) {
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}

func writeSSEKeepalive(w http.ResponseWriter, flusher http.Flusher) {
	fmt.Fprint(w, ": keepalive\n\n")
	flusher.Flush()
}

// handleTaskProgress streams one task's progress as server-sent events.
// The stream ends after the terminal event is delivered.
func (s *Server) handleTaskProgress(w http.ResponseWriter, r *http.Request) {
	taskID := pathID(r)

	task, err := s.loadTask(taskID)
	if err != nil {
		setErrorResponse("handleTaskProgress", err, w)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		setErrorResponse("handleTaskProgress", models.NewWebError(500, "streaming unsupported", nil), w)
		return
	}

	events := make(chan *models.TaskProgress, 64)
	callback := func(p *models.TaskProgress) {
		select {
		case events <- p:
		default:
			// A slow reader drops intermediate frames, never blocks the
			// publisher.
		}
	}

	topic := eventpubsub.TaskProgressTopic(taskID)
	if err := s.pubsub.Subscribe(topic, callback); err != nil {
		setErrorResponse("handleTaskProgress", err, w)
		return
	}
	defer s.pubsub.Unsubscribe(topic, callback)

	writeSSEHeaders(w)

	// The current DB state is always the first frame, so a client that
	// connects after completion still sees the terminal status.
	initial := models.NewTaskProgress(task)
	payload, err := json.Marshal(initial)
	if err != nil {
		log.Errorf("handleTaskProgress: failed to marshal initial state: %v", err)
		return
	}

	writeSSEData(w, flusher, payload)
	if initial.Status.IsTerminal() {
		return
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debugf("handleTaskProgress: client disconnected from task %s", taskID)
			return
		case <-keepalive.C:
			writeSSEKeepalive(w, flusher)
		case progress := <-events:
			payload, err := json.Marshal(progress)
			if err != nil {
				log.Errorf("handleTaskProgress: failed to marshal progress: %v", err)
				continue
			}

			writeSSEData(w, flusher, payload)
			if progress.Status.IsTerminal() {
				return
			}
		}
	}
}

// MonitorState is the payload of the monitor stream and websocket.
type MonitorState struct {
	Running        bool              `json:"running"`
	TaskID         *string           `json:"task_id"`
	StockSymbol    string            `json:"stock_symbol,omitempty"`
	Status         models.TaskStatus `json:"status,omitempty"`
	ProcessedItems int               `json:"processed_items"`
	TotalItems     int               `json:"total_items"`
}

func monitorStateFrom(p *models.TaskProgress) *MonitorState {
	state := &MonitorState{
		Running:        p.Status == models.TaskStatusRunning,
		StockSymbol:    p.StockSymbol,
		Status:         p.Status,
		ProcessedItems: p.ProcessedItems,
		TotalItems:     p.TotalItems,
	}

	id := p.TaskID
	state.TaskID = &id
	return state
}

func (s *Server) currentMonitorState() *MonitorState {
	taskID, ok := s.runner.RunningTaskID()
	if !ok {
		return &MonitorState{Running: false}
	}

	task, err := s.loadTask(taskID)
	if err != nil {
		return &MonitorState{Running: false}
	}

	return monitorStateFrom(models.NewTaskProgress(task))
}

// handleTaskMonitor streams a cross-task view of whichever backtest is
// running. The stream does not end on task completion; it reports the
// idle state until the client disconnects.
func (s *Server) handleTaskMonitor(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		setErrorResponse("handleTaskMonitor", models.NewWebError(500, "streaming unsupported", nil), w)
		return
	}

	events := make(chan *models.TaskProgress, 64)
	callback := func(p *models.TaskProgress) {
		select {
		case events <- p:
		default:
		}
	}

	if err := s.pubsub.Subscribe(eventpubsub.TopicTaskProgress, callback); err != nil {
		setErrorResponse("handleTaskMonitor", err, w)
		return
	}
	defer s.pubsub.Unsubscribe(eventpubsub.TopicTaskProgress, callback)

	writeSSEHeaders(w)

	if payload, err := json.Marshal(s.currentMonitorState()); err == nil {
		writeSSEData(w, flusher, payload)
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			writeSSEKeepalive(w, flusher)
		case progress := <-events:
			payload, err := json.Marshal(monitorStateFrom(progress))
			if err != nil {
				log.Errorf("handleTaskMonitor: failed to marshal state: %v", err)
				continue
			}

			writeSSEData(w, flusher, payload)
		}
	}
}

// monitorSink receives monitor states pushed off the progress bus.
type monitorSink interface {
	WriteState(state *MonitorState) error
	Keepalive() error
}

type socketSink struct {
	conn *websocket.Conn
}

func (s *socketSink) WriteState(state *MonitorState) error {
	return s.conn.WriteJSON(state)
}

func (s *socketSink) Keepalive() error {
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

// pushMonitorUpdates subscribes to the global progress topic and writes
// the initial state plus every bus event to the sink until done closes or
// a write fails.
func pushMonitorUpdates(bus *eventpubsub.PubSub, initial *MonitorState, sink monitorSink, done <-chan struct{}, keepaliveEvery time.Duration) error {
	events := make(chan *models.TaskProgress, 64)
	callback := func(p *models.TaskProgress) {
		select {
		case events <- p:
		default:
		}
	}

	if err := bus.Subscribe(eventpubsub.TopicTaskProgress, callback); err != nil {
		return err
	}
	defer bus.Unsubscribe(eventpubsub.TopicTaskProgress, callback)

	if err := sink.WriteState(initial); err != nil {
		return err
	}

	keepalive := time.NewTicker(keepaliveEvery)
	defer keepalive.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-keepalive.C:
			if err := sink.Keepalive(); err != nil {
				return err
			}
		case progress := <-events:
			if err := sink.WriteState(monitorStateFrom(progress)); err != nil {
				return err
			}
		}
	}
}

// handleMonitorSocket is the websocket flavor of the monitor stream for
// UI clients that prefer a duplex channel.
func (s *Server) handleMonitorSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("handleMonitorSocket: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Reads only serve to detect the peer closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := pushMonitorUpdates(s.pubsub, s.currentMonitorState(), &socketSink{conn: conn}, done, keepaliveInterval); err != nil {
		log.Debugf("handleMonitorSocket: push loop ended: %v", err)
	}
}
