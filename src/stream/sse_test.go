package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func collectFrames(t *testing.T, conn Connection, n int) []string {
	t.Helper()

	frames := make([]string, 0, n)
	timeout := time.After(2 * time.Second)
	for len(frames) < n {
		select {
		case frame, ok := <-conn.Frames():
			if !ok {
				t.Fatalf("stream closed after %d frames, want %d", len(frames), n)
			}

			frames = append(frames, frame)
		case <-timeout:
			t.Fatalf("timed out after %d frames, want %d", len(frames), n)
		}
	}

	return frames
}

func TestSSEFactoryStreamsFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/task/progress/task-1", r.URL.Path)
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "data: {\"task_id\":\"task-1\",\"status\":\"RUNNING\",\"processed_items\":1,\"total_items\":2}\n\n")
		fmt.Fprint(w, "data: {\"task_id\":\"task-1\",\"status\":\"COMPLETED\",\"processed_items\":2,\"total_items\":2}\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	factory := NewSSEFactory(srv.URL, srv.Client())
	conn, err := factory(context.Background(), "task-1")
	require.NoError(t, err)
	defer conn.Close()

	frames := collectFrames(t, conn, 3)
	require.Equal(t, ": keepalive", frames[0])
	require.Contains(t, frames[1], `"status":"RUNNING"`)
	require.Contains(t, frames[2], `"status":"COMPLETED"`)
}

func TestSSEFactoryChannelClosesWhenServerEnds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"task_id\":\"t\",\"status\":\"COMPLETED\",\"processed_items\":1,\"total_items\":1}\n\n")
	}))
	defer srv.Close()

	factory := NewSSEFactory(srv.URL, srv.Client())
	conn, err := factory(context.Background(), "t")
	require.NoError(t, err)

	collectFrames(t, conn, 1)

	select {
	case _, ok := <-conn.Frames():
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close")
	}
}

func TestSSEFactoryNon200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	factory := NewSSEFactory(srv.URL, srv.Client())
	_, err := factory(context.Background(), "missing")
	require.Error(t, err)
}

func TestSSEFactoryWithManagerEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"task_id\":\"task-9\",\"status\":\"RUNNING\",\"processed_items\":3,\"total_items\":9}\n\n")
		fmt.Fprint(w, "data: {\"task_id\":\"task-9\",\"status\":\"COMPLETED\",\"processed_items\":9,\"total_items\":9}\n\n")
	}))
	defer srv.Close()

	rec := &recorder{}
	m := NewManager(NewSSEFactory(srv.URL, srv.Client()), rec.record)

	require.NoError(t, m.Open(context.Background(), "task-9"))

	waitForCount(t, m, 0)
	rec.waitFor(t, func(states []TaskState) bool {
		if len(states) < 2 {
			return false
		}

		return states[0].ProcessedItems == 3 && states[len(states)-1].Status == "COMPLETED"
	})
}
