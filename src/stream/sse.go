package stream

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"
)

// sseConnection reads a text/event-stream response line by line and hands
// each non-blank line to the manager unparsed.
type sseConnection struct {
	frames    chan string
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (c *sseConnection) Frames() <-chan string {
	return c.frames
}

func (c *sseConnection) Close() error {
	c.closeOnce.Do(c.cancel)
	return nil
}

// NewSSEFactory builds connections against the console API's
// /task/progress/{id} endpoint. A nil client falls back to
// http.DefaultClient.
func NewSSEFactory(baseURL string, client *http.Client) ConnectionFactory {
	if client == nil {
		client = http.DefaultClient
	}

	return func(ctx context.Context, taskID string) (Connection, error) {
		reqCtx, cancel := context.WithCancel(ctx)

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, fmt.Sprintf("%s/task/progress/%s", baseURL, taskID), nil)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("sse: failed to create request: %w", err)
		}

		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := client.Do(req)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("sse: failed to connect for task %s: %w", taskID, err)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			cancel()
			return nil, fmt.Errorf("sse: unexpected status %d for task %s", resp.StatusCode, taskID)
		}

		conn := &sseConnection{
			frames: make(chan string),
			cancel: cancel,
		}

		go func() {
			defer close(conn.frames)
			defer resp.Body.Close()

			scanner := bufio.NewScanner(resp.Body)
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					continue
				}

				select {
				case conn.frames <- line:
				case <-reqCtx.Done():
					return
				}
			}

			if err := scanner.Err(); err != nil && reqCtx.Err() == nil {
				log.Warnf("sse: stream for task %s ended with error: %v", taskID, err)
			}
		}()

		return conn, nil
	}
}
