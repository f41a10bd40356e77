package stream

import "context"

// Connection is one live task-progress stream. Frames delivers raw text
// frames in arrival order: either heartbeat comments (leading ':') or JSON
// payloads prefixed with "data:". The channel closes when the transport
// ends, normally or not.
type Connection interface {
	Frames() <-chan string
	Close() error
}

// ConnectionFactory opens a push stream scoped to one task. Tests inject
// in-memory factories; production uses NewSSEFactory.
type ConnectionFactory func(ctx context.Context, taskID string) (Connection, error)
