package realtime

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

// Messages beyond this many undelivered ones are dropped for that client.
const outboundBuffer = 32

// SSEClient is one open /sse/stream connection. A user with several tabs
// open has one client per tab.
type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	Logger   *logger.Logger
}

func newSSEClient(userID uuid.UUID, log *logger.Logger) *SSEClient {
	id := uuid.New()
	return &SSEClient{
		ID:       id,
		UserID:   userID,
		Channels: make(map[string]bool),
		Outbound: make(chan SSEMessage, outboundBuffer),
		done:     make(chan struct{}),
		Logger:   log.With("client_id", id.String(), "user_id", userID.String()),
	}
}

// offer queues msg without blocking and reports whether it was accepted.
func (c *SSEClient) offer(msg SSEMessage) bool {
	select {
	case c.Outbound <- msg:
		return true
	default:
		return false
	}
}

func (c *SSEClient) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// writeEvent frames msg as a named SSE event whose data line is the whole
// message as JSON.
func writeEvent(w io.Writer, msg SSEMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Event, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, raw)
	return err
}
