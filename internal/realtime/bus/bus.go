package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yungbote/puzzleplan-backend/internal/realtime"
)

// Bus fans realtime messages out across server instances. Every instance
// runs one forwarder that feeds its local hub.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

func encode(msg realtime.SSEMessage) ([]byte, error) {
	if msg.Channel == "" || msg.Event == "" {
		return nil, fmt.Errorf("realtime message needs channel and event")
	}
	return json.Marshal(msg)
}

func decode(payload string) (realtime.SSEMessage, error) {
	var msg realtime.SSEMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return msg, err
	}
	if msg.Channel == "" || msg.Event == "" {
		return msg, fmt.Errorf("realtime message missing channel or event")
	}
	return msg, nil
}
