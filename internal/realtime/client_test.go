package realtime

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

func TestWriteEventFramesNamedEvent(t *testing.T) {
	var buf bytes.Buffer
	msg := SSEMessage{Channel: "user:1", Event: SSEEventPieceStatusChanged, Data: map[string]any{"status": "in_progress"}}
	if err := writeEvent(&buf, msg); err != nil {
		t.Fatalf("writeEvent: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "event: PieceStatusChanged\ndata: {") {
		t.Fatalf("unexpected frame: %q", out)
	}
	if !strings.HasSuffix(out, "}\n\n") || !strings.Contains(out, `"status":"in_progress"`) {
		t.Fatalf("unexpected frame: %q", out)
	}
}

func TestOfferDropsWhenBufferFull(t *testing.T) {
	log, _ := logger.New("test")
	c := newSSEClient(uuid.New(), log)
	for i := 0; i < outboundBuffer; i++ {
		if !c.offer(SSEMessage{Event: SSEEventProjectUpdated}) {
			t.Fatalf("offer %d rejected before buffer was full", i)
		}
	}
	if c.offer(SSEMessage{Event: SSEEventProjectUpdated}) {
		t.Fatalf("offer should fail once the buffer is full")
	}
}
