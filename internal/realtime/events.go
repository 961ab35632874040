package realtime

type SSEEvent string

const (
	SSEEventProjectCreated      SSEEvent = "ProjectCreated"
	SSEEventProjectUpdated      SSEEvent = "ProjectUpdated"
	SSEEventProjectDeleted      SSEEvent = "ProjectDeleted"
	SSEEventPieceStatusChanged  SSEEvent = "PieceStatusChanged"
	SSEEventPieceContentUpdated SSEEvent = "PieceContentUpdated"
)

// SSEMessage is the unit routed by the hub and carried on the bus. Channel
// is the owning user's UserChannel.
type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the per-user channel every SSE session subscribes to.
func UserChannel(userID string) string {
	return "user:" + userID
}
