package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/http/response"
	"github.com/yungbote/puzzleplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
	"github.com/yungbote/puzzleplan-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub

	mu      sync.Mutex
	clients map[uuid.UUID]*realtime.SSEClient // key: session id
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		clients: make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// GET /api/sse/stream
//
// One stream per session: a reconnect from the same session replaces the
// previous client. Every stream is subscribed to the caller's user channel.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil || rd.SessionID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errUnauthenticated)
		return
	}

	client := h.hub.NewSSEClient(rd.UserID)
	client.Logger = h.log.With("sse_client_id", client.ID.String())

	h.mu.Lock()
	if existing, ok := h.clients[rd.SessionID]; ok {
		h.hub.CloseClient(existing)
	}
	h.clients[rd.SessionID] = client
	h.mu.Unlock()

	channel := realtime.UserChannel(rd.UserID.String())
	h.hub.AddChannel(client, channel)
	h.log.Debug("SSE stream open", "user_id", rd.UserID, "session_id", rd.SessionID, "user_streams", h.hub.Subscribers(channel))

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[rd.SessionID] == client {
		delete(h.clients, rd.SessionID)
	}
	h.mu.Unlock()
	h.hub.CloseClient(client)
}
