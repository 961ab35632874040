package realtime

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/observability"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

type SSEHub struct {
	mu            sync.RWMutex
	logger        *logger.Logger
	subscriptions map[string]map[*SSEClient]bool
	heartbeat     time.Duration
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		logger:        log.With("component", "SSEHub"),
		subscriptions: make(map[string]map[*SSEClient]bool),
		heartbeat:     15 * time.Second,
	}
}

func (hub *SSEHub) NewSSEClient(userID uuid.UUID) *SSEClient {
	return newSSEClient(userID, hub.logger)
}

func (hub *SSEHub) AddChannel(client *SSEClient, channel string) {
	channel = strings.TrimSpace(channel)
	if channel == "" || client == nil {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()

	client.Channels[channel] = true
	clients, ok := hub.subscriptions[channel]
	if !ok {
		clients = make(map[*SSEClient]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true
	hub.logger.Debug("SSE client subscribed", "client_id", client.ID, "channel", channel)
}

func (hub *SSEHub) RemoveClient(client *SSEClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for ch := range client.Channels {
		if subMap, ok := hub.subscriptions[ch]; ok {
			delete(subMap, client)
			if len(subMap) == 0 {
				delete(hub.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
}

// Broadcast never blocks; a client whose buffer is full misses the message.
func (hub *SSEHub) Broadcast(msg SSEMessage) {
	if msg.Channel == "" {
		return
	}
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for c := range hub.subscriptions[msg.Channel] {
		if !c.offer(msg) {
			hub.logger.Warn("Dropping SSE message; outbound buffer full", "client_id", c.ID, "event", string(msg.Event))
		}
	}
}

// Subscribers reports how many clients listen on channel.
func (hub *SSEHub) Subscribers(channel string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subscriptions[channel])
}

// reconnectHint is sent as the SSE retry field so browsers back off before
// reconnecting after a dropped stream.
const reconnectHint = 3 * time.Second

// ServeHTTP streams client's messages until the request ends or the client
// is closed. A comment line is written every heartbeat to keep proxies from
// timing the connection out.
func (hub *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *SSEClient) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", reconnectHint.Milliseconds())
	flusher.Flush()

	if m := observability.Current(); m != nil {
		m.SSEClientConnected()
		defer m.SSEClientDisconnected()
	}

	heartbeat := time.NewTicker(hub.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			client.Logger.Debug("SSE client context done", "error", r.Context().Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			if err := writeEvent(w, msg); err != nil {
				client.Logger.Warn("Failed to write SSE message", "error", err)
				continue
			}
		}
		flusher.Flush()
	}
}

// CloseClient is safe to call more than once.
func (hub *SSEHub) CloseClient(client *SSEClient) {
	if client == nil {
		return
	}
	hub.RemoveClient(client)
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if client.closed() {
		return
	}
	close(client.done)
	close(client.Outbound)
}
