package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/puzzleplan-backend/internal/data/aggregates"
)

// Signal kinds recorded by HooksRecorder.
const (
	SignalOperation = "operation"
	SignalConflict  = "conflict"
	SignalRetry     = "retry"
)

type Signal struct {
	Kind     string
	Op       string
	Status   string
	Duration time.Duration
}

// HooksRecorder keeps every hook call in arrival order.
type HooksRecorder struct {
	mu      sync.Mutex
	signals []Signal
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) record(s Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signals = append(h.signals, s)
}

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.record(Signal{Kind: SignalOperation, Op: name, Status: status, Duration: dur})
}

func (h *HooksRecorder) IncConflict(name string) {
	h.record(Signal{Kind: SignalConflict, Op: name})
}

func (h *HooksRecorder) IncRetry(name string) {
	h.record(Signal{Kind: SignalRetry, Op: name})
}

// Signals returns a copy of everything recorded so far.
func (h *HooksRecorder) Signals() []Signal {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Signal(nil), h.signals...)
}

// Count returns how many signals of kind were recorded for op; an empty op
// matches all operations.
func (h *HooksRecorder) Count(kind, op string) int {
	n := 0
	for _, s := range h.Signals() {
		if s.Kind == kind && (op == "" || s.Op == op) {
			n++
		}
	}
	return n
}

// LastStatus returns the status of the most recent operation, or "".
func (h *HooksRecorder) LastStatus() string {
	sigs := h.Signals()
	for i := len(sigs) - 1; i >= 0; i-- {
		if sigs[i].Kind == SignalOperation {
			return sigs[i].Status
		}
	}
	return ""
}
