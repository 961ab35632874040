package aggregates

import (
	"time"

	"github.com/yungbote/puzzleplan-backend/internal/observability"
)

// Hooks receives aggregate outcome signals.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

type metricsHooks struct {
	metrics *observability.Metrics
}

// NewMetricsHooks reports aggregate outcomes to m. A nil m yields no-op hooks.
func NewMetricsHooks(m *observability.Metrics) Hooks {
	if m == nil {
		return noopHooks{}
	}
	return &metricsHooks{metrics: m}
}

func (h *metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.metrics.ObserveAggregateOperation(name, status, dur)
}

func (h *metricsHooks) IncConflict(name string) {
	h.metrics.IncAggregateConflict(name)
}

func (h *metricsHooks) IncRetry(name string) {
	h.metrics.IncAggregateRetry(name)
}
