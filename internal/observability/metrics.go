package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	pieceTransitions *CounterVec
	piecesUnlocked   *CounterVec

	sseClients *Gauge
	busEvents  *CounterVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the process metrics, or nil when metrics are disabled.
func Current() *Metrics {
	return instance
}

// Init builds the process-wide registry once. It returns nil when disabled so
// every recording method degrades to a no-op.
func Init(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
	})
	return instance
}

// NewMetrics builds an unshared registry. Tests use it directly.
func NewMetrics() *Metrics {
	latency := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	return &Metrics{
		apiRequests: NewCounterVec("pp_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("pp_api_request_duration_seconds", "API latency by method/route/status.", []string{"method", "route", "status"}, latency),
		apiInflight: NewGauge("pp_api_inflight_requests", "In-flight API requests."),

		llmRequests: NewCounterVec("pp_llm_requests_total", "LLM requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency:  NewHistogramVec("pp_llm_request_duration_seconds", "LLM latency by model/endpoint/status.", []string{"model", "endpoint", "status"}, []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120}),
		llmTokens:   NewCounterVec("pp_llm_tokens_total", "LLM tokens by model/kind.", []string{"model", "kind"}),

		aggregateOps:       NewCounterVec("pp_aggregate_operations_total", "Aggregate writes by operation/status.", []string{"operation", "status"}),
		aggregateLatency:   NewHistogramVec("pp_aggregate_operation_duration_seconds", "Aggregate write latency.", []string{"operation", "status"}, latency),
		aggregateConflicts: NewCounterVec("pp_aggregate_conflicts_total", "Aggregate writes that lost a compare-and-set.", []string{"operation"}),
		aggregateRetries:   NewCounterVec("pp_aggregate_retryable_total", "Aggregate writes that failed with a retryable error.", []string{"operation"}),

		pieceTransitions: NewCounterVec("pp_piece_transitions_total", "Piece status transitions by piece type and target status.", []string{"piece_type", "status"}),
		piecesUnlocked:   NewCounterVec("pp_pieces_unlocked_total", "Pieces unlocked by a sibling completion.", []string{"piece_type"}),

		sseClients: NewGauge("pp_sse_clients", "Connected SSE clients."),
		busEvents:  NewCounterVec("pp_realtime_bus_events_total", "Realtime bus messages by direction/status.", []string{"direction", "status"}),

		dbStats:   NewGaugeVec("pp_db_pool", "database/sql pool statistics.", []string{"stat"}),
		redisUp:   NewGauge("pp_redis_up", "Whether the last Redis ping succeeded."),
		redisPing: NewGauge("pp_redis_ping_seconds", "Latency of the last Redis ping."),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.pieceTransitions, m.piecesUnlocked,
		m.sseClients, m.busEvents,
		m.dbStats, m.redisUp, m.redisPing,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	op = strings.TrimSpace(op)
	m.aggregateOps.Inc(op, status)
	m.aggregateLatency.Observe(dur.Seconds(), op, status)
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(strings.TrimSpace(op))
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(strings.TrimSpace(op))
}

func (m *Metrics) IncPieceTransition(pieceType, status string) {
	if m == nil {
		return
	}
	m.pieceTransitions.Inc(pieceType, status)
}

func (m *Metrics) IncPieceUnlocked(pieceType string) {
	if m == nil {
		return
	}
	m.piecesUnlocked.Inc(pieceType)
}

func (m *Metrics) SSEClientConnected() {
	if m == nil {
		return
	}
	m.sseClients.Inc()
}

func (m *Metrics) SSEClientDisconnected() {
	if m == nil {
		return
	}
	m.sseClients.Dec()
}

func (m *Metrics) IncBusEvent(direction, status string) {
	if m == nil {
		return
	}
	m.busEvents.Inc(direction, status)
}

// StartDBCollector samples connection pool stats every interval until ctx ends.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

// StartRedisCollector pings rdb every interval until ctx ends.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
