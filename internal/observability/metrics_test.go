package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestMetricsNilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.IncPieceUnlocked("customers")
	m.SSEClientConnected()
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
	if Init(false) != nil {
		t.Fatalf("disabled Init should return nil")
	}
}

func TestWritePrometheus(t *testing.T) {
	m := NewMetrics()
	m.ObserveAggregateOperation("Planning.Board.CompletePiece", "success", 20*time.Millisecond)
	m.IncAggregateConflict("Planning.Board.CompletePiece")
	m.IncPieceTransition("purpose", "complete")
	m.IncPieceUnlocked("customers")
	m.IncPieceUnlocked("customers")
	m.SSEClientConnected()

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`pp_aggregate_operations_total{operation="Planning.Board.CompletePiece",status="success"} 1`,
		`pp_aggregate_conflicts_total{operation="Planning.Board.CompletePiece"} 1`,
		`pp_piece_transitions_total{piece_type="purpose",status="complete"} 1`,
		`pp_pieces_unlocked_total{piece_type="customers"} 2`,
		`pp_aggregate_operation_duration_seconds_bucket{operation="Planning.Board.CompletePiece",status="success",le="0.025"} 1`,
		"pp_sse_clients 1",
		"# TYPE pp_api_request_duration_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestLabelStringEscapesAndDefaults(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString: %s", got)
	}
	if withLe("", "1") != `{le="1"}` {
		t.Fatalf("withLe empty: %s", withLe("", "1"))
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := NewHistogramVec("pp_test_seconds", "test.", []string{"op"}, []float64{0.1, 1})
	h.Observe(0.0625, "a")
	h.Observe(0.5, "a")
	h.Observe(3, "a")

	var buf bytes.Buffer
	if err := h.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`pp_test_seconds_bucket{op="a",le="0.1"} 1`,
		`pp_test_seconds_bucket{op="a",le="1"} 2`,
		`pp_test_seconds_bucket{op="a",le="+Inf"} 3`,
		`pp_test_seconds_sum{op="a"} 3.5625`,
		`pp_test_seconds_count{op="a"} 3`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestCounterIgnoresNegativeDelta(t *testing.T) {
	c := NewCounterVec("pp_test_total", "test.", []string{"k"})
	c.Add(2, "x")
	c.Add(-1, "x")
	if got := c.Value("x"); got != 2 {
		t.Fatalf("counter value: %g", got)
	}
}
