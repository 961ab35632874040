package observability

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// The collectors below render Prometheus text format directly. Series are
// written in sorted label order so scrapes are stable.

// floatSeries is the shared store behind counters and gauges: one float per
// rendered label set.
type floatSeries struct {
	name, help, kind string
	labelNames       []string

	mu     sync.RWMutex
	values map[string]float64
}

func newFloatSeries(kind, name, help string, labels []string) *floatSeries {
	return &floatSeries{name: name, help: help, kind: kind, labelNames: labels, values: map[string]float64{}}
}

func (s *floatSeries) update(fn func(cur float64) float64, values []string) {
	key := labelString(s.labelNames, values)
	s.mu.Lock()
	s.values[key] = fn(s.values[key])
	s.mu.Unlock()
}

func (s *floatSeries) get(values []string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[labelString(s.labelNames, values)]
}

func (s *floatSeries) write(w io.Writer) error {
	pw := newPromWriter(w, s.name, s.help, s.kind)
	s.mu.RLock()
	for _, k := range sortedKeys(s.values) {
		pw.line(s.name, k, formatFloat(s.values[k]))
	}
	s.mu.RUnlock()
	return pw.flush()
}

type CounterVec struct{ s *floatSeries }

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{s: newFloatSeries("counter", name, help, labels)}
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

// Add ignores negative deltas; counters only grow.
func (c *CounterVec) Add(v float64, values ...string) {
	if c == nil || v < 0 {
		return
	}
	c.s.update(func(cur float64) float64 { return cur + v }, values)
}

func (c *CounterVec) Value(values ...string) float64 {
	if c == nil {
		return 0
	}
	return c.s.get(values)
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.s.write(w)
}

type GaugeVec struct{ s *floatSeries }

func NewGaugeVec(name, help string, labels []string) *GaugeVec {
	return &GaugeVec{s: newFloatSeries("gauge", name, help, labels)}
}

func (g *GaugeVec) Set(v float64, values ...string) {
	if g == nil {
		return
	}
	g.s.update(func(float64) float64 { return v }, values)
}

func (g *GaugeVec) Add(v float64, values ...string) {
	if g == nil {
		return
	}
	g.s.update(func(cur float64) float64 { return cur + v }, values)
}

func (g *GaugeVec) Value(values ...string) float64 {
	if g == nil {
		return 0
	}
	return g.s.get(values)
}

func (g *GaugeVec) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.s.write(w)
}

// Gauge is an unlabelled GaugeVec.
type Gauge struct{ GaugeVec }

func NewGauge(name, help string) *Gauge {
	return &Gauge{GaugeVec: GaugeVec{s: newFloatSeries("gauge", name, help, nil)}}
}

func (g *Gauge) Set(v float64) {
	if g != nil {
		g.GaugeVec.Set(v)
	}
}

func (g *Gauge) Inc() {
	if g != nil {
		g.GaugeVec.Add(1)
	}
}

func (g *Gauge) Dec() {
	if g != nil {
		g.GaugeVec.Add(-1)
	}
}

func (g *Gauge) Value() float64 {
	if g == nil {
		return 0
	}
	return g.GaugeVec.Value()
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.GaugeVec.WritePrometheus(w)
}

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

type HistogramVec struct {
	name, help string
	labelNames []string
	buckets    []float64

	mu     sync.RWMutex
	values map[string]*histogram
}

// counts[i] holds observations <= buckets[i]; the extra last slot is +Inf.
type histogram struct {
	counts []uint64
	sum    float64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}
	return &HistogramVec{name: name, help: help, labelNames: labels, buckets: buckets, values: map[string]*histogram{}}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	key := labelString(h.labelNames, values)
	// First bucket whose upper bound holds v; len(buckets) means +Inf only.
	idx := sort.SearchFloat64s(h.buckets, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	hist := h.values[key]
	if hist == nil {
		hist = &histogram{counts: make([]uint64, len(h.buckets)+1)}
		h.values[key] = hist
	}
	hist.sum += v
	for i := idx; i < len(hist.counts); i++ {
		hist.counts[i]++
	}
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	pw := newPromWriter(w, h.name, h.help, "histogram")
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := make([]string, 0, len(h.values))
	for k := range h.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		hist := h.values[k]
		for i, b := range h.buckets {
			pw.line(h.name+"_bucket", withLe(k, formatFloat(b)), strconv.FormatUint(hist.counts[i], 10))
		}
		total := hist.counts[len(hist.counts)-1]
		pw.line(h.name+"_bucket", withLe(k, "+Inf"), strconv.FormatUint(total, 10))
		pw.line(h.name+"_sum", k, formatFloat(hist.sum))
		pw.line(h.name+"_count", k, strconv.FormatUint(total, 10))
	}
	return pw.flush()
}

// promWriter buffers one metric family and keeps the first write error.
type promWriter struct {
	bw  *bufio.Writer
	err error
}

func newPromWriter(w io.Writer, name, help, kind string) *promWriter {
	pw := &promWriter{bw: bufio.NewWriter(w)}
	pw.printf("# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
	return pw
}

func (pw *promWriter) printf(format string, args ...any) {
	if pw.err == nil {
		_, pw.err = fmt.Fprintf(pw.bw, format, args...)
	}
}

func (pw *promWriter) line(name, labels, value string) {
	pw.printf("%s%s %s\n", name, labels, value)
}

func (pw *promWriter) flush() error {
	if pw.err != nil {
		return pw.err
	}
	return pw.bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// labelString renders {a="x",b="y"}; missing or blank values become
// "unknown" so every series carries the full label set.
func labelString(names []string, values []string) string {
	if len(names) == 0 {
		return ""
	}
	pairs := make([]string, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) && strings.TrimSpace(values[i]) != "" {
			val = values[i]
		}
		pairs[i] = name + `="` + escapeLabel(val) + `"`
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeLabel(v string) string { return labelEscaper.Replace(v) }

func withLe(labels string, le string) string {
	le = `le="` + escapeLabel(le) + `"`
	if labels == "" || labels == "{}" {
		return "{" + le + "}"
	}
	return strings.TrimSuffix(labels, "}") + "," + le + "}"
}
