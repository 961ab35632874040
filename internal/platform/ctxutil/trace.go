package ctxutil

import "context"

type traceDataKey struct{}

// TraceData carries the correlation ids stamped on every request so logs,
// error envelopes and realtime events can be joined.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	return lookup[*TraceData](ctx, traceDataKey{})
}

// TraceFields returns the ids as logger key/value pairs, skipping empty ones.
func TraceFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	var kv []interface{}
	if td.TraceID != "" {
		kv = append(kv, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		kv = append(kv, "request_id", td.RequestID)
	}
	return kv
}

func lookup[T any](ctx context.Context, key any) T {
	var zero T
	if ctx == nil {
		return zero
	}
	v, ok := ctx.Value(key).(T)
	if !ok {
		return zero
	}
	return v
}
