package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPStatusCoder is implemented by client errors that carry an upstream status.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// IsRetryableHTTPStatus reports 408, 429 and any 5xx (Anthropic uses 529 for overload).
func IsRetryableHTTPStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError treats caller cancellation as final; only deadline and
// transport timeouts or retryable statuses are worth another attempt.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

// Backoff computes the wait before a retry: Base doubled per attempt,
// replaced by the server's Retry-After when present, capped at Max and
// spread by +/-20%.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before retry number attempt (zero based).
func (b Backoff) Delay(attempt int, resp *http.Response) time.Duration {
	d := b.Base << uint(max(attempt, 0))
	if ra, ok := retryAfter(resp, time.Now()); ok {
		d = ra
	}
	if b.Max > 0 && (d > b.Max || d < 0) {
		d = b.Max
	}
	return jitter(d)
}

// retryAfter accepts both the delta-seconds and HTTP-date forms.
func retryAfter(resp *http.Response, now time.Time) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if ra == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(ra); err == nil && at.After(now) {
		return at.Sub(now), true
	}
	return 0, false
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	spread := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(d) * spread)
}

// Sleep waits for d or until ctx ends.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
