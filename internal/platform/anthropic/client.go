package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/puzzleplan-backend/internal/observability"
	"github.com/yungbote/puzzleplan-backend/internal/platform/httpx"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

const (
	DefaultBaseURL     = "https://api.anthropic.com"
	DefaultModel       = "claude-sonnet-4-20250514"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
	APIVersion         = "2023-06-01"

	messagesPath = "/v1/messages"
)

// ErrNotConfigured is returned when no API key was supplied.
var ErrNotConfigured = errors.New("anthropic: api key not configured")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	System   string
	Messages []Message
}

// Client streams Messages API completions.
type Client interface {
	// StreamMessages calls onDelta for each text delta and returns the full reply.
	StreamMessages(ctx context.Context, req Request, onDelta func(delta string)) (string, error)
	Model() string
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	Timeout     time.Duration
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	maxRetries  int
	httpClient  *http.Client
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &client{
		log:         log.With("client", "AnthropicClient"),
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		maxRetries:  maxRetries,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *client) Model() string { return c.model }

type apiHTTPError struct {
	StatusCode int
	Body       string
}

func (e *apiHTTPError) Error() string {
	return fmt.Sprintf("anthropic http %d: %s", e.StatusCode, e.Body)
}

func (e *apiHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type streamEvent struct {
	Type    string `json:"type"`
	Message *struct {
		Usage struct {
			InputTokens int `json:"input_tokens"`
		} `json:"usage"`
	} `json:"message,omitempty"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta,omitempty"`
	Usage *struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *client) StreamMessages(ctx context.Context, req Request, onDelta func(delta string)) (string, error) {
	ctx, span := observability.StartSpan(ctx, "anthropic.messages.stream",
		attribute.String("llm.model", c.model),
		attribute.Int("llm.messages", len(req.Messages)),
	)
	text, err := c.streamMessages(ctx, req, onDelta)
	span.SetAttributes(attribute.Int("llm.reply_chars", len(text)))
	observability.EndSpan(span, err)
	return text, err
}

func (c *client) streamMessages(ctx context.Context, req Request, onDelta func(delta string)) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("anthropic: at least one message is required")
	}
	body := messagesRequest{
		Model:       c.model,
		System:      strings.TrimSpace(req.System),
		Messages:    req.Messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stream:      true,
	}
	start := time.Now()

	resp, err := c.openStream(ctx, body)
	if err != nil {
		c.observe(statusFromErr(err), start, 0, 0)
		return "", err
	}
	defer resp.Body.Close()

	var (
		full         strings.Builder
		inputTokens  int
		outputTokens int
	)
	err = readSSE(resp.Body, func(event, data string) error {
		if strings.TrimSpace(data) == "" {
			return nil
		}
		var ev streamEvent
		if jerr := json.Unmarshal([]byte(data), &ev); jerr != nil {
			return nil
		}
		if ev.Type == "" {
			ev.Type = event
		}
		switch ev.Type {
		case "message_start":
			if ev.Message != nil {
				inputTokens = ev.Message.Usage.InputTokens
			}
		case "content_block_delta":
			if ev.Delta != nil && ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
				full.WriteString(ev.Delta.Text)
				if onDelta != nil {
					onDelta(ev.Delta.Text)
				}
			}
		case "message_delta":
			if ev.Usage != nil {
				outputTokens = ev.Usage.OutputTokens
			}
		case "error":
			if ev.Error != nil {
				return fmt.Errorf("anthropic stream error: %s: %s", ev.Error.Type, ev.Error.Message)
			}
			return fmt.Errorf("anthropic stream error: %s", data)
		}
		return nil
	})
	if err != nil {
		c.observe(statusFromErr(err), start, inputTokens, outputTokens)
		return full.String(), err
	}
	c.observe("200", start, inputTokens, outputTokens)
	return full.String(), nil
}

// openStream retries only until response headers arrive. Once bytes have been
// handed to onDelta a retry would duplicate output.
func (c *client) openStream(ctx context.Context, body messagesRequest) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	backoff := httpx.Backoff{Base: time.Second, Max: 10 * time.Second}
	for attempt := 0; ; attempt++ {
		resp, err := c.doOnce(ctx, raw)
		if err == nil {
			return resp, nil
		}
		if !httpx.IsRetryableError(err) || attempt >= c.maxRetries || ctx.Err() != nil {
			return nil, err
		}
		sleepFor := backoff.Delay(attempt, resp)
		c.log.Warn("Anthropic request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if serr := httpx.Sleep(ctx, sleepFor); serr != nil {
			return nil, serr
		}
	}
}

// doOnce returns the response even on error so Retry-After can be read; the
// body is already drained and closed in that case.
func (c *client) doOnce(ctx context.Context, raw []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", APIVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
	return resp, &apiHTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

func (c *client) observe(status string, start time.Time, in, out int) {
	if m := observability.Current(); m != nil {
		m.ObserveLLMRequest(c.model, messagesPath, status, time.Since(start), in, out)
	}
}

func statusFromErr(err error) string {
	var he *apiHTTPError
	if errors.As(err, &he) {
		return fmt.Sprintf("%d", he.StatusCode)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
