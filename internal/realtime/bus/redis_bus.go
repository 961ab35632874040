package bus

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/puzzleplan-backend/internal/observability"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
	"github.com/yungbote/puzzleplan-backend/internal/realtime"
)

const DefaultChannel = "puzzleplan:sse"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type redisBus struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
}

// NewRedisBus dials and pings Redis before returning.
func NewRedisBus(log *logger.Logger, cfg RedisConfig) (Bus, goredis.UniversalClient, error) {
	if log == nil {
		return nil, nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisBusFromClient(log, rdb, cfg.Channel), rdb, nil
}

// NewRedisBusFromClient wraps an existing client without pinging it.
func NewRedisBusFromClient(log *logger.Logger, rdb goredis.UniversalClient, channel string) Bus {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &redisBus{
		log:     log.With("service", "RedisSSEBus"),
		rdb:     rdb,
		channel: channel,
	}
}

func (b *redisBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis SSE bus not initialized")
	}
	raw, err := encode(msg)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		observability.Current().IncBusEvent("publish", "error")
		return err
	}
	observability.Current().IncBusEvent("publish", "ok")
	return nil
}

func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis SSE bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go b.forward(ctx, sub, onMsg)
	return nil
}

func (b *redisBus) forward(ctx context.Context, sub *goredis.PubSub, onMsg func(m realtime.SSEMessage)) {
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok || m == nil {
				return
			}
			msg, err := decode(m.Payload)
			if err != nil {
				observability.Current().IncBusEvent("receive", "decode_error")
				b.log.Warn("bad redis SSE payload", "error", err)
				continue
			}
			observability.Current().IncBusEvent("receive", "ok")
			onMsg(msg)
		}
	}
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
