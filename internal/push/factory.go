package push

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Mode string

const (
	ModeSSE   Mode = "sse"
	ModeWS    Mode = "ws"
	ModeRedis Mode = "redis"
	ModeOff   Mode = "off"
)

type Config struct {
	Mode Mode
	// URL is the SSE or websocket endpoint.
	URL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Channel       string

	ClientID             string
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	PingInterval         time.Duration
	Headers              HeaderProvider
}

// New builds the notifier for cfg.Mode. An empty mode means SSE.
func New(cfg Config, logger *zap.Logger) (Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []Option{
		WithLogger(logger),
		WithHeaderProvider(cfg.Headers),
		WithReconnect(cfg.MaxReconnectAttempts, cfg.ReconnectDelay),
		WithPingInterval(cfg.PingInterval),
	}

	switch Mode(strings.ToLower(strings.TrimSpace(string(cfg.Mode)))) {
	case ModeSSE, "":
		if cfg.URL == "" {
			return nil, fmt.Errorf("push: sse mode needs a URL")
		}
		return NewSSE(cfg.URL, opts...), nil
	case ModeWS:
		if cfg.URL == "" {
			return nil, fmt.Errorf("push: ws mode needs a URL")
		}
		return NewWebSocket(cfg.URL, cfg.ClientID, opts...), nil
	case ModeRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("push: redis mode needs an address")
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		r := NewRedis(rdb, cfg.Channel, opts...)
		r.ownClient = true
		return r, nil
	case ModeOff:
		logger.Info("push_disabled")
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("push: unknown mode %q", cfg.Mode)
	}
}
