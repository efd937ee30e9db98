package clientbuilder

import (
	"testing"
	"time"

	"github.com/park285/cheese-board-client/internal/config"
	"github.com/park285/cheese-board-client/internal/push"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		ServerURL:      "http://localhost:8000",
		StatusPath:     "/status.json",
		PushMode:       "sse",
		PushURL:        "http://localhost:8000/events",
		PushChannel:    "board:changed",
		RequestTimeout: time.Second,
		ReconnectMax:   -1,
		ReconnectDelay: 100 * time.Millisecond,
		ClientID:       "abc",
	}
}

func TestPushConfigRedisURL(t *testing.T) {
	cfg := baseConfig()
	cfg.PushMode = "redis"
	cfg.RedisURL = "redis://:secret@cache:6380/2"

	pcfg, err := PushConfig(cfg)
	if err != nil {
		t.Fatalf("push config: %v", err)
	}
	if pcfg.RedisAddr != "cache:6380" || pcfg.RedisPassword != "secret" || pcfg.RedisDB != 2 {
		t.Fatalf("redis settings = %q %q %d", pcfg.RedisAddr, pcfg.RedisPassword, pcfg.RedisDB)
	}
	if pcfg.Channel != "board:changed" || pcfg.ClientID != "abc" {
		t.Fatalf("unexpected config %+v", pcfg)
	}
}

func TestPushConfigBadRedisURL(t *testing.T) {
	cfg := baseConfig()
	cfg.PushMode = "redis"
	cfg.RedisURL = "http://cache"
	if _, err := PushConfig(cfg); err == nil {
		t.Fatalf("expected error for non-redis scheme")
	}
}

func TestHeadersCarryClientID(t *testing.T) {
	h := Headers(baseConfig())()
	if h["X-Client-Id"] != "abc" {
		t.Fatalf("headers = %v", h)
	}
	cfg := baseConfig()
	cfg.ClientID = ""
	if h := Headers(cfg)(); len(h) != 0 {
		t.Fatalf("expected no headers, got %v", h)
	}
}

func TestNewWiresEverything(t *testing.T) {
	cfg := baseConfig()
	cfg.PushMode = "off"
	deps, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if deps.API.BaseURL() != "http://localhost:8000" {
		t.Fatalf("base url = %q", deps.API.BaseURL())
	}
	if _, ok := deps.Notifier.(push.Nop); !ok {
		t.Fatalf("notifier = %T, want push.Nop", deps.Notifier)
	}
	if deps.Client == nil || deps.Catalog == nil {
		t.Fatalf("missing client or catalog")
	}
	if got := deps.Catalog.Text("prompt.ok", nil); got != "OK" {
		t.Fatalf("catalog text = %q", got)
	}
}
