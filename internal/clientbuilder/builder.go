// Package clientbuilder assembles the board client from configuration.
package clientbuilder

import (
	"fmt"

	"github.com/park285/cheese-board-client/internal/client"
	"github.com/park285/cheese-board-client/internal/config"
	"github.com/park285/cheese-board-client/internal/msgcat"
	"github.com/park285/cheese-board-client/internal/push"
	"github.com/park285/cheese-board-client/internal/statusapi"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deps struct {
	API      *statusapi.Client
	Notifier push.Notifier
	Client   *client.Client
	Catalog  *msgcat.Catalog
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	api := NewAPI(cfg)

	pcfg, err := PushConfig(cfg)
	if err != nil {
		return nil, err
	}
	notifier, err := push.New(pcfg, logger.Named("push"))
	if err != nil {
		return nil, fmt.Errorf("init push: %w", err)
	}

	c := client.New(api, notifier, client.Options{
		FetchTimeout:   cfg.FetchTimeout,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})

	logger.Info("client_built",
		zap.String("server", cfg.ServerURL),
		zap.String("push_mode", cfg.PushMode),
		zap.String("client_id", cfg.ClientID),
	)
	return &Deps{API: api, Notifier: notifier, Client: c, Catalog: cat}, nil
}

// NewAPI builds the HTTP client for the server routes in cfg.
func NewAPI(cfg *config.AppConfig) *statusapi.Client {
	return statusapi.NewClient(cfg.ServerURL,
		statusapi.WithTimeout(cfg.RequestTimeout),
		statusapi.WithHeaderProvider(Headers(cfg)),
		statusapi.WithRoutes(statusapi.Routes{
			Status: cfg.StatusPath,
			Move:   cfg.MovePath,
			Reset:  cfg.ResetPath,
			Config: cfg.ConfigPath,
		}),
	)
}

// Headers identifies this client on every request and handshake.
func Headers(cfg *config.AppConfig) func() map[string]string {
	id := cfg.ClientID
	return func() map[string]string {
		if id == "" {
			return nil
		}
		return map[string]string{"X-Client-Id": id}
	}
}

// PushConfig maps cfg onto the notifier settings. REDIS_URL takes the
// redis://[:password@]host[:port][/db] form.
func PushConfig(cfg *config.AppConfig) (push.Config, error) {
	pcfg := push.Config{
		Mode:                 push.Mode(cfg.PushMode),
		URL:                  cfg.PushURL,
		Channel:              cfg.PushChannel,
		ClientID:             cfg.ClientID,
		MaxReconnectAttempts: cfg.ReconnectMax,
		ReconnectDelay:       cfg.ReconnectDelay,
		PingInterval:         cfg.PingInterval,
		Headers:              Headers(cfg),
	}
	if pcfg.Mode == push.ModeRedis {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return push.Config{}, fmt.Errorf("parse redis url: %w", err)
		}
		pcfg.RedisAddr = opt.Addr
		pcfg.RedisPassword = opt.Password
		pcfg.RedisDB = opt.DB
	}
	return pcfg, nil
}
