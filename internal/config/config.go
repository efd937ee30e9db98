package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	ServerURL string `yaml:"server_url"`

	StatusPath string `yaml:"status_path"`
	MovePath   string `yaml:"move_path"`
	ResetPath  string `yaml:"reset_path"`
	ConfigPath string `yaml:"config_path"`

	// PushMode is sse, ws, redis or off.
	PushMode    string `yaml:"push_mode"`
	PushURL     string `yaml:"push_url"`
	RedisURL    string `yaml:"redis_url"`
	PushChannel string `yaml:"push_channel"`

	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ReconnectMax   int           `yaml:"reconnect_max"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`

	ClientID    string `yaml:"client_id"`
	PNGDir      string `yaml:"png_dir"`
	MessagesDir string `yaml:"messages_dir"`
}

func defaults() *AppConfig {
	return &AppConfig{
		StatusPath:     "/status.json",
		MovePath:       "/move",
		ResetPath:      "/reset",
		ConfigPath:     "/config",
		PushMode:       "sse",
		PushChannel:    "board:changed",
		FetchTimeout:   3 * time.Second,
		RequestTimeout: 5 * time.Second,
		ReconnectMax:   -1,
		ReconnectDelay: 500 * time.Millisecond,
		PingInterval:   30 * time.Second,
		PNGDir:         ".",
	}
}

// Load reads configuration from, in increasing priority: built-in defaults,
// the YAML file named by BOARD_CONFIG_FILE, and the environment (a .env file
// in the working directory fills unset variables).
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("BOARD_CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.fillDerived()

	if cfg.ServerURL == "" {
		return nil, errors.New("BOARD_SERVER_URL is required")
	}
	switch cfg.PushMode {
	case "sse", "ws", "redis", "off":
	default:
		return nil, fmt.Errorf("BOARD_PUSH_MODE %q is not one of sse, ws, redis, off", cfg.PushMode)
	}
	if cfg.PushMode == "redis" && cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required for redis push mode")
	}
	return cfg, nil
}

func (c *AppConfig) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() error {
	setString(&c.ServerURL, "BOARD_SERVER_URL")
	setString(&c.StatusPath, "BOARD_STATUS_PATH")
	setString(&c.MovePath, "BOARD_MOVE_PATH")
	setString(&c.ResetPath, "BOARD_RESET_PATH")
	setString(&c.ConfigPath, "BOARD_CONFIG_PATH")
	setString(&c.PushMode, "BOARD_PUSH_MODE")
	setString(&c.PushURL, "BOARD_PUSH_URL")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.PushChannel, "BOARD_PUSH_CHANNEL")
	setString(&c.ClientID, "BOARD_CLIENT_ID")
	setString(&c.PNGDir, "BOARD_PNG_DIR")
	setString(&c.MessagesDir, "MSG_OVERRIDE_DIR")

	for _, d := range []struct {
		dst *time.Duration
		key string
	}{
		{&c.FetchTimeout, "BOARD_FETCH_TIMEOUT"},
		{&c.RequestTimeout, "BOARD_REQUEST_TIMEOUT"},
		{&c.ReconnectDelay, "BOARD_RECONNECT_DELAY"},
		{&c.PingInterval, "BOARD_PING_INTERVAL"},
	} {
		if err := setDuration(d.dst, d.key); err != nil {
			return err
		}
	}

	if v := strings.TrimSpace(os.Getenv("BOARD_RECONNECT_MAX")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BOARD_RECONNECT_MAX: %w", err)
		}
		c.ReconnectMax = n
	}
	return nil
}

func (c *AppConfig) fillDerived() {
	c.ServerURL = strings.TrimRight(strings.TrimSpace(c.ServerURL), "/")
	c.PushMode = strings.ToLower(strings.TrimSpace(c.PushMode))
	if c.PushURL == "" && c.ServerURL != "" {
		switch c.PushMode {
		case "ws":
			c.PushURL = "ws" + strings.TrimPrefix(c.ServerURL, "http") + "/ws"
		case "sse":
			c.PushURL = c.ServerURL + "/events"
		}
	}
	if c.ClientID == "" {
		c.ClientID = uuid.NewString()
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// setDuration accepts Go durations ("1500ms") or plain milliseconds.
func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
		*dst = time.Duration(n) * time.Millisecond
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", key)
	}
	*dst = d
	return nil
}
