package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds server configuration
type Config struct {
	// MariaDB接続設定
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     string `envconfig:"DB_PORT" default:"3306"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`

	// Pebble directory, used when no MariaDB host is configured
	DataPath string `envconfig:"DATA_PATH"`

	// サーバー設定
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`
	Env        string `envconfig:"ENV" default:"development"`

	// Secret signing viewer tokens and CSRF tokens
	Secret string `envconfig:"CHAT_SECRET" default:"dev-secret"`

	// Words rejected in chat messages; empty means the built-in list
	BlockedWords []string `envconfig:"BLOCKED_WORDS"`

	// How often event statuses are advanced
	StatusInterval time.Duration `envconfig:"STATUS_INTERVAL" default:"30s"`

	// CORS設定
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://127.0.0.1:3000"`
}

// Load loads server configuration from environment variables
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	for i := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(cfg.AllowedOrigins[i])
	}
	return cfg, nil
}

// DSN returns the MariaDB data source name
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}

// Client holds configuration for the chat widget binary
type Client struct {
	BaseURL      string        `envconfig:"CHAT_URL" default:"http://localhost:8080"`
	EventID      string        `envconfig:"CHAT_EVENT_ID"`
	Token        string        `envconfig:"CHAT_TOKEN"`
	PollInterval time.Duration `envconfig:"CHAT_POLL_INTERVAL" default:"3s"`
	Push         bool          `envconfig:"CHAT_PUSH" default:"false"`
	Timeout      time.Duration `envconfig:"CHAT_TIMEOUT" default:"10s"`
}

// LoadClient loads client configuration from environment variables
func LoadClient() (Client, error) {
	var cfg Client
	if err := envconfig.Process("", &cfg); err != nil {
		return Client{}, fmt.Errorf("load client config: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}
