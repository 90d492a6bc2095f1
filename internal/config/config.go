package config

import (
	"fmt"
	"time"
)

// Config is the full application configuration. Values come from defaults,
// then an optional TOML file, then environment variable overrides, in that
// order of increasing precedence.
type Config struct {
	App      AppConfig      `toml:"app"`
	Server   ServerConfig   `toml:"server"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Pricing  PricingConfig  `toml:"pricing"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Notify   NotifyConfig   `toml:"notify"`
	S3       S3Config       `toml:"s3"`
}

type AppConfig struct {
	// Mode selects which subsystems run: "server", "monitor", or "full".
	Mode     string `toml:"mode"`
	LogLevel string `toml:"log_level"`
	LogJSON  bool   `toml:"log_json"`
}

type ServerConfig struct {
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	// WebhookToken guards POST /api/webhook/signal. Empty disables the check.
	WebhookToken string `toml:"webhook_token"`
}

type PostgresConfig struct {
	Host        string        `toml:"host"`
	Port        int           `toml:"port"`
	User        string        `toml:"user"`
	Password    string        `toml:"password"`
	Database    string        `toml:"database"`
	SSLMode     string        `toml:"ssl_mode"`
	MaxConns    int           `toml:"max_conns"`
	ConnTimeout time.Duration `toml:"conn_timeout"`
}

type RedisConfig struct {
	Addr         string        `toml:"addr"`
	Password     string        `toml:"password"`
	DB           int           `toml:"db"`
	PriceTTL     time.Duration `toml:"price_ttl"`
	StreamMaxLen int64         `toml:"stream_max_len"`
}

// PricingConfig configures the quote provider chain. Providers are tried in
// the order listed until one returns a usable price.
type PricingConfig struct {
	Providers      []string      `toml:"providers"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	FinnhubBaseURL string        `toml:"finnhub_base_url"`
	FinnhubAPIKey  string        `toml:"finnhub_api_key"`
	TwelveBaseURL  string        `toml:"twelve_base_url"`
	TwelveAPIKey   string        `toml:"twelve_api_key"`
}

type MonitorConfig struct {
	Interval  time.Duration `toml:"interval"`
	AutoStart bool          `toml:"auto_start"`
}

type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	DiscordWebhook string   `toml:"discord_webhook"`
	Events         []string `toml:"events"`
}

type S3Config struct {
	Enabled         bool   `toml:"enabled"`
	Endpoint        string `toml:"endpoint"`
	Region          string `toml:"region"`
	Bucket          string `toml:"bucket"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	UsePathStyle    bool   `toml:"use_path_style"`
}

// Defaults returns a Config populated with sane development defaults.
func Defaults() Config {
	return Config{
		App: AppConfig{
			Mode:     "full",
			LogLevel: "info",
			LogJSON:  true,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:        "localhost",
			Port:        5432,
			User:        "tickwatch",
			Database:    "tickwatch",
			SSLMode:     "disable",
			MaxConns:    10,
			ConnTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DB:           0,
			PriceTTL:     5 * time.Minute,
			StreamMaxLen: 10000,
		},
		Pricing: PricingConfig{
			Providers:      []string{"finnhub", "twelvedata"},
			RequestTimeout: 5 * time.Second,
			FinnhubBaseURL: "https://finnhub.io/api/v1",
			TwelveBaseURL:  "https://api.twelvedata.com",
		},
		Monitor: MonitorConfig{
			Interval:  30 * time.Second,
			AutoStart: true,
		},
		Notify: NotifyConfig{
			Events: []string{"position_closed"},
		},
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

// Validate checks the configuration for values that would prevent startup.
func (c Config) Validate() error {
	switch c.App.Mode {
	case "server", "monitor", "full":
	default:
		return fmt.Errorf("config: invalid app.mode %q", c.App.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	if c.Postgres.Host == "" {
		return fmt.Errorf("config: postgres.host is required")
	}
	if c.Postgres.Database == "" {
		return fmt.Errorf("config: postgres.database is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if len(c.Pricing.Providers) == 0 {
		return fmt.Errorf("config: pricing.providers must list at least one provider")
	}
	for _, p := range c.Pricing.Providers {
		switch p {
		case "finnhub", "twelvedata":
		default:
			return fmt.Errorf("config: unknown pricing provider %q", p)
		}
	}
	if c.Pricing.RequestTimeout <= 0 {
		return fmt.Errorf("config: pricing.request_timeout must be positive")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("config: monitor.interval must be positive")
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("config: s3.bucket is required when s3 is enabled")
	}
	return nil
}
