package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load builds the configuration from defaults, an optional TOML file, and
// environment variables. A missing file at the given path is an error; pass
// an empty path to skip the file layer. A .env file in the working directory
// is loaded first if present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setStr("TICKWATCH_MODE", &cfg.App.Mode)
	setStr("TICKWATCH_LOG_LEVEL", &cfg.App.LogLevel)
	setBool("TICKWATCH_LOG_JSON", &cfg.App.LogJSON)

	setStr("TICKWATCH_SERVER_HOST", &cfg.Server.Host)
	setInt("TICKWATCH_SERVER_PORT", &cfg.Server.Port)
	setDuration("TICKWATCH_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	setStr("TICKWATCH_WEBHOOK_TOKEN", &cfg.Server.WebhookToken)

	setStr("TICKWATCH_PG_HOST", &cfg.Postgres.Host)
	setInt("TICKWATCH_PG_PORT", &cfg.Postgres.Port)
	setStr("TICKWATCH_PG_USER", &cfg.Postgres.User)
	setStr("TICKWATCH_PG_PASSWORD", &cfg.Postgres.Password)
	setStr("TICKWATCH_PG_DATABASE", &cfg.Postgres.Database)
	setStr("TICKWATCH_PG_SSLMODE", &cfg.Postgres.SSLMode)
	setInt("TICKWATCH_PG_MAX_CONNS", &cfg.Postgres.MaxConns)

	setStr("TICKWATCH_REDIS_ADDR", &cfg.Redis.Addr)
	setStr("TICKWATCH_REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("TICKWATCH_REDIS_DB", &cfg.Redis.DB)
	setDuration("TICKWATCH_PRICE_TTL", &cfg.Redis.PriceTTL)
	setInt64("TICKWATCH_STREAM_MAX_LEN", &cfg.Redis.StreamMaxLen)

	setStringSlice("TICKWATCH_PRICE_PROVIDERS", &cfg.Pricing.Providers)
	setDuration("TICKWATCH_PRICE_TIMEOUT", &cfg.Pricing.RequestTimeout)
	setStr("TICKWATCH_FINNHUB_BASE_URL", &cfg.Pricing.FinnhubBaseURL)
	setStr("TICKWATCH_FINNHUB_API_KEY", &cfg.Pricing.FinnhubAPIKey)
	setStr("TICKWATCH_TWELVE_BASE_URL", &cfg.Pricing.TwelveBaseURL)
	setStr("TICKWATCH_TWELVE_API_KEY", &cfg.Pricing.TwelveAPIKey)

	setDuration("TICKWATCH_MONITOR_INTERVAL", &cfg.Monitor.Interval)
	setBool("TICKWATCH_MONITOR_AUTOSTART", &cfg.Monitor.AutoStart)

	setStr("TICKWATCH_TELEGRAM_TOKEN", &cfg.Notify.TelegramToken)
	setStr("TICKWATCH_TELEGRAM_CHAT_ID", &cfg.Notify.TelegramChatID)
	setStr("TICKWATCH_DISCORD_WEBHOOK", &cfg.Notify.DiscordWebhook)
	setStringSlice("TICKWATCH_NOTIFY_EVENTS", &cfg.Notify.Events)

	setBool("TICKWATCH_S3_ENABLED", &cfg.S3.Enabled)
	setStr("TICKWATCH_S3_ENDPOINT", &cfg.S3.Endpoint)
	setStr("TICKWATCH_S3_REGION", &cfg.S3.Region)
	setStr("TICKWATCH_S3_BUCKET", &cfg.S3.Bucket)
	setStr("TICKWATCH_S3_ACCESS_KEY_ID", &cfg.S3.AccessKeyID)
	setStr("TICKWATCH_S3_SECRET_ACCESS_KEY", &cfg.S3.SecretAccessKey)
	setBool("TICKWATCH_S3_PATH_STYLE", &cfg.S3.UsePathStyle)
}

func setStr(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(key string, dst *int64) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setStringSlice(key string, dst *[]string) {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
