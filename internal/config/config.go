// internal/config/config.go
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

// Config is the process configuration read from the environment (and a
// .env file in the working directory, when present).
type Config struct {
	Port     string `env:"PORT" envDefault:"8000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV"`
	NodeEnv  string `env:"NODE_ENV"`

	DevToolsFlag  bool `env:"DEV_TOOLS_ENABLED"`
	RoomDebugFlag bool `env:"ROOM_DEBUG"`
	DebugRandom   bool `env:"DEBUG_RANDOM"`

	BotToken       string   `env:"BOT_TOKEN"`
	InitDataBypass bool     `env:"INIT_DATA_BYPASS"`
	WebAppOrigins  []string `env:"WEBAPP_ORIGINS" envSeparator:","`
	// TokenExpireTime is "never", "0", empty, or a time.ParseDuration string.
	TokenExpireTime string `env:"TOKEN_EXPIRE_TIME"`

	CardsFile string `env:"CARDS_FILE"`

	RedisAddr        string `env:"REDIS_ADDR"`
	RedisDB          int    `env:"REDIS_DB" envDefault:"0"`
	HistoryQueueName string `env:"HISTORY_QUEUE_NAME" envDefault:"spyparty_rounds"`

	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	WSPushInterval time.Duration `env:"WS_PUSH_INTERVAL" envDefault:"2s"`

	DevAdminIDs       string `env:"DEV_ADMIN_IDS"`
	DevAdminTgID      string `env:"DEV_ADMIN_TG_ID"`
	DevAdminUsernames string `env:"DEV_ADMIN_USERNAMES"`
	DevAdminTgName    string `env:"DEV_ADMIN_TG_USERNAME"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.NodeEnv = strings.ToLower(strings.TrimSpace(cfg.NodeEnv))
	cfg.WebAppOrigins = origins(cfg.WebAppOrigins)
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.WSPushInterval <= 0 {
		cfg.WSPushInterval = 2 * time.Second
	}
	return cfg, nil
}

// DevToolsEnabled reports whether bot management endpoints are exposed.
func (c Config) DevToolsEnabled() bool {
	return c.DevToolsFlag ||
		slices.Contains([]string{"dev", "development", "local", "test"}, c.AppEnv) ||
		(c.NodeEnv != "" && c.NodeEnv != "production")
}

// RoomDebug reports whether room store lookups are traced.
func (c Config) RoomDebug() bool {
	return c.RoomDebugFlag || slices.Contains([]string{"dev", "development", "local"}, c.AppEnv)
}

// AdminIDs joins both admin id variables into one comma separated list.
func (c Config) AdminIDs() string { return joinNonEmpty(c.DevAdminIDs, c.DevAdminTgID) }

// AdminUsernames joins both admin username variables.
func (c Config) AdminUsernames() string { return joinNonEmpty(c.DevAdminUsernames, c.DevAdminTgName) }

// NewLogger builds the root logger at the configured level. Unknown levels
// fall back to info.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logger.WithField("level", c.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func origins(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, o := range raw {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ",")
}
