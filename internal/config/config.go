package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full bot configuration.
type Config struct {
	BotToken string   `yaml:"bot_token"`
	AdminIDs []int64  `yaml:"admin_ids"`
	Database Database `yaml:"database"`
	HTTP     HTTP     `yaml:"http"`
	Game     Game     `yaml:"game"`
	Log      Log      `yaml:"log"`
}

// Database controls where the ledger is persisted.
type Database struct {
	Path string `yaml:"path"` // SQLite file path, or ":memory:"
}

// HTTP controls the mini-app API server.
type HTTP struct {
	Port string `yaml:"port"`
}

// Game holds gameplay parameters.
type Game struct {
	WelcomeBonus          int64 `yaml:"welcome_bonus"`           // smallest currency units credited on first /start
	SessionTTLSeconds     int   `yaml:"session_ttl_seconds"`     // how long an option selection waits for its stake
	WorkerIntervalSeconds int   `yaml:"worker_interval_seconds"` // expired-question sweep interval
}

// Log controls logging output.
type Log struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Load reads the optional YAML file at path, then .env, then environment
// overrides, then fills defaults. An empty path skips the YAML step.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("config.Load: bot token not set (TELEGRAM_BOT_TOKEN)")
	}
	return &cfg, nil
}

// IsAdmin reports whether the given Telegram user id is a configured
// operator.
func (c *Config) IsAdmin(id int64) bool {
	for _, admin := range c.AdminIDs {
		if admin == id {
			return true
		}
	}
	return false
}

// SessionTTL returns the selection-session lifetime as a time.Duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Game.SessionTTLSeconds) * time.Second
}

// WorkerInterval returns the sweep interval as a time.Duration.
func (c *Config) WorkerInterval() time.Duration {
	return time.Duration(c.Game.WorkerIntervalSeconds) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.BotToken = v
	}
	if v := os.Getenv("ADMIN_IDS"); v != "" {
		cfg.AdminIDs = cfg.AdminIDs[:0]
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err == nil {
				cfg.AdminIDs = append(cfg.AdminIDs, id)
			}
		}
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.HTTP.Port = v
	}
	if v := os.Getenv("WELCOME_BONUS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.Game.WelcomeBonus = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/quizbot.db"
	}
	if cfg.HTTP.Port == "" {
		cfg.HTTP.Port = "8080"
	}
	if cfg.Game.WelcomeBonus <= 0 {
		cfg.Game.WelcomeBonus = 1
	}
	if cfg.Game.SessionTTLSeconds <= 0 {
		cfg.Game.SessionTTLSeconds = 300
	}
	if cfg.Game.WorkerIntervalSeconds <= 0 {
		cfg.Game.WorkerIntervalSeconds = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
