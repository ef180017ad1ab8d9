// Package config loads the bot's settings from the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Environments accepted in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Scope selects where slash commands are registered.
type Scope string

const (
	// ScopeGuild registers commands in the test guild only.
	ScopeGuild Scope = "guild"
	// ScopePublic registers commands globally.
	ScopePublic Scope = "public"
)

// Config holds every setting the bot reads at startup.
type Config struct {
	AppEnv           string        `env:"APP_ENV" envDefault:"development"`
	DiscordToken     string        `env:"DISCORD_BOT_TOKEN"`
	SupportServerURL string        `env:"SUPPORT_SERVER_URL"`
	CommandScope     Scope         `env:"COMMAND_SCOPE"`
	TestGuildID      string        `env:"TEST_GUILD_ID"`
	ReconnectTimeout time.Duration `env:"RECONNECT_TIMEOUT" envDefault:"4s"`
	CommandCacheDir  string        `env:"COMMAND_CACHE_DIR" envDefault:"data/commands"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile          string        `env:"LOG_FILE"`
	LogJSON          bool          `env:"LOG_JSON" envDefault:"false"`
}

// ConfigError reports a missing or invalid setting.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("config: %s is not set", e.Key)
	}
	return fmt.Sprintf("config: %s %s", e.Key, e.Reason)
}

// Load reads .env.<APP_ENV> and .env into the process environment, then
// parses and validates it. Variables already set in the process win over
// both files, and .env.<APP_ENV> wins over .env.
func Load() (*Config, error) {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = EnvDevelopment
	}
	for _, file := range []string{".env." + appEnv, ".env"} {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return Parse(env.ToMap(os.Environ()))
}

// Parse builds a Config from the given variables.
func Parse(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings and fills in the command scope when it
// was not set explicitly.
func (c *Config) Validate() error {
	switch c.AppEnv {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		return &ConfigError{Key: "APP_ENV", Reason: fmt.Sprintf("has unknown value %q", c.AppEnv)}
	}
	if c.DiscordToken == "" {
		return &ConfigError{Key: "DISCORD_BOT_TOKEN"}
	}
	if c.SupportServerURL == "" {
		return &ConfigError{Key: "SUPPORT_SERVER_URL"}
	}

	switch c.CommandScope {
	case "":
		c.CommandScope = ScopeGuild
		if c.AppEnv == EnvProduction {
			c.CommandScope = ScopePublic
		}
	case ScopeGuild, ScopePublic:
	default:
		return &ConfigError{Key: "COMMAND_SCOPE", Reason: fmt.Sprintf("has unknown value %q", c.CommandScope)}
	}

	if c.ReconnectTimeout <= 0 {
		return &ConfigError{Key: "RECONNECT_TIMEOUT", Reason: "must be positive"}
	}
	return nil
}
