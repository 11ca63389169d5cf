package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment (and .env when present).
type Config struct {
	DiscordToken          string        `env:"DISCORD_TOKEN,required,notEmpty"`
	DiscordGuildBlacklist []string      `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	InitSlashCommands     bool          `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	StoragePath           string        `env:"STORAGE_PATH" envDefault:"datastore.json"`
	IdleDisconnectAfter   time.Duration `env:"IDLE_DISCONNECT_AFTER" envDefault:"15m"`
	YouTubeProxy          string        `env:"YOUTUBE_PROXY"`
	ResolveAttempts       int           `env:"RESOLVE_ATTEMPTS" envDefault:"3"`
	CooldownUses          int           `env:"COOLDOWN_USES" envDefault:"2"`
	CooldownWindow        time.Duration `env:"COOLDOWN_WINDOW" envDefault:"5s"`
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile               string        `env:"LOG_FILE" envDefault:"logs/bot.log"`
	LogMaxSizeMB          int           `env:"LOG_MAX_SIZE_MB" envDefault:"10"`
	LogMaxBackups         int           `env:"LOG_MAX_BACKUPS" envDefault:"3"`
}

// ErrMissingToken is returned when DISCORD_TOKEN is absent.
var ErrMissingToken = errors.New("DISCORD_TOKEN is not set")

// Load reads .env (if any) and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return Parse()
}

// Parse parses the current environment without touching .env files.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		if isMissingToken(err) {
			return nil, ErrMissingToken
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ResolveAttempts < 1 {
		return fmt.Errorf("RESOLVE_ATTEMPTS must be at least 1, got %d", c.ResolveAttempts)
	}
	if c.CooldownUses < 1 {
		return fmt.Errorf("COOLDOWN_USES must be at least 1, got %d", c.CooldownUses)
	}
	if c.CooldownWindow <= 0 {
		return fmt.Errorf("COOLDOWN_WINDOW must be positive, got %s", c.CooldownWindow)
	}
	return nil
}

func isMissingToken(err error) bool {
	var aggErr env.AggregateError
	if !errors.As(err, &aggErr) {
		return false
	}
	for _, e := range aggErr.Errors {
		var notSet env.VarIsNotSetError
		if errors.As(e, &notSet) && notSet.Key == "DISCORD_TOKEN" {
			return true
		}
		var empty env.EmptyVarError
		if errors.As(e, &empty) && empty.Key == "DISCORD_TOKEN" {
			return true
		}
	}
	return false
}
