// Package config loads process configuration from the environment,
// optionally seeded from a .env file
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DiscordToken string `envconfig:"DISCORD_TOKEN" required:"true"`

	SettingsFile string `envconfig:"SETTINGS_FILE" default:"data/clanaudit/settings.json"`
	CacheDir     string `envconfig:"CACHE_DIR" default:"data/clanaudit/clans"`
	FamilyConfig string `envconfig:"FAMILY_CONFIG" default:"data/clanaudit/family.yaml"`

	// Defaults for API access; values stored in the settings file by the
	// auth and api commands take precedence once set
	ClanAPIURL   string `envconfig:"CLAN_API_URL"`
	PlayerAPIURL string `envconfig:"PLAYER_API_URL"`
	APIToken     string `envconfig:"API_TOKEN"`

	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"5m"`
	MainCycle       time.Duration `envconfig:"MAIN_CYCLE" default:"30s"`

	// Rate limiting towards the clan API
	RateRequests int           `envconfig:"RATE_REQUESTS" default:"20"`
	RateWindow   time.Duration `envconfig:"RATE_WINDOW" default:"1s"`
}

const envPrefix = "CLANAUDIT"

func Load(dotenvFile string) (*Config, error) {

	if dotenvFile != "" {
		// Missing .env files are fine; the environment may be complete
		_ = godotenv.Load(dotenvFile)
	} else {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("processing environment configuration: %w", err)
	}
	return &cfg, nil
}
