package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all process configuration, parsed from the environment.
type Config struct {
	DiscordToken          string   `env:"DISCORD_TOKEN,required"`
	DiscordGuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	InitSlashCommands     bool     `env:"INIT_SLASH_COMMANDS" envDefault:"true"`

	StoragePath string `env:"STORAGE_PATH" envDefault:"stations.json"`
	LogPath     string `env:"LOG_PATH"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Catalog search tuning.
	CatalogRequestsPerSec float64 `env:"CATALOG_RPS" envDefault:"2"`
	CatalogMaxResults     int     `env:"CATALOG_MAX_RESULTS" envDefault:"30"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, falling back to system environment variables")
	}
}

// New parses the environment into a Config.
func New() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}
