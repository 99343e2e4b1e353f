package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"guild-tracker/internal/constants"
)

type Config struct {
	BlizzardClientID     string
	BlizzardClientSecret string
	Region               string
	Locale               string
	// APIBaseURL and TokenURL override the region-derived Blizzard
	// endpoints. Needed for the CN region, empty everywhere else.
	APIBaseURL   string
	TokenURL     string
	GuildRealm   string
	GuildName    string
	SeasonID     int
	AdminAPIKey  string
	DBPath       string
	ServerPort   string
	LogLevel     string
	SyncInterval time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		BlizzardClientID:     getEnv("BLIZZARD_CLIENT_ID", ""),
		BlizzardClientSecret: getEnv("BLIZZARD_CLIENT_SECRET", ""),
		Region:               getEnv("BLIZZARD_REGION", "us"),
		Locale:               getEnv("BLIZZARD_LOCALE", "en_US"),
		APIBaseURL:           getEnv("BLIZZARD_API_URL", ""),
		TokenURL:             getEnv("BLIZZARD_TOKEN_URL", ""),
		GuildRealm:           getEnv("GUILD_REALM", ""),
		GuildName:            getEnv("GUILD_NAME", ""),
		SeasonID:             getEnvInt("MYTHIC_SEASON_ID", constants.DefaultSeasonID),
		AdminAPIKey:          getEnv("ADMIN_API_KEY", ""),
		DBPath:               getEnv("DB_PATH", "guild.db"),
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		SyncInterval:         getEnvDuration("SYNC_INTERVAL", constants.DefaultSyncInterval),
	}

	if cfg.BlizzardClientID == "" {
		return nil, fmt.Errorf("BLIZZARD_CLIENT_ID is required")
	}
	if cfg.BlizzardClientSecret == "" {
		return nil, fmt.Errorf("BLIZZARD_CLIENT_SECRET is required")
	}
	if cfg.GuildRealm == "" {
		return nil, fmt.Errorf("GUILD_REALM is required")
	}
	if cfg.GuildName == "" {
		return nil, fmt.Errorf("GUILD_NAME is required")
	}
	if cfg.AdminAPIKey == "" {
		logger.Warn().Msg("ADMIN_API_KEY not set, sync and refresh endpoints are unprotected")
	}

	logger.Info().
		Str("region", cfg.Region).
		Str("guild_realm", cfg.GuildRealm).
		Str("guild_name", cfg.GuildName).
		Int("season_id", cfg.SeasonID).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("sync_interval", cfg.SyncInterval).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

var Module = fx.Provide(Load)
