package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort uint16 `env:"REDIS_PORT" envDefault:"6379" validate:"min=1000,max=65535"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8086" validate:"min=1000,max=65535"`
	PublicBaseURL  string `env:"PUBLIC_BASE_URL"  envDefault:"http://localhost:8086" validate:"url"`

	// Buffer between scheduling playback and the shared start instant, so
	// every client has time to prepare before playing in lock-step.
	PlaybackSyncBuffer time.Duration `env:"PLAYBACK_SYNC_BUFFER" envDefault:"1s"`

	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"24h"`
	ExportTTL      time.Duration `env:"EXPORT_TTL"       envDefault:"720h"` // 30 days
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
