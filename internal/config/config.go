package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/geoquest.db"`
	RedisURL string     `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// GeofenceRadius is the proximity threshold for entering a zone;
	// MoveSampleDistance the minimum displacement between recorded move
	// samples. Numerically equal by default but deliberately independent.
	GeofenceRadius     float64 `env:"GEOFENCE_RADIUS_M" envDefault:"5"`
	MoveSampleDistance float64 `env:"MOVE_SAMPLE_M" envDefault:"5"`

	// SubscriptionTTL is the hard lifetime ceiling of a live subscription;
	// observers are force-closed when it elapses and must resubscribe.
	SubscriptionTTL time.Duration `env:"SUBSCRIPTION_TTL" envDefault:"30m"`

	SeedDemo bool `env:"SEED_DEMO" envDefault:"true"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
