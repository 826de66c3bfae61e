package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"rostergate.org/internal/seat"
)

// Config is the process configuration, read from ROSTERGATE_* environment variables.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":9090"`

	PGDSN string `env:"PG_DSN"`

	RedisURL       string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RosterKey      string        `env:"ROSTER_KEY" envDefault:"rostergate:roster"`
	RosterInterval time.Duration `env:"ROSTER_INTERVAL" envDefault:"30s"`
	RosterMaxAge   time.Duration `env:"ROSTER_MAX_AGE" envDefault:"10m"`

	SeatFreshness     time.Duration `env:"SEAT_FRESHNESS" envDefault:"90s"`
	SeatCountInterval time.Duration `env:"SEAT_COUNT_INTERVAL" envDefault:"30s"`

	WorkerSecrets   []string `env:"WORKER_SECRETS" envSeparator:","`
	QueueCategories []string `env:"QUEUE_CATEGORIES" envSeparator:"," envDefault:"notifications,role_sync"`

	GrantSecret string        `env:"GRANT_SECRET"`
	GrantTTL    time.Duration `env:"GRANT_TTL" envDefault:"60s"`

	RateBurst  int   `env:"RATE_BURST" envDefault:"20"`
	RatePerSec int   `env:"RATE_PER_SEC" envDefault:"10"`
	MaxBody    int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	TrustProxy bool  `env:"TRUST_PROXY" envDefault:"false"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "ROSTERGATE_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.SeatFreshness = seat.ClampFreshness(cfg.SeatFreshness)
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	return cfg, nil
}
