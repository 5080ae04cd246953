package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN         string `env:"DATABASE_DSN,required=true"`
	RedisURL            string `env:"REDIS_URL,required=true"`
	PushGatewayURL      string `env:"PUSH_GATEWAY_URL,required=true"`
	RateLimitPerSec     int    `env:"RATE_LIMIT_PER_SEC,default=20"`
	ReminderHorizonDays int    `env:"REMINDER_HORIZON_DAYS,default=7"`
	DefaultWindowDays   int    `env:"DEFAULT_WINDOW_DAYS,default=7"`
	SweepCron           string `env:"SWEEP_CRON,default=0 9 * * *"`
	SweepMaxRetries     int    `env:"SWEEP_MAX_RETRIES,default=3"`
	APIPort             int    `env:"API_PORT,default=8080"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
