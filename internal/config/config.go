package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
		RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"60s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Optimization struct {
		// Concurrent cost evaluations per generation when a run does not choose
		WorkerCount int `env:"OPT_WORKER_COUNT" envDefault:"4"`

		DefaultPopulation int     `env:"OPT_DEFAULT_POPULATION" envDefault:"50"`
		DefaultF          float64 `env:"OPT_DEFAULT_F" envDefault:"0.8"`
		DefaultCR         float64 `env:"OPT_DEFAULT_CR" envDefault:"0.9"`
		DefaultSeed       int64   `env:"OPT_DEFAULT_SEED" envDefault:"123"`

		MaxGenerationsPerStep int `env:"OPT_MAX_GENERATIONS_PER_STEP" envDefault:"10000"`
		MaxRuns               int `env:"OPT_MAX_RUNS" envDefault:"100"`
		MaxDimension          int `env:"OPT_MAX_DIMENSION" envDefault:"1000"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Default to debug logging in development
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects limits the server cannot operate with.
func (c *Config) Validate() error {
	o := c.Optimization
	switch {
	case o.WorkerCount < 0:
		return fmt.Errorf("OPT_WORKER_COUNT must not be negative, got %d", o.WorkerCount)
	case o.MaxGenerationsPerStep < 1:
		return fmt.Errorf("OPT_MAX_GENERATIONS_PER_STEP must be positive, got %d", o.MaxGenerationsPerStep)
	case o.MaxRuns < 1:
		return fmt.Errorf("OPT_MAX_RUNS must be positive, got %d", o.MaxRuns)
	case o.MaxDimension < 1:
		return fmt.Errorf("OPT_MAX_DIMENSION must be positive, got %d", o.MaxDimension)
	}
	return nil
}
