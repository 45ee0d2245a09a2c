package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"hitloop"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	// PublicBaseURL is the externally reachable host of the annotation
	// UI. Callback links embedded in issued work units are built from
	// it, so marketplace submitters land on a routable page.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	Marketplace Marketplace
	Worker      Worker
}

// Marketplace selects the crowdsourcing backend universe. Sandbox and
// production are separate universes with separate data.
type Marketplace struct {
	Sandbox         bool   `env:"MTURK_SANDBOX" envDefault:"true"`
	Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"MTURK_ENDPOINT"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

type Worker struct {
	PollInterval   time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
	IngestInterval time.Duration `env:"INGEST_INTERVAL" envDefault:"15s"`
	PollLimit      int           `env:"POLL_LIMIT" envDefault:"25"`
	IngestLimit    int           `env:"INGEST_LIMIT" envDefault:"20"`
	IssueBatchSize int           `env:"ISSUE_BATCH_SIZE" envDefault:"25"`
}

func Load() (Config, error) {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	c.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
	return c, nil
}
