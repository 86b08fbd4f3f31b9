package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	BotToken    string `env:"BOT_TOKEN,required"`

	// Database pool
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"25"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"5"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Embeddings
	EmbeddingAPIKey     string `env:"EMBEDDING_API_KEY"`
	EmbeddingModel      string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimensions int    `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`
	EmbeddingCacheSize  int    `env:"EMBEDDING_CACHE_SIZE" envDefault:"1024"`

	// Filtering
	FilterEnableKeyword    bool    `env:"FILTER_ENABLE_KEYWORD" envDefault:"true"`
	FilterEnableSemantic   bool    `env:"FILTER_ENABLE_SEMANTIC" envDefault:"true"`
	FilterMaxMessageLength int     `env:"FILTER_MAX_MESSAGE_LENGTH" envDefault:"4096"`
	SemanticThreshold      float32 `env:"SEMANTIC_THRESHOLD" envDefault:"0.7"`

	// Background loops
	SourceCacheRefreshInterval time.Duration `env:"SOURCE_CACHE_REFRESH_INTERVAL" envDefault:"60s"`
	ForwardPollInterval        time.Duration `env:"FORWARD_POLL_INTERVAL" envDefault:"10s"`
	ForwardBatchSize           int           `env:"FORWARD_BATCH_SIZE" envDefault:"10"`
	ForwardMaxTextLength       int           `env:"FORWARD_MAX_TEXT_LENGTH" envDefault:"3500"`

	// Observability
	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`
}

// Load reads configuration from the environment, with an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}

// IsLocal reports whether the app runs in the local environment.
func (c *Config) IsLocal() bool {
	return c.AppEnv == "local"
}
