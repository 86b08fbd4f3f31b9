package config

import "time"

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	PostgresDSN       string
	MaxConnections    int32
	MinConnections    int32
	MaxConnIdleTime   time.Duration
	MaxConnLifetime   time.Duration
	HealthCheckPeriod time.Duration
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string
	Model      string
	Dimensions int
	CacheSize  int
}

// FilterConfig holds filter pipeline settings.
type FilterConfig struct {
	EnableKeyword    bool
	EnableSemantic   bool
	MaxMessageLength int
	DefaultThreshold float32
}

// ForwardConfig holds forward delivery worker settings.
type ForwardConfig struct {
	PollInterval  time.Duration
	BatchSize     int
	MaxTextLength int
}

// DatabaseCfg returns the database configuration extracted from Config.
func (c *Config) DatabaseCfg() DatabaseConfig {
	return DatabaseConfig{
		PostgresDSN:       c.PostgresDSN,
		MaxConnections:    c.DBMaxConnections,
		MinConnections:    c.DBMinConnections,
		MaxConnIdleTime:   c.DBMaxConnIdleTime,
		MaxConnLifetime:   c.DBMaxConnLifetime,
		HealthCheckPeriod: c.DBHealthCheckPeriod,
	}
}

// EmbeddingCfg returns the embedding provider configuration.
func (c *Config) EmbeddingCfg() EmbeddingConfig {
	return EmbeddingConfig{
		APIKey:     c.EmbeddingAPIKey,
		Model:      c.EmbeddingModel,
		Dimensions: c.EmbeddingDimensions,
		CacheSize:  c.EmbeddingCacheSize,
	}
}

// FilterCfg returns the filter pipeline configuration.
func (c *Config) FilterCfg() FilterConfig {
	return FilterConfig{
		EnableKeyword:    c.FilterEnableKeyword,
		EnableSemantic:   c.FilterEnableSemantic,
		MaxMessageLength: c.FilterMaxMessageLength,
		DefaultThreshold: c.SemanticThreshold,
	}
}

// ForwardCfg returns the forward delivery worker configuration.
func (c *Config) ForwardCfg() ForwardConfig {
	return ForwardConfig{
		PollInterval:  c.ForwardPollInterval,
		BatchSize:     c.ForwardBatchSize,
		MaxTextLength: c.ForwardMaxTextLength,
	}
}
