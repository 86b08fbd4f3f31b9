package config

import (
	"os"
	"testing"
)

const (
	testEnvPostgresDSN = "POSTGRES_DSN"
	testEnvBotToken    = "BOT_TOKEN"

	testPostgresDSN = "postgres://localhost/test"
	testBotToken    = "123456:ABC-DEF"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
	t.Setenv(testEnvBotToken, testBotToken)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv(testEnvPostgresDSN)
	os.Unsetenv(testEnvBotToken)

	_, err := Load()
	if err == nil {
		t.Error("expected error for missing required env vars")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AppEnv != "local" {
		t.Errorf("AppEnv = %q, want %q", cfg.AppEnv, "local")
	}

	if cfg.PostgresDSN != testPostgresDSN {
		t.Errorf("PostgresDSN = %q, want %q", cfg.PostgresDSN, testPostgresDSN)
	}

	if cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel = %q, want default", cfg.EmbeddingModel)
	}

	if !cfg.FilterEnableKeyword || !cfg.FilterEnableSemantic {
		t.Error("filter matchers should default to enabled")
	}

	if cfg.ForwardBatchSize != 10 {
		t.Errorf("ForwardBatchSize = %d, want 10", cfg.ForwardBatchSize)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SEMANTIC_THRESHOLD", "0.85")
	t.Setenv("FORWARD_BATCH_SIZE", "25")
	t.Setenv("FILTER_ENABLE_SEMANTIC", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SemanticThreshold != 0.85 {
		t.Errorf("SemanticThreshold = %v, want 0.85", cfg.SemanticThreshold)
	}

	if cfg.ForwardBatchSize != 25 {
		t.Errorf("ForwardBatchSize = %d, want 25", cfg.ForwardBatchSize)
	}

	if cfg.FilterEnableSemantic {
		t.Error("FilterEnableSemantic should be overridden to false")
	}

	fcfg := cfg.FilterCfg()
	if fcfg.EnableSemantic {
		t.Error("FilterCfg should carry the override")
	}
}

func TestDatabaseCfgDefaults(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	dbCfg := cfg.DatabaseCfg()
	if dbCfg.MaxConnections != 25 || dbCfg.MinConnections != 5 {
		t.Errorf("unexpected pool defaults: max=%d min=%d", dbCfg.MaxConnections, dbCfg.MinConnections)
	}
}

func TestDomainCfgExtractors(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	embeddingCfg := cfg.EmbeddingCfg()
	if embeddingCfg.Model != cfg.EmbeddingModel || embeddingCfg.Dimensions != cfg.EmbeddingDimensions {
		t.Errorf("EmbeddingCfg() = %+v, want fields copied from Config", embeddingCfg)
	}

	filterCfg := cfg.FilterCfg()
	if filterCfg.EnableKeyword != cfg.FilterEnableKeyword || filterCfg.MaxMessageLength != cfg.FilterMaxMessageLength {
		t.Errorf("FilterCfg() = %+v, want fields copied from Config", filterCfg)
	}

	forwardCfg := cfg.ForwardCfg()
	if forwardCfg.BatchSize != cfg.ForwardBatchSize || forwardCfg.PollInterval != cfg.ForwardPollInterval {
		t.Errorf("ForwardCfg() = %+v, want fields copied from Config", forwardCfg)
	}
}
