// Package app wires the service modes together.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
	"github.com/lueurxax/telegram-filter-bot/internal/core/embeddings"
	"github.com/lueurxax/telegram-filter-bot/internal/filters"
	"github.com/lueurxax/telegram-filter-bot/internal/ingest/sourcecache"
	"github.com/lueurxax/telegram-filter-bot/internal/platform/config"
	"github.com/lueurxax/telegram-filter-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-filter-bot/internal/process/dispatch"
	"github.com/lueurxax/telegram-filter-bot/internal/process/forward"
	db "github.com/lueurxax/telegram-filter-bot/internal/storage"
	"github.com/lueurxax/telegram-filter-bot/internal/telegrambot"
)

// MessageSource streams incoming messages from the platform. The default
// implementation is the Bot API reader; tests inject their own.
type MessageSource interface {
	Messages(ctx context.Context) (<-chan domain.IncomingMessage, error)
}

type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger

	// source overrides the default Bot API reader when set.
	source MessageSource
}

func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{cfg: cfg, database: database, logger: logger}
}

// SetMessageSource replaces the default reader. Must be called before RunReader.
func (a *App) SetMessageSource(source MessageSource) {
	a.source = source
}

func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunBot runs the user-facing control bot.
func (a *App) RunBot(ctx context.Context) error {
	a.logger.Info().Msg("Starting bot mode")

	b, err := telegrambot.New(a.cfg.BotToken, a.database, a.logger)
	if err != nil {
		return fmt.Errorf("bot init: %w", err)
	}

	if err := b.Run(ctx); err != nil {
		return fmt.Errorf("bot run: %w", err)
	}

	return nil
}

// RunReader consumes platform messages, gates them on the active-source set
// and dispatches each through the filter pipeline.
func (a *App) RunReader(ctx context.Context) error {
	a.logger.Info().Msg("Starting reader mode")

	source := a.source
	if source == nil {
		reader, err := telegrambot.NewReader(a.cfg.BotToken, a.logger)
		if err != nil {
			return fmt.Errorf("reader init: %w", err)
		}

		source = reader
	}

	cache := sourcecache.New(a.database, a.logger)
	if err := cache.Refresh(ctx); err != nil {
		return fmt.Errorf("source cache warmup: %w", err)
	}

	go func() {
		if err := cache.Run(ctx, a.cfg.SourceCacheRefreshInterval); err != nil && ctx.Err() == nil {
			a.logger.Error().Err(err).Msg("source cache loop stopped")
		}
	}()

	dispatcher := dispatch.New(a.database, a.newPipeline(), nil, a.logger)

	messages, err := source.Messages(ctx)
	if err != nil {
		return fmt.Errorf("message source: %w", err)
	}

	for incoming := range messages {
		if !cache.IsAllowed(incoming.ChatID) {
			observability.MessagesRejected.WithLabelValues("source_inactive").Inc()

			continue
		}

		if _, err := dispatcher.Dispatch(ctx, &incoming); err != nil {
			a.logger.Error().Err(err).Int64("chat_id", incoming.ChatID).Msg("dispatch failed")
		}
	}

	return ctx.Err()
}

// RunWorker runs the background loops: source-cache refresh and pending
// forward delivery.
func (a *App) RunWorker(ctx context.Context) error {
	a.logger.Info().Msg("Starting worker mode")

	sender, err := telegrambot.NewSender(a.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("sender init: %w", err)
	}

	cache := sourcecache.New(a.database, a.logger)

	go func() {
		if err := cache.Run(ctx, a.cfg.SourceCacheRefreshInterval); err != nil && ctx.Err() == nil {
			a.logger.Error().Err(err).Msg("source cache loop stopped")
		}
	}()

	forwardCfg := a.cfg.ForwardCfg()

	worker := forward.New(a.database, sender, forwardCfg.BatchSize, forwardCfg.MaxTextLength, a.logger)

	if err := worker.Run(ctx, forwardCfg.PollInterval); err != nil {
		return fmt.Errorf("forward worker run: %w", err)
	}

	return nil
}

func (a *App) newPipeline() *filters.Pipeline {
	embeddingCfg := a.cfg.EmbeddingCfg()
	filterCfg := a.cfg.FilterCfg()

	encoder := embeddings.NewEncoder(embeddings.Config{
		OpenAIAPIKey: embeddingCfg.APIKey,
		OpenAIModel:  embeddingCfg.Model,
		Dimensions:   embeddingCfg.Dimensions,
		CacheSize:    embeddingCfg.CacheSize,
	}, a.logger)

	var semantic *filters.Matcher
	if filterCfg.EnableSemantic {
		semantic = filters.NewMatcher(encoder, a.logger)
		semantic.SetTopicEncoder(embeddings.NewStoreCache(encoder, a.database, embeddingCfg.Model, a.logger))
	}

	return filters.NewPipeline(filters.PipelineConfig{
		EnableKeyword:    filterCfg.EnableKeyword,
		EnableSemantic:   filterCfg.EnableSemantic,
		MaxMessageLength: filterCfg.MaxMessageLength,
	}, semantic, a.logger)
}
