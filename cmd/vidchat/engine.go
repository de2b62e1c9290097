package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/vidchat"
	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/ai/gemini"
	"github.com/poiesic/vidchat/ai/openai"
	"github.com/poiesic/vidchat/ai/youtube"
	"github.com/poiesic/vidchat/chat"
	"github.com/poiesic/vidchat/chunker"
	"github.com/poiesic/vidchat/config"
	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/events"
	"github.com/poiesic/vidchat/ingestion"
	"github.com/poiesic/vidchat/search"
	"github.com/poiesic/vidchat/storage"
	"github.com/poiesic/vidchat/storage/badger"
	"github.com/poiesic/vidchat/storage/postgres"
	"github.com/poiesic/vidchat/summary"
)

// closeAll runs closers in reverse order.
func closeAll(closers []func() error) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			slog.Warn("close failed", "err", err)
		}
	}
}

func closeRepositories(repos *storage.Repositories) {
	if repos.Close != nil {
		closeAll([]func() error{repos.Close})
	}
}

// closerOf returns v's Close method when it has one.
func closerOf(v any) (func() error, bool) {
	c, ok := v.(io.Closer)
	if !ok {
		return nil, false
	}
	return c.Close, true
}

// buildProviders creates the provider adapters selected by cfg. The returned
// closers release them.
func buildProviders(cfg *config.Config) (ai.Providers, []func() error, error) {
	var (
		providers ai.Providers
		closers   []func() error
	)
	fail := func(err error) (ai.Providers, []func() error, error) {
		closeAll(closers)
		return ai.Providers{}, nil, err
	}

	aiConfig := cfg.AI()
	if err := aiConfig.Validate(); err != nil {
		return fail(fmt.Errorf("invalid AI configuration: %w", err))
	}

	openaiProvider, err := openai.NewProvider(aiConfig)
	if err != nil {
		return fail(fmt.Errorf("failed to create openai provider: %w", err))
	}
	closers = append(closers, openaiProvider.Close)
	providers.Embedder = openaiProvider.Embedder()
	providers.Generator = openaiProvider.Generator()

	if cfg.Providers.Generator == "gemini" {
		if err := aiConfig.ValidateGemini(); err != nil {
			return fail(err)
		}
		generator, err := gemini.NewGenerator(aiConfig)
		if err != nil {
			return fail(fmt.Errorf("failed to create gemini generator: %w", err))
		}
		if c, ok := closerOf(generator); ok {
			closers = append(closers, c)
		}
		providers.Generator = generator
	}

	// Audio transcription needs a Gemini key; captions work without one.
	var audioTranscriber ai.Transcriber
	if aiConfig.GeminiAPIKey != "" {
		audioTranscriber, err = gemini.NewTranscriber(aiConfig)
		if err != nil {
			return fail(fmt.Errorf("failed to create gemini transcriber: %w", err))
		}
		if c, ok := closerOf(audioTranscriber); ok {
			closers = append(closers, c)
		}
	}
	switch cfg.Providers.Transcriber {
	case config.TranscriberGemini:
		if audioTranscriber == nil {
			return fail(fmt.Errorf("transcriber %q needs a Gemini API key", config.TranscriberGemini))
		}
		providers.Transcriber = audioTranscriber
	default:
		providers.Transcriber = youtube.NewCaptionTranscriber(audioTranscriber)
	}

	fetcher, err := youtube.NewFetcher(youtube.WithLogger(slog.Default().With("component", "youtube")))
	if err != nil {
		return fail(fmt.Errorf("failed to create media fetcher: %w", err))
	}
	providers.Media = fetcher

	return providers, closers, nil
}

// openRepositories opens badger storage, moving the vector index to
// postgres when a DSN is configured.
func openRepositories(ctx context.Context, cfg *config.Config) (*storage.Repositories, []func() error, error) {
	var (
		repos *storage.Repositories
		err   error
	)
	if cfg.Storage.Path == "" {
		repos, err = badger.NewMemoryRepositories()
	} else {
		repos, err = badger.NewRepositories(cfg.Storage.Path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	var closers []func() error
	if cfg.Storage.PostgresDSN != "" {
		index, err := postgres.NewVectorIndex(ctx, cfg.Storage.PostgresDSN,
			postgres.WithLogger(slog.Default().With("component", "postgres")))
		if err != nil {
			closeRepositories(repos)
			return nil, nil, fmt.Errorf("failed to open postgres index: %w", err)
		}
		repos.Index = index
		closers = append(closers, index.Close)
	}
	return repos, closers, nil
}

// buildNotifier logs every transition and publishes it to redis when
// configured.
func buildNotifier(ctx context.Context, cfg *config.Config) (ingestion.Notifier, []func() error, error) {
	notifiers := events.Multi{events.NewLogNotifier(slog.Default().With("component", "events"))}
	if cfg.Events.RedisURL == "" {
		return notifiers, nil, nil
	}
	redisNotifier, err := newRedisNotifier(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return append(notifiers, redisNotifier), []func() error{redisNotifier.Close}, nil
}

func newRedisNotifier(ctx context.Context, cfg *config.Config) (*events.RedisNotifier, error) {
	n, err := events.NewRedisNotifier(ctx, cfg.Events.RedisURL,
		events.WithChannelPrefix(cfg.Events.ChannelPrefix),
		events.WithLogger(slog.Default().With("component", "events")))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return n, nil
}

// engineOptions translates cfg into component options.
func engineOptions(cfg *config.Config, notifier ingestion.Notifier) []vidchat.Option {
	return []vidchat.Option{
		vidchat.WithLogger(slog.Default()),
		vidchat.WithPipelineOptions(
			ingestion.WithPoolSize(cfg.Ingestion.PoolSize),
			ingestion.WithChunkOptions(chunker.Options{
				TargetSize: cfg.Ingestion.ChunkTarget,
				Overlap:    cfg.Ingestion.ChunkOverlap,
				Estimator:  core.EstimateTokens,
			}),
			ingestion.WithNotifier(notifier),
		),
		vidchat.WithSearchOptions(
			search.WithTopK(cfg.Chat.TopK),
			search.WithMinSimilarity(cfg.Chat.MinSimilarity),
		),
		vidchat.WithChatOptions(
			chat.WithHistoryWindow(cfg.Chat.HistoryWindow),
			chat.WithMinChunks(cfg.Chat.MinChunks),
			chat.WithContextBudget(cfg.Chat.ContextBudget),
			chat.WithMaxAnswerTokens(cfg.Chat.MaxAnswerTokens),
			chat.WithGeneralKnowledge(cfg.Chat.GeneralKnowledge),
		),
		vidchat.WithSummaryOptions(
			summary.WithInputBudget(cfg.Summary.InputBudget),
			summary.WithMaxTokens(cfg.Summary.MaxTokens),
			summary.WithConcurrency(cfg.Summary.Concurrency),
		),
	}
}

// openEngine builds an Engine from cfg. Engine.Close releases everything
// opened here.
func openEngine(ctx context.Context, cfg *config.Config) (*vidchat.Engine, error) {
	providers, closers, err := buildProviders(cfg)
	if err != nil {
		return nil, err
	}

	notifier, notifierClosers, err := buildNotifier(ctx, cfg)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	closers = append(closers, notifierClosers...)

	repos, repoClosers, err := openRepositories(ctx, cfg)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	closers = append(closers, repoClosers...)

	opts := engineOptions(cfg, notifier)
	for _, c := range closers {
		opts = append(opts, vidchat.WithCloser(c))
	}
	engine, err := vidchat.NewEngine(repos, providers, opts...)
	if err != nil {
		closeAll(closers)
		closeRepositories(repos)
		return nil, err
	}
	return engine, nil
}
