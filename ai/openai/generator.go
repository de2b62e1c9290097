package openai

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/sync/semaphore"
)

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	config *ai.Config
	sem    *semaphore.Weighted
	logger *slog.Logger

	mu      sync.Mutex
	clients map[core.ID]llms.Model

	// newClient is swapped in tests.
	newClient func(token string) (llms.Model, error)
}

// newGenerator is an internal constructor that returns the concrete type.
func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	g := &Generator{
		config:  config,
		sem:     semaphore.NewWeighted(int64(config.ConcurrentRequests)),
		logger:  slog.Default().With("component", "openai-generator"),
		clients: make(map[core.ID]llms.Model),
	}
	g.newClient = func(token string) (llms.Model, error) {
		return openai.New(
			openai.WithBaseURL(config.GenerationHost),
			openai.WithToken(token),
			openai.WithModel(config.GenerationModel),
		)
	}
	return g, nil
}

// NewGenerator creates a new generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

// client returns the client for token, creating it on first use.
// The cache is keyed by a hash of the token.
func (g *Generator) client(token string) (llms.Model, error) {
	key := core.IDFromContent(token)

	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[key]; ok {
		return c, nil
	}
	c, err := g.newClient(token)
	if err != nil {
		return nil, err
	}
	g.clients[key] = c
	return c, nil
}

// Generate sends the prompt as a single user message.
// A request without a credential falls back to the configured token.
func (g *Generator) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	token := req.Credential
	if token == "" {
		token = g.config.GenerationToken
	}
	if token == "" {
		return "", core.Errorf(core.KindAuth, "generate", "credential required")
	}

	client, err := g.client(token)
	if err != nil {
		return "", ai.Classify("generate", err)
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", ai.Classify("generate", err)
	}
	defer g.sem.Release(1)

	if g.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.RequestTimeout)
		defer cancel()
	}

	opts := []llms.CallOption{llms.WithTemperature(0.2)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	g.logger.Debug("generating", "prompt_length", len(req.Prompt), "max_tokens", req.MaxTokens)
	out, err := llms.GenerateFromSinglePrompt(ctx, client, req.Prompt, opts...)
	if err != nil {
		g.logger.Error("generation failed", "err", err)
		return "", ai.Classify("generate", err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", core.Errorf(core.KindProvider, "generate", "empty response")
	}
	return out, nil
}
