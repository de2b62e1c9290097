package gemini

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/core"
)

// Generator implements ai.Generator on a Gemini model.
type Generator struct {
	config  *ai.Config
	clients *clients
	slots   chan struct{}
	logger  *slog.Logger

	// call performs the request; replaced in tests.
	call func(ctx context.Context, apiKey string, req ai.GenerateRequest) (*genai.GenerateContentResponse, error)
}

func newGenerator(config *ai.Config) (*Generator, error) {
	config.Normalize()
	if err := config.ValidateGemini(); err != nil {
		return nil, err
	}

	g := &Generator{
		config:  config,
		clients: newClients(),
		slots:   make(chan struct{}, config.ConcurrentRequests),
		logger:  slog.Default().With("component", "gemini-generator"),
	}
	for i := 0; i < config.ConcurrentRequests; i++ {
		g.slots <- struct{}{}
	}
	g.call = g.send
	return g, nil
}

// NewGenerator creates a Gemini generator.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

func (g *Generator) send(ctx context.Context, apiKey string, req ai.GenerateRequest) (*genai.GenerateContentResponse, error) {
	client, err := g.clients.get(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	model := client.GenerativeModel(g.config.GeminiModel)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	return model.GenerateContent(ctx, genai.Text(req.Prompt))
}

// Generate sends the prompt to Gemini using the request credential, or the
// configured API key when the request has none.
func (g *Generator) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	apiKey := req.Credential
	if apiKey == "" {
		apiKey = g.config.GeminiAPIKey
	}
	if apiKey == "" {
		return "", core.Errorf(core.KindAuth, "gemini generate", "credential required")
	}

	select {
	case <-g.slots:
	case <-ctx.Done():
		return "", classify("gemini generate", ctx.Err())
	}
	defer func() { g.slots <- struct{}{} }()

	if g.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.RequestTimeout)
		defer cancel()
	}

	resp, err := g.call(ctx, apiKey, req)
	if err != nil {
		g.logger.Error("generation failed", "err", err)
		return "", classify("gemini generate", err)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", core.Errorf(core.KindProvider, "gemini generate", "empty response")
	}
	return text, nil
}

// Close releases every cached client.
func (g *Generator) Close() error {
	return g.clients.close()
}
