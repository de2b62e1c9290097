package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	token   string
	reply   string
	err     error
	prompts []string
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, m := range messages {
		for _, p := range m.Parts {
			if tp, ok := p.(llms.TextContent); ok {
				f.prompts = append(f.prompts, tp.Text)
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func newTestGenerator(t *testing.T, opts ...ai.ConfigOption) (*Generator, map[string]*fakeModel) {
	t.Helper()
	g, err := newGenerator(ai.NewConfig(opts...))
	require.NoError(t, err)

	models := make(map[string]*fakeModel)
	g.newClient = func(token string) (llms.Model, error) {
		m := &fakeModel{token: token, reply: "  answer for " + token + "  "}
		models[token] = m
		return m, nil
	}
	return g, models
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	g, models := newTestGenerator(t)

	out, err := g.Generate(ctx, ai.GenerateRequest{Prompt: "hello", Credential: "key-a"})
	require.NoError(t, err)
	assert.Equal(t, "answer for key-a", out)
	assert.Equal(t, []string{"hello"}, models["key-a"].prompts)

	_, err = g.Generate(ctx, ai.GenerateRequest{Prompt: "again", Credential: "key-a"})
	require.NoError(t, err)
	_, err = g.Generate(ctx, ai.GenerateRequest{Prompt: "other", Credential: "key-b"})
	require.NoError(t, err)

	assert.Len(t, models, 2, "one client per credential")
	assert.Len(t, models["key-a"].prompts, 2)
}

func TestGenerator_MissingCredential(t *testing.T) {
	g, models := newTestGenerator(t)

	_, err := g.Generate(context.Background(), ai.GenerateRequest{Prompt: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAuth)
	assert.Empty(t, models)
}

func TestGenerator_FallbackToken(t *testing.T) {
	g, _ := newTestGenerator(t, ai.WithGenerationToken("shared"))

	out, err := g.Generate(context.Background(), ai.GenerateRequest{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "answer for shared", out)
}

func TestGenerator_ClassifiesErrors(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGenerator(t)
	g.newClient = func(token string) (llms.Model, error) {
		return &fakeModel{err: errors.New("API returned unexpected status code: 429")}, nil
	}

	_, err := g.Generate(ctx, ai.GenerateRequest{Prompt: "hello", Credential: "k"})
	require.Error(t, err)
	assert.Equal(t, core.KindRateLimited, core.KindOf(err))
}

func TestGenerator_EmptyResponse(t *testing.T) {
	g, _ := newTestGenerator(t)
	g.newClient = func(token string) (llms.Model, error) {
		return &fakeModel{reply: "   "}, nil
	}

	_, err := g.Generate(context.Background(), ai.GenerateRequest{Prompt: "hello", Credential: "k"})
	require.Error(t, err)
	assert.Equal(t, core.KindProvider, core.KindOf(err))
}

func TestGenerator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g, _ := newTestGenerator(t, ai.WithConcurrentRequests(1))
	require.NoError(t, g.sem.Acquire(context.Background(), 1))
	defer g.sem.Release(1)
	cancel()

	_, err := g.Generate(ctx, ai.GenerateRequest{Prompt: "hello", Credential: "k"})
	require.Error(t, err)
	assert.Equal(t, core.KindCanceled, core.KindOf(err))
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(ai.NewConfig())
	require.NoError(t, err)
	assert.NotNil(t, p.Embedder())
	assert.NotNil(t, p.Generator())
	assert.NoError(t, p.Close())

	_, err = NewProvider(ai.NewConfig(ai.WithEmbeddingModel("")))
	assert.Error(t, err)
}
