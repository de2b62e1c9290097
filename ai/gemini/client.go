package gemini

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/core"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// clients caches one genai client per API key.
type clients struct {
	mu    sync.Mutex
	byKey map[core.ID]*genai.Client
}

func newClients() *clients {
	return &clients{byKey: make(map[core.ID]*genai.Client)}
}

func (c *clients) get(ctx context.Context, apiKey string) (*genai.Client, error) {
	key := core.IDFromContent(apiKey)

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.byKey[key]; ok {
		return client, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	c.byKey[key] = client
	return client, nil
}

func (c *clients) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for key, client := range c.byKey {
		if err := client.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.byKey, key)
	}
	return errors.Join(errs...)
}

var grpcKinds = map[codes.Code]core.ErrorKind{
	codes.Unauthenticated:   core.KindAuth,
	codes.PermissionDenied:  core.KindAuth,
	codes.NotFound:          core.KindNotFound,
	codes.ResourceExhausted: core.KindRateLimited,
	codes.Unavailable:       core.KindNetwork,
	codes.DeadlineExceeded:  core.KindNetwork,
	codes.InvalidArgument:   core.KindInput,
	codes.Canceled:          core.KindCanceled,
}

// classify maps Gemini API failures onto the error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return core.NewError(ai.KindForStatus(gerr.Code), op, err)
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
		if kind, found := grpcKinds[st.Code()]; found {
			return core.NewError(kind, op, err)
		}
		return core.NewError(core.KindProvider, op, err)
	}
	if strings.Contains(err.Error(), "API key not valid") {
		return core.NewError(core.KindAuth, op, err)
	}
	return ai.Classify(op, err)
}

// extractText concatenates the text parts of every candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	return text.String()
}
