// Package embedding wraps an ai.Embedder with batching, retry,
// normalisation and dimension checks.
package embedding

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/retry"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is the number of texts sent per provider call.
	DefaultBatchSize = 32
	// DefaultConcurrency is the number of batches in flight.
	DefaultConcurrency = 2
)

// Gateway is stateless apart from its configuration and safe for concurrent use.
type Gateway struct {
	embedder    ai.Embedder
	batchSize   int
	concurrency int
	policy      retry.Policy
	logger      *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway) error

// WithBatchSize sets how many texts go into one provider call.
func WithBatchSize(n int) Option {
	return func(g *Gateway) error {
		if n <= 0 {
			return core.Errorf(core.KindInput, "embedding gateway", "batch size must be positive")
		}
		g.batchSize = n
		return nil
	}
}

// WithConcurrency sets how many batches are embedded at once.
func WithConcurrency(n int) Option {
	return func(g *Gateway) error {
		if n <= 0 {
			return core.Errorf(core.KindInput, "embedding gateway", "concurrency must be positive")
		}
		g.concurrency = n
		return nil
	}
}

// WithRetryPolicy replaces the retry policy for provider calls.
func WithRetryPolicy(p retry.Policy) Option {
	return func(g *Gateway) error {
		if p.MaxAttempts <= 0 {
			return retry.ErrInvalidMaxAttempts
		}
		g.policy = p
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// New creates a Gateway around embedder.
func New(embedder ai.Embedder, opts ...Option) (*Gateway, error) {
	if embedder == nil {
		return nil, ai.ErrEmbedderRequired
	}
	g := &Gateway{
		embedder:    embedder,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		policy:      retry.DefaultPolicy(),
		logger:      slog.Default().With("component", "embedding-gateway"),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// EmbedQuery embeds a single query text.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.Errorf(core.KindInput, "embed query", "text is empty")
	}

	var vector []float32
	err := g.policy.Do(ctx, func(ctx context.Context) error {
		v, err := g.embedder.Embed(ctx, text)
		vector = v
		return err
	})
	if err != nil {
		return nil, ai.Classify("embed query", err)
	}
	if len(vector) == 0 {
		return nil, core.Errorf(core.KindProvider, "embed query", "empty vector returned")
	}
	return normalize("embed query", vector)
}

// EmbedChunks embeds texts in input order. All vectors share one dimension.
func (g *Gateway) EmbedChunks(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))
		eg.Go(func() error {
			vectors, err := g.embedBatch(egCtx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vectors)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, ai.Classify("embed chunks", err)
	}

	dim := len(out[0])
	for i, v := range out {
		if len(v) == 0 {
			return nil, core.Errorf(core.KindProvider, "embed chunks", "empty vector for text %d", i)
		}
		if len(v) != dim {
			return nil, core.Errorf(core.KindProvider, "embed chunks",
				"dimension mismatch: text %d has %d, expected %d", i, len(v), dim)
		}
		n, err := normalize("embed chunks", v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	g.logger.Debug("embedded chunks", "count", len(texts), "dimension", dim)
	return out, nil
}

func (g *Gateway) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if be, ok := g.embedder.(ai.BatchEmbedder); ok {
		var vectors [][]float32
		err := g.policy.Do(ctx, func(ctx context.Context) error {
			v, err := be.EmbedBatch(ctx, texts)
			vectors = v
			return err
		})
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, core.Errorf(core.KindProvider, "embed batch",
				"expected %d vectors, got %d", len(texts), len(vectors))
		}
		return vectors, nil
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		err := g.policy.Do(ctx, func(ctx context.Context) error {
			v, err := g.embedder.Embed(ctx, text)
			vectors[i] = v
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

func normalize(op string, v []float32) ([]float32, error) {
	n := Normalize(v)
	for _, x := range n {
		if x != 0 {
			return n, nil
		}
	}
	return nil, core.Errorf(core.KindProvider, op, "zero vector returned")
}

// Normalize returns v scaled to unit length. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	magnitude = math.Sqrt(magnitude)

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// Cosine returns the cosine similarity of a and b, or 0 when the lengths
// differ or either vector is zero.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
