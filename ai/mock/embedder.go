package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
)

// Dimension is the length of vectors produced by MockEmbedder.
const Dimension = 64

// MockEmbedder is a test double for ai.Embedder and ai.BatchEmbedder.
// It allows custom behavior injection via function fields.
type MockEmbedder struct {
	// EmbedFunc is called by Embed if set.
	// If nil, uses default deterministic behavior.
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedBatchFunc is called by EmbedBatch if set.
	// If nil, embeds each text with the default behavior.
	EmbedBatchFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu        sync.Mutex
	callCount int
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// Embed returns a bag-of-words vector for text.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.count()

	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return Vector(text), nil
}

// EmbedBatch embeds multiple texts in one call.
func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.count()

	if m.EmbedBatchFunc != nil {
		return m.EmbedBatchFunc(ctx, texts)
	}
	if m.EmbedFunc != nil {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			v, err := m.EmbedFunc(ctx, text)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = Vector(text)
	}
	return embeddings, nil
}

func (m *MockEmbedder) count() {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()
}

// CallCount returns the number of times any method was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.EmbedFunc = nil
	m.EmbedBatchFunc = nil
}

// Vector is the default embedding: each lowercased word is hashed into one
// of Dimension buckets and the counts are normalized to unit length, so texts
// sharing words score higher under cosine similarity. Text without words
// falls back to a pseudo-random vector seeded by its hash.
func Vector(text string) []float32 {
	vector := make([]float32, Dimension)
	words := 0
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:'\"-()[]{}…")
		if w == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(w))
		vector[h.Sum32()%Dimension]++
		words++
	}
	if words == 0 {
		return generateDeterministicVector(text, Dimension)
	}
	return normalize(vector)
}

// generateDeterministicVector creates a deterministic embedding vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func generateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000) / 1000.0
	}
	return normalize(vector)
}

func normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	norm := float32(1 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= norm
	}
	return v
}
