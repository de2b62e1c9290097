package search

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/embedding"
	"github.com/poiesic/vidchat/storage"
)

const (
	// DefaultTopK is the number of chunks returned per question.
	DefaultTopK = 5
	// DefaultMinSimilarity is the cosine floor below which hits are dropped.
	DefaultMinSimilarity = 0.3
	// DefaultLexicalBoost is added to the ranking score of chunks that
	// contain every query word.
	DefaultLexicalBoost = 0.3
)

// Retriever finds the chunks of one video most relevant to a question.
type Retriever struct {
	index         storage.VectorIndex
	gateway       *embedding.Gateway
	topK          int
	minSimilarity float32
	lexicalBoost  float32
	logger        *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithTopK sets the number of chunks returned.
func WithTopK(k int) Option {
	return func(r *Retriever) error {
		if k <= 0 {
			return core.Errorf(core.KindInput, "retriever", "top k must be positive")
		}
		r.topK = k
		return nil
	}
}

// WithMinSimilarity sets the similarity floor, in [-1, 1].
func WithMinSimilarity(min float32) Option {
	return func(r *Retriever) error {
		if min < -1 || min > 1 {
			return core.Errorf(core.KindInput, "retriever", "min similarity %v out of range", min)
		}
		r.minSimilarity = min
		return nil
	}
}

// WithLexicalBoost sets the boost for chunks containing every query word.
// Zero disables it.
func WithLexicalBoost(boost float32) Option {
	return func(r *Retriever) error {
		if boost < 0 {
			return core.Errorf(core.KindInput, "retriever", "lexical boost cannot be negative")
		}
		r.lexicalBoost = boost
		return nil
	}
}

// NewRetriever creates a new Retriever.
func NewRetriever(index storage.VectorIndex, gateway *embedding.Gateway, opts ...Option) (*Retriever, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if gateway == nil {
		return nil, ErrGatewayRequired
	}

	r := &Retriever{
		index:         index,
		gateway:       gateway,
		topK:          DefaultTopK,
		minSimilarity: DefaultMinSimilarity,
		lexicalBoost:  DefaultLexicalBoost,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// TopK returns the configured number of chunks per question.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns up to TopK chunks of videoID for query. An empty
// result means nothing cleared the similarity floor.
func (r *Retriever) Retrieve(ctx context.Context, videoID core.VideoID, query string) ([]core.ScoredChunk, error) {
	return r.RetrieveWithMonitor(ctx, videoID, query, nil)
}

// RetrieveWithMonitor is Retrieve with a monitor receiving callbacks at each
// stage. The Score of each returned chunk is its cosine similarity; the
// order also reflects the lexical boost.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, videoID core.VideoID, query string, monitor Monitor) ([]core.ScoredChunk, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(videoID, query)

	vector, err := r.gateway.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	// Ask for extra candidates so the lexical boost can promote a chunk
	// that sits just outside the top k.
	candidates, err := r.index.Query(ctx, videoID, vector, r.topK*2)
	if err != nil {
		r.logger.Error("error querying for similar chunks", "video", videoID, "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(candidates)

	words := terms(query)
	type ranked struct {
		hit  core.ScoredChunk
		rank float32
	}
	kept := make([]ranked, 0, len(candidates))
	for _, hit := range candidates {
		if hit.Chunk.VideoID != videoID {
			continue
		}
		if hit.Score < r.minSimilarity {
			monitor.BelowThreshold(hit)
			continue
		}
		rank := hit.Score
		if r.lexicalBoost > 0 && mentionsAll(hit.Chunk.Text, words) {
			rank += r.lexicalBoost
			monitor.LexicalHit(hit)
		}
		kept = append(kept, ranked{hit: hit, rank: rank})
	}

	slices.SortStableFunc(kept, func(a, b ranked) int {
		if c := cmp.Compare(b.rank, a.rank); c != 0 {
			return c
		}
		return cmp.Compare(a.hit.Chunk.Sequence, b.hit.Chunk.Sequence)
	})
	if len(kept) > r.topK {
		kept = kept[:r.topK]
	}

	hits := make([]core.ScoredChunk, len(kept))
	for i, k := range kept {
		hits[i] = k.hit
	}
	r.logger.Debug("retrieved chunks", "video", videoID, "candidates", len(candidates), "hits", len(hits))
	monitor.Finish(hits)
	return hits, nil
}
