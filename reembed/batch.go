package reembed

import (
	"context"
	"fmt"

	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/embedding"
	"github.com/poiesic/vidchat/storage"
)

// VideoProcessor re-embeds the chunks of one video.
type VideoProcessor struct {
	gateway *embedding.Gateway
	index   storage.VectorIndex
}

// NewVideoProcessor creates a new video processor.
func NewVideoProcessor(gateway *embedding.Gateway, index storage.VectorIndex) *VideoProcessor {
	return &VideoProcessor{gateway: gateway, index: index}
}

// Embed computes fresh vectors for chunks. The gateway batches, retries
// and normalizes them.
func (vp *VideoProcessor) Embed(ctx context.Context, chunks []core.IndexedChunk) ([]core.Chunk, [][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil, nil
	}

	plain := make([]core.Chunk, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		plain[i] = c.Chunk
		texts[i] = c.Chunk.Text
	}

	vectors, err := vp.gateway.EmbedChunks(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, nil, core.Errorf(core.KindProvider, "reembed", "embedding count mismatch: expected %d, got %d", len(chunks), len(vectors))
	}
	return plain, vectors, nil
}

// Replace swaps the index of videoID to the new vectors in one generation.
func (vp *VideoProcessor) Replace(ctx context.Context, videoID core.VideoID, chunks []core.Chunk, vectors [][]float32) error {
	if err := vp.index.Upsert(ctx, videoID, chunks, vectors); err != nil {
		return fmt.Errorf("failed to update index: %w", err)
	}
	return nil
}
