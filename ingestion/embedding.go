package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/embedding"
	"github.com/poiesic/vidchat/storage"
)

// embeddingProcessor embeds every chunk and replaces the video's index.
type embeddingProcessor struct {
	gateway *embedding.Gateway
	index   storage.VectorIndex
	logger  *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

func (ep *embeddingProcessor) status() core.JobStatus { return core.StatusEmbedding }

func (ep *embeddingProcessor) process(ctx context.Context, w *work) error {
	ep.logger.Info("embedding chunks", "video", w.job.VideoID, "chunks", len(w.chunks))

	texts := make([]string, len(w.chunks))
	for i, c := range w.chunks {
		texts[i] = c.Text
	}

	vectors, err := ep.gateway.EmbedChunks(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(w.chunks) {
		return core.Errorf(core.KindProvider, "embed", "embedding result mismatch. expected %d, received %d", len(w.chunks), len(vectors))
	}

	// Nothing after this point may observe a canceled run as Indexed.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ep.index.Upsert(ctx, w.job.VideoID, w.chunks, vectors); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}
	return nil
}
