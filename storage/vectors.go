package storage

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/poiesic/vidchat/core"
)

// ValidateUpsert checks that every chunk has a non-empty vector, that all
// vectors share one dimension and that sequences run 0..n-1 for videoID.
func ValidateUpsert(videoID core.VideoID, chunks []core.Chunk, vectors [][]float32) error {
	const op = "index upsert"
	if videoID == "" {
		return core.Errorf(core.KindInput, op, "video ID is empty")
	}
	if len(chunks) != len(vectors) {
		return core.Errorf(core.KindInput, op, "%d chunks but %d vectors", len(chunks), len(vectors))
	}
	for i, c := range chunks {
		if c.VideoID != videoID {
			return core.Errorf(core.KindInput, op, "chunk %d belongs to %q", i, c.VideoID)
		}
		if c.Sequence != i {
			return core.Errorf(core.KindInput, op, "chunk %d has sequence %d", i, c.Sequence)
		}
		if len(vectors[i]) == 0 {
			return core.Errorf(core.KindInput, op, "chunk %d has an empty vector", i)
		}
		if len(vectors[i]) != len(vectors[0]) {
			return core.Errorf(core.KindInput, op, "chunk %d has dimension %d, expected %d", i, len(vectors[i]), len(vectors[0]))
		}
	}
	return nil
}

// SortScored orders hits by score descending, then sequence ascending.
func SortScored(hits []core.ScoredChunk) {
	slices.SortFunc(hits, func(a, b core.ScoredChunk) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.Sequence, b.Chunk.Sequence)
	})
}

// RequireIndexed returns the job of videoID if it is Indexed. A video that
// was never submitted, or is still in flight or failed, is not ready.
func RequireIndexed(ctx context.Context, jobs JobRepository, videoID core.VideoID) (*core.VideoJob, error) {
	const op = "require indexed"
	job, err := jobs.GetJob(ctx, videoID)
	if errors.Is(err, ErrNotFound) {
		return nil, core.Errorf(core.KindNotReady, op, "video %s was never submitted", videoID)
	}
	if err != nil {
		return nil, err
	}
	if job.Status != core.StatusIndexed {
		return nil, core.Errorf(core.KindNotReady, op, "video %s is %s", videoID, job.Status)
	}
	return job, nil
}
