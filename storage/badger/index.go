package badger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/embedding"
	"github.com/poiesic/vidchat/storage"
)

// VectorIndex implements storage.VectorIndex for BadgerDB.
//
// Each Upsert writes a fresh generation of chunk keys and then flips the
// video's generation pointer in one transaction, so readers always see a
// complete generation. The previous generation is deleted afterwards.
type VectorIndex struct {
	backend *Backend
	genSeq  *badger.Sequence
	logger  *slog.Logger
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

func newVectorIndex(backend *Backend) (*VectorIndex, error) {
	genSeq, err := backend.GetSequence(indexGenerationSeq)
	if err != nil {
		return nil, err
	}
	return &VectorIndex{
		backend: backend,
		genSeq:  genSeq,
		logger:  slog.Default().With("component", "badger-index"),
	}, nil
}

// NewVectorIndex creates a VectorIndex on backend.
func NewVectorIndex(backend *Backend) (storage.VectorIndex, error) {
	return newVectorIndex(backend)
}

// Close releases the generation sequence.
func (x *VectorIndex) Close() error {
	return x.genSeq.Release()
}

func (x *VectorIndex) nextGeneration() (uint64, error) {
	gen, err := x.genSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if gen == 0 {
		return x.genSeq.Next()
	}
	return gen, nil
}

// liveGeneration returns the generation readers should see, or false if the
// video has no index.
func liveGeneration(tx *badger.Txn, videoID core.VideoID) (uint64, bool, error) {
	item, err := tx.Get(makeIndexGenKey(videoID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var gen uint64
	var ok bool
	err = item.Value(func(val []byte) error {
		gen, ok = decodeGeneration(val)
		return nil
	})
	return gen, ok, err
}

// Upsert replaces the chunks of videoID.
func (x *VectorIndex) Upsert(ctx context.Context, videoID core.VideoID, chunks []core.Chunk, vectors [][]float32) error {
	if err := storage.ValidateUpsert(videoID, chunks, vectors); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return x.Delete(ctx, videoID)
	}

	gen, err := x.nextGeneration()
	if err != nil {
		return err
	}

	wb := x.backend.db.NewWriteBatch()
	for i := range chunks {
		value := storage.MarshalIndexedChunk(&core.IndexedChunk{Chunk: chunks[i], Vector: vectors[i]})
		if err := wb.Set(makeChunkKey(videoID, gen, i), value); err != nil {
			wb.Cancel()
			x.discard(videoID, gen)
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		x.discard(videoID, gen)
		return err
	}
	if err := ctx.Err(); err != nil {
		x.discard(videoID, gen)
		return err
	}

	var previous uint64
	var hadPrevious bool
	err = x.backend.Update(ctx, func(tx *badger.Txn) error {
		var err error
		previous, hadPrevious, err = liveGeneration(tx, videoID)
		if err != nil {
			return err
		}
		return tx.Set(makeIndexGenKey(videoID), encodeGeneration(gen))
	})
	if err != nil {
		x.discard(videoID, gen)
		return err
	}

	if hadPrevious && previous != gen {
		x.discard(videoID, previous)
	}
	x.logger.Debug("index replaced", "video", videoID, "chunks", len(chunks), "generation", gen)
	return nil
}

// discard removes one generation of chunks; failures only leave garbage
// that no reader can reach.
func (x *VectorIndex) discard(videoID core.VideoID, gen uint64) {
	if err := x.backend.deletePrefix(makeGenerationPrefix(videoID, gen)); err != nil {
		x.logger.Warn("failed to delete index generation", "video", videoID, "generation", gen, "err", err)
	}
}

// Query scores every chunk of the live generation against vector.
func (x *VectorIndex) Query(ctx context.Context, videoID core.VideoID, vector []float32, k int) ([]core.ScoredChunk, error) {
	if len(vector) == 0 {
		return nil, core.Errorf(core.KindInput, "index query", "query vector is empty")
	}
	if k <= 0 {
		return nil, nil
	}

	var hits []core.ScoredChunk
	err := x.backend.View(func(tx *badger.Txn) error {
		chunks, err := readGeneration(tx, videoID)
		if err != nil {
			return err
		}
		for _, c := range chunks {
			if len(c.Vector) != len(vector) {
				return core.Errorf(core.KindInput, "index query",
					"query dimension %d does not match index dimension %d", len(vector), len(c.Vector))
			}
			hits = append(hits, core.ScoredChunk{Chunk: c.Chunk, Score: embedding.Cosine(vector, c.Vector)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	storage.SortScored(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func readGeneration(tx *badger.Txn, videoID core.VideoID) ([]*core.IndexedChunk, error) {
	gen, ok, err := liveGeneration(tx, videoID)
	if err != nil || !ok {
		return nil, err
	}
	return scan(tx, makeGenerationPrefix(videoID, gen), storage.UnmarshalIndexedChunk)
}

// Delete removes the generation pointer first, then every chunk key.
func (x *VectorIndex) Delete(ctx context.Context, videoID core.VideoID) error {
	err := x.backend.Update(ctx, func(tx *badger.Txn) error {
		return tx.Delete(makeIndexGenKey(videoID))
	})
	if err != nil {
		return err
	}
	return x.backend.deletePrefix(makePartialChunkKey(videoID))
}

// Chunks returns the live generation in sequence order.
func (x *VectorIndex) Chunks(ctx context.Context, videoID core.VideoID) ([]core.IndexedChunk, error) {
	var out []core.IndexedChunk
	err := x.backend.View(func(tx *badger.Txn) error {
		chunks, err := readGeneration(tx, videoID)
		if err != nil {
			return err
		}
		out = make([]core.IndexedChunk, len(chunks))
		for i, c := range chunks {
			out[i] = *c
		}
		return nil
	})
	return out, err
}

// Count returns the size of the live generation.
func (x *VectorIndex) Count(ctx context.Context, videoID core.VideoID) (int, error) {
	count := 0
	err := x.backend.View(func(tx *badger.Txn) error {
		gen, ok, err := liveGeneration(tx, videoID)
		if err != nil || !ok {
			return err
		}
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeGenerationPrefix(videoID, gen)
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	return count, err
}
