package badger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *VectorIndex {
	t.Helper()
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	index, err := newVectorIndex(backend)
	require.NoError(t, err)
	t.Cleanup(func() {
		index.Close()
		backend.Close()
	})
	return index
}

func makeChunks(videoID core.VideoID, texts ...string) []core.Chunk {
	chunks := make([]core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.Chunk{
			VideoID:  videoID,
			Sequence: i,
			Text:     text,
			Start:    time.Duration(i*10) * time.Second,
			End:      time.Duration(i*10+15) * time.Second,
		}
	}
	return chunks
}

func TestVectorIndex_UpsertAndQuery(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	chunks := makeChunks("vid", "first", "second", "third")
	vectors := [][]float32{
		{1, 0, 0},
		{0.8, 0.6, 0},
		{0, 0, 1},
	}
	require.NoError(t, index.Upsert(ctx, "vid", chunks, vectors))

	hits, err := index.Query(ctx, "vid", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Chunk.Sequence)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, 1, hits[1].Chunk.Sequence)
	assert.InDelta(t, 0.8, hits[1].Score, 1e-6)

	count, err := index.Count(ctx, "vid")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestVectorIndex_TiesBySequence(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	chunks := makeChunks("vid", "a", "b", "c")
	vectors := [][]float32{{0, 1}, {1, 0}, {1, 0}}
	require.NoError(t, index.Upsert(ctx, "vid", chunks, vectors))

	hits, err := index.Query(ctx, "vid", []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []int{1, 2, 0}, []int{hits[0].Chunk.Sequence, hits[1].Chunk.Sequence, hits[2].Chunk.Sequence})
}

func TestVectorIndex_ScopedPerVideo(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, "one", makeChunks("one", "x"), [][]float32{{1, 0}}))
	require.NoError(t, index.Upsert(ctx, "two", makeChunks("two", "y", "z"), [][]float32{{1, 0}, {0, 1}}))

	hits, err := index.Query(ctx, "one", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, core.VideoID("one"), hits[0].Chunk.VideoID)

	hits, err = index.Query(ctx, "missing", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestVectorIndex_ReplaceIsWholesale(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, "vid", makeChunks("vid", "a", "b", "c"),
		[][]float32{{1, 0}, {1, 0}, {1, 0}}))
	require.NoError(t, index.Upsert(ctx, "vid", makeChunks("vid", "new"), [][]float32{{0, 1}}))

	chunks, err := index.Chunks(ctx, "vid")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "new", chunks[0].Chunk.Text)
	assert.Equal(t, []float32{0, 1}, chunks[0].Vector)

	// Only the live generation's keys remain.
	raw := 0
	err = index.backend.View(func(tx *badger.Txn) error {
		items, err := scan(tx, makePartialChunkKey("vid"), storage.UnmarshalIndexedChunk)
		raw = len(items)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, raw)
}

func TestVectorIndex_Delete(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, "vid", makeChunks("vid", "a"), [][]float32{{1}}))
	require.NoError(t, index.Delete(ctx, "vid"))

	count, err := index.Count(ctx, "vid")
	require.NoError(t, err)
	assert.Zero(t, count)

	// Deleting nothing is fine.
	require.NoError(t, index.Delete(ctx, "vid"))
}

func TestVectorIndex_UpsertEmptyDeletes(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Upsert(ctx, "vid", makeChunks("vid", "a"), [][]float32{{1}}))
	require.NoError(t, index.Upsert(ctx, "vid", nil, nil))

	chunks, err := index.Chunks(ctx, "vid")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestVectorIndex_InvalidInput(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		chunks  []core.Chunk
		vectors [][]float32
	}{
		{"count mismatch", makeChunks("vid", "a", "b"), [][]float32{{1}}},
		{"empty vector", makeChunks("vid", "a"), [][]float32{{}}},
		{"dimension mismatch", makeChunks("vid", "a", "b"), [][]float32{{1, 0}, {1}}},
		{"wrong video", makeChunks("other", "a"), [][]float32{{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := index.Upsert(ctx, "vid", tt.chunks, tt.vectors)
			assert.ErrorIs(t, err, core.ErrInput)
		})
	}

	require.NoError(t, index.Upsert(ctx, "vid", makeChunks("vid", "a"), [][]float32{{1, 0}}))
	_, err := index.Query(ctx, "vid", []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, core.ErrInput)

	_, err = index.Query(ctx, "vid", nil, 1)
	assert.ErrorIs(t, err, core.ErrInput)

	hits, err := index.Query(ctx, "vid", []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestVectorIndex_ReadersSeeCompleteGeneration(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	generation := func(tag string, n int) ([]core.Chunk, [][]float32) {
		texts := make([]string, n)
		vectors := make([][]float32, n)
		for i := range texts {
			texts[i] = fmt.Sprintf("%s-%d", tag, i)
			vectors[i] = []float32{1, float32(i)}
		}
		return makeChunks("vid", texts...), vectors
	}

	chunks, vectors := generation("old", 8)
	require.NoError(t, index.Upsert(ctx, "vid", chunks, vectors))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			tag, n := "new", 5
			if i%2 == 1 {
				tag, n = "old", 8
			}
			c, v := generation(tag, n)
			assert.NoError(t, index.Upsert(ctx, "vid", c, v))
		}
	}()

	for i := 0; i < 100; i++ {
		got, err := index.Chunks(ctx, "vid")
		require.NoError(t, err)
		require.NotEmpty(t, got)
		tag := strings.SplitN(got[0].Chunk.Text, "-", 2)[0]
		want := map[string]int{"old": 8, "new": 5}[tag]
		assert.Len(t, got, want)
		for _, c := range got {
			assert.True(t, strings.HasPrefix(c.Chunk.Text, tag+"-"), "mixed generations: %q", c.Chunk.Text)
		}
	}
	wg.Wait()
}
