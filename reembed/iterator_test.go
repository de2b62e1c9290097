package reembed

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/vidchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoIterator_VisitsIndexedVideos(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	indexWithOldModel(t, repos, "a", "one", "two")
	indexWithOldModel(t, repos, "b", "three")
	require.NoError(t, repos.Jobs.SaveJob(ctx, &core.VideoJob{VideoID: "queued", Status: core.StatusQueued}))

	it := NewVideoIterator(repos.Jobs, repos.Index)

	var visited []core.VideoID
	counts := map[core.VideoID]int{}
	videos, err := it.Videos(ctx)
	require.NoError(t, err)
	err = it.ForEach(ctx, videos, func(job *core.VideoJob, load func() ([]core.IndexedChunk, error)) error {
		chunks, err := load()
		require.NoError(t, err)
		visited = append(visited, job.VideoID)
		counts[job.VideoID] = len(chunks)
		for i, c := range chunks {
			assert.Equal(t, i, c.Chunk.Sequence)
		}
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.VideoID{"a", "b"}, visited)
	assert.Equal(t, 2, counts["a"])
	assert.Equal(t, 1, counts["b"])
}

func TestVideoIterator_Empty(t *testing.T) {
	repos := setupTestRepos(t)
	it := NewVideoIterator(repos.Jobs, repos.Index)

	videos, err := it.Videos(context.Background())
	require.NoError(t, err)
	assert.Empty(t, videos)

	called := false
	err = it.ForEach(context.Background(), videos, func(*core.VideoJob, func() ([]core.IndexedChunk, error)) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestVideoIterator_StopsOnError(t *testing.T) {
	repos := setupTestRepos(t)
	indexWithOldModel(t, repos, "a", "one")
	indexWithOldModel(t, repos, "b", "two")
	it := NewVideoIterator(repos.Jobs, repos.Index)

	videos, err := it.Videos(context.Background())
	require.NoError(t, err)

	boom := errors.New("boom")
	calls := 0
	err = it.ForEach(context.Background(), videos, func(*core.VideoJob, func() ([]core.IndexedChunk, error)) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestVideoIterator_ContextCancellation(t *testing.T) {
	repos := setupTestRepos(t)
	indexWithOldModel(t, repos, "a", "one")
	indexWithOldModel(t, repos, "b", "two")
	it := NewVideoIterator(repos.Jobs, repos.Index)

	videos, err := it.Videos(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err = it.ForEach(ctx, videos, func(*core.VideoJob, func() ([]core.IndexedChunk, error)) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestVideoIterator_VisitsOnlyGivenJobs(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()
	indexWithOldModel(t, repos, "a", "one")
	it := NewVideoIterator(repos.Jobs, repos.Index)

	videos, err := it.Videos(ctx)
	require.NoError(t, err)
	indexWithOldModel(t, repos, "b", "two")

	var visited []core.VideoID
	err = it.ForEach(ctx, videos, func(job *core.VideoJob, _ func() ([]core.IndexedChunk, error)) error {
		visited = append(visited, job.VideoID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []core.VideoID{"a"}, visited, "videos indexed after listing are left alone")
}
