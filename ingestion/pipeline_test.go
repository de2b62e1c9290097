package ingestion

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/ai/mock"
	"github.com/poiesic/vidchat/chunker"
	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/retry"
	"github.com/poiesic/vidchat/storage"
	"github.com/poiesic/vidchat/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingNotifier keeps every status it is told about, per video.
type recordingNotifier struct {
	mu       sync.Mutex
	statuses map[core.VideoID][]core.JobStatus
}

func (n *recordingNotifier) Notify(ctx context.Context, job *core.VideoJob) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.statuses == nil {
		n.statuses = make(map[core.VideoID][]core.JobStatus)
	}
	n.statuses[job.VideoID] = append(n.statuses[job.VideoID], job.Status)
	return nil
}

func (n *recordingNotifier) seen(videoID core.VideoID) []core.JobStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.JobStatus(nil), n.statuses[videoID]...)
}

func fastRetry() retry.Policy {
	p := retry.DefaultPolicy()
	p.BaseDelay = time.Millisecond
	p.MaxDelay = 5 * time.Millisecond
	return p
}

func setupPipeline(t *testing.T, opts ...Option) (*Pipeline, *mock.Set, *storage.Repositories, *recordingNotifier) {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)

	set := mock.NewSet()
	notifier := &recordingNotifier{}
	opts = append([]Option{WithRetryPolicy(fastRetry()), WithNotifier(notifier), WithPoolSize(4)}, opts...)
	p, err := NewPipeline(repos, set.Providers(), NewRegistry(), opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		p.Close(context.Background())
		repos.Close()
	})
	return p, set, repos, notifier
}

func segments(texts ...string) []core.TranscriptSegment {
	segs := make([]core.TranscriptSegment, len(texts))
	for i, text := range texts {
		segs[i] = core.TranscriptSegment{
			Start: time.Duration(i*10) * time.Second,
			End:   time.Duration(i*10+10) * time.Second,
			Text:  text,
		}
	}
	return segs
}

func waitJob(t *testing.T, p *Pipeline, videoID core.VideoID) *core.VideoJob {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := p.Wait(ctx, videoID)
	require.NoError(t, err)
	return job
}

func TestNewPipeline_RequiresDependencies(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()
	set := mock.NewSet()

	_, err = NewPipeline(nil, set.Providers(), NewRegistry())
	assert.ErrorIs(t, err, ErrRepositoriesRequired)

	_, err = NewPipeline(repos, set.Providers(), nil)
	assert.ErrorIs(t, err, ErrRegistryRequired)

	_, err = NewPipeline(repos, ai.Providers{Transcriber: set.Transcriber, Embedder: set.Embedder}, NewRegistry())
	assert.ErrorIs(t, err, ai.ErrMediaFetcherRequired)

	_, err = NewPipeline(repos, ai.Providers{Media: set.Media, Transcriber: set.Transcriber}, NewRegistry())
	assert.ErrorIs(t, err, ai.ErrEmbedderRequired)

	_, err = NewPipeline(repos, set.Providers(), NewRegistry(), WithChunkOptions(chunker.Options{TargetSize: 0}))
	assert.ErrorIs(t, err, core.ErrInput)
}

func TestPipeline_IngestsVideo(t *testing.T) {
	p, set, repos, notifier := setupPipeline(t)
	ctx := context.Background()
	set.Transcriber.SetTranscript("abc123", segments("Intro to the topic.", "Body of the talk.", "Outro and thanks."))

	job, err := p.Submit(ctx, "https://www.youtube.com/watch?v=abc123")
	require.NoError(t, err)
	assert.Equal(t, core.VideoID("abc123"), job.VideoID)
	assert.Equal(t, 1, job.Attempt)

	job = waitJob(t, p, "abc123")
	assert.Equal(t, core.StatusIndexed, job.Status)
	assert.Equal(t, "Video abc123", job.Metadata.Title)
	assert.False(t, p.Registry().Active("abc123"))

	transcript, err := repos.Transcripts.GetTranscript(ctx, "abc123")
	require.NoError(t, err)
	assert.Len(t, transcript.Segments, 3)

	chunks, err := repos.Index.Chunks(ctx, "abc123")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Chunk.Sequence)
		assert.Len(t, c.Vector, mock.Dimension)
	}
	assert.Equal(t, time.Duration(0), chunks[0].Chunk.Start)
	assert.Equal(t, 30*time.Second, chunks[len(chunks)-1].Chunk.End)

	assert.Equal(t, []core.JobStatus{
		core.StatusQueued,
		core.StatusDownloading,
		core.StatusTranscribing,
		core.StatusChunking,
		core.StatusEmbedding,
		core.StatusIndexed,
	}, notifier.seen("abc123"))

	status, err := p.Status(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, core.StatusIndexed, status.Status)
}

func TestPipeline_SubmitWhileActiveIsNoop(t *testing.T) {
	p, set, _, _ := setupPipeline(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	set.Media.FetchAudioFunc = func(ctx context.Context, videoID core.VideoID) (*ai.Audio, error) {
		once.Do(func() { close(started) })
		<-release
		return &ai.Audio{VideoID: videoID, Data: []byte("audio")}, nil
	}

	first, err := p.Submit(ctx, "xyz")
	require.NoError(t, err)
	<-started

	second, err := p.Submit(ctx, "xyz")
	require.NoError(t, err)
	assert.Equal(t, core.StatusDownloading, second.Status)
	assert.Equal(t, first.Attempt, second.Attempt)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	close(release)
	job := waitJob(t, p, "xyz")
	assert.Equal(t, core.StatusIndexed, job.Status)
	assert.Equal(t, 1, set.Media.CallsFor("xyz"))
}

func TestPipeline_ConcurrentSubmitsStartOneRun(t *testing.T) {
	p, set, _, _ := setupPipeline(t)
	ctx := context.Background()

	release := make(chan struct{})
	set.Media.FetchAudioFunc = func(ctx context.Context, videoID core.VideoID) (*ai.Audio, error) {
		<-release
		return &ai.Audio{VideoID: videoID, Data: []byte("audio")}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := p.Submit(ctx, "xyz")
			assert.NoError(t, err)
			assert.Equal(t, 1, job.Attempt)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, p.Registry().Len())

	close(release)
	waitJob(t, p, "xyz")
	assert.Equal(t, 1, set.Media.CallsFor("xyz"))
}

func TestPipeline_ResubmitReplacesIndex(t *testing.T) {
	p, set, repos, _ := setupPipeline(t, WithChunkOptions(chunker.Options{TargetSize: 5, Overlap: 0}))
	ctx := context.Background()

	long := make([]string, 12)
	for i := range long {
		long[i] = fmt.Sprintf("first run segment number %d", i)
	}
	set.Transcriber.SetTranscript("abc123", segments(long...))
	_, err := p.Submit(ctx, "abc123")
	require.NoError(t, err)
	waitJob(t, p, "abc123")
	before, err := repos.Index.Count(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, 12, before)

	set.Transcriber.SetTranscript("abc123", segments("second run alpha segment", "second run beta segment"))
	job, err := p.Submit(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, 2, job.Attempt)
	job = waitJob(t, p, "abc123")
	assert.Equal(t, core.StatusIndexed, job.Status)

	chunks, err := repos.Index.Chunks(ctx, "abc123")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Contains(t, c.Chunk.Text, "second run")
	}
}

func TestPipeline_FailureIsClassified(t *testing.T) {
	p, set, repos, _ := setupPipeline(t)
	ctx := context.Background()
	set.Media.FetchAudioFunc = func(ctx context.Context, videoID core.VideoID) (*ai.Audio, error) {
		return nil, core.Errorf(core.KindNotFound, "fetch audio", "video unavailable")
	}

	_, err := p.Submit(ctx, "gone")
	require.NoError(t, err)
	job := waitJob(t, p, "gone")

	assert.Equal(t, core.StatusFailed, job.Status)
	assert.Equal(t, core.KindNotFound, job.ErrorKind)
	assert.Contains(t, job.ErrorMessage, "video unavailable")
	assert.Equal(t, 1, set.Media.CallCount(), "non-transient errors are not retried")

	count, err := repos.Index.Count(ctx, "gone")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPipeline_TransientErrorsRetried(t *testing.T) {
	p, set, _, _ := setupPipeline(t)
	ctx := context.Background()

	var mu sync.Mutex
	attempts := 0
	set.Media.FetchAudioFunc = func(ctx context.Context, videoID core.VideoID) (*ai.Audio, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return nil, core.Errorf(core.KindRateLimited, "fetch audio", "429")
		}
		return &ai.Audio{VideoID: videoID, Data: []byte("audio")}, nil
	}

	_, err := p.Submit(ctx, "flaky")
	require.NoError(t, err)
	job := waitJob(t, p, "flaky")
	assert.Equal(t, core.StatusIndexed, job.Status)
	assert.Equal(t, 3, set.Media.CallCount())
}

func TestPipeline_RetriesExhausted(t *testing.T) {
	p, set, _, _ := setupPipeline(t)
	set.Media.FetchAudioFunc = func(ctx context.Context, videoID core.VideoID) (*ai.Audio, error) {
		return nil, core.Errorf(core.KindNetwork, "fetch audio", "connection reset")
	}

	_, err := p.Submit(context.Background(), "flaky")
	require.NoError(t, err)
	job := waitJob(t, p, "flaky")
	assert.Equal(t, core.StatusFailed, job.Status)
	assert.Equal(t, core.KindNetwork, job.ErrorKind)
	assert.Equal(t, 3, set.Media.CallCount())
}

func TestPipeline_EmptyTranscriptFails(t *testing.T) {
	p, set, _, _ := setupPipeline(t)
	set.Transcriber.SetTranscript("silent", []core.TranscriptSegment{{Start: 0, End: 5 * time.Second, Text: "   "}})

	_, err := p.Submit(context.Background(), "silent")
	require.NoError(t, err)
	job := waitJob(t, p, "silent")
	assert.Equal(t, core.StatusFailed, job.Status)
	assert.Equal(t, core.KindProvider, job.ErrorKind)
	assert.Contains(t, job.ErrorMessage, "empty transcript")
}

func TestPipeline_Cancel(t *testing.T) {
	p, set, _, _ := setupPipeline(t)
	ctx := context.Background()

	started := make(chan struct{})
	var once sync.Once
	set.Media.FetchAudioFunc = func(ctx context.Context, videoID core.VideoID) (*ai.Audio, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := p.Submit(ctx, "xyz")
	require.NoError(t, err)
	<-started

	require.NoError(t, p.Cancel(ctx, "xyz"))
	job, err := p.Status(ctx, "xyz")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, job.Status)
	assert.Equal(t, core.KindCanceled, job.ErrorKind)

	assert.ErrorIs(t, p.Cancel(ctx, "xyz"), core.ErrNotFound)
}

func TestPipeline_VideosRunConcurrently(t *testing.T) {
	p, set, _, _ := setupPipeline(t)
	ctx := context.Background()

	var mu sync.Mutex
	inFlight := 0
	both := make(chan struct{})
	set.Media.FetchAudioFunc = func(ctx context.Context, videoID core.VideoID) (*ai.Audio, error) {
		mu.Lock()
		inFlight++
		if inFlight == 2 {
			close(both)
		}
		mu.Unlock()
		select {
		case <-both:
		case <-time.After(5 * time.Second):
			return nil, core.Errorf(core.KindProvider, "fetch audio", "videos ran one at a time")
		}
		return &ai.Audio{VideoID: videoID, Data: []byte("audio")}, nil
	}

	_, err := p.Submit(ctx, "video1")
	require.NoError(t, err)
	_, err = p.Submit(ctx, "video2")
	require.NoError(t, err)

	assert.Equal(t, core.StatusIndexed, waitJob(t, p, "video1").Status)
	assert.Equal(t, core.StatusIndexed, waitJob(t, p, "video2").Status)
}

func TestPipeline_Recover(t *testing.T) {
	p, _, repos, _ := setupPipeline(t)
	ctx := context.Background()

	require.NoError(t, repos.Jobs.SaveJob(ctx, &core.VideoJob{VideoID: "stuck", Status: core.StatusEmbedding, Attempt: 1}))
	require.NoError(t, repos.Jobs.SaveJob(ctx, &core.VideoJob{VideoID: "done", Status: core.StatusIndexed, Attempt: 1}))
	require.NoError(t, repos.Index.Upsert(ctx, "stuck",
		[]core.Chunk{{VideoID: "stuck", Sequence: 0, Text: "partial"}}, [][]float32{{1, 0}}))

	n, err := p.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err := repos.Jobs.GetJob(ctx, "stuck")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, job.Status)
	assert.Equal(t, core.KindCanceled, job.ErrorKind)
	assert.Contains(t, job.ErrorMessage, "interrupted")

	count, err := repos.Index.Count(ctx, "stuck")
	require.NoError(t, err)
	assert.Zero(t, count)

	job, err = repos.Jobs.GetJob(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, core.StatusIndexed, job.Status)
}

func TestPipeline_InputErrors(t *testing.T) {
	p, _, _, _ := setupPipeline(t)
	ctx := context.Background()

	_, err := p.Submit(ctx, "")
	assert.ErrorIs(t, err, core.ErrInput)

	_, err = p.Submit(ctx, "https://vimeo.com/12345")
	assert.ErrorIs(t, err, core.ErrInput)

	_, err = p.Status(ctx, "never")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestPipeline_SubmitAfterClose(t *testing.T) {
	p, _, _, _ := setupPipeline(t)
	require.NoError(t, p.Close(context.Background()))

	_, err := p.Submit(context.Background(), "abc123")
	assert.ErrorIs(t, err, ErrPipelineClosed)
}

func TestPipeline_SubmitWaitsForHold(t *testing.T) {
	p, set, _, _ := setupPipeline(t)
	ctx := context.Background()
	set.Transcriber.SetTranscript("xyz", segments("Only segment."))

	release, ok := p.Registry().Hold("xyz")
	require.True(t, ok)

	submitted := make(chan *core.VideoJob, 1)
	go func() {
		job, err := p.Submit(ctx, "xyz")
		assert.NoError(t, err)
		submitted <- job
	}()

	select {
	case <-submitted:
		t.Fatal("submit started a run while the video was held")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, p.Registry().Active("xyz"))
	assert.Zero(t, set.Media.CallsFor("xyz"))

	release()
	job := <-submitted
	assert.Equal(t, core.StatusQueued, job.Status)
	assert.Equal(t, core.StatusIndexed, waitJob(t, p, "xyz").Status)
}

func TestPipeline_HoldCancelsActiveRun(t *testing.T) {
	p, set, repos, _ := setupPipeline(t)
	ctx := context.Background()

	started := make(chan struct{})
	var once sync.Once
	set.Media.FetchAudioFunc = func(ctx context.Context, videoID core.VideoID) (*ai.Audio, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, ctx.Err()
	}
	_, err := p.Submit(ctx, "xyz")
	require.NoError(t, err)
	<-started

	holdCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	release, err := p.Hold(holdCtx, "xyz")
	require.NoError(t, err)
	defer release()

	assert.False(t, p.Registry().Active("xyz"))
	job, err := repos.Jobs.GetJob(ctx, "xyz")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, job.Status)
	assert.Equal(t, core.KindCanceled, job.ErrorKind)

	other, err := p.Hold(holdCtx, "idle")
	require.NoError(t, err)
	other()
}

// failingJobs fails SaveJob for one status and delegates everything else.
type failingJobs struct {
	storage.JobRepository
	status core.JobStatus
}

func (f *failingJobs) SaveJob(ctx context.Context, job *core.VideoJob) error {
	if job.Status == f.status {
		return fmt.Errorf("disk full")
	}
	return f.JobRepository.SaveJob(ctx, job)
}

func TestPipeline_UnpersistedTransitionFailsRun(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()
	repos.Jobs = &failingJobs{JobRepository: repos.Jobs, status: core.StatusIndexed}

	set := mock.NewSet()
	set.Transcriber.SetTranscript("xyz", segments("First segment.", "Second segment."))
	p, err := NewPipeline(repos, set.Providers(), NewRegistry(), WithRetryPolicy(fastRetry()))
	require.NoError(t, err)
	defer p.Close(context.Background())

	ctx := context.Background()
	_, err = p.Submit(ctx, "xyz")
	require.NoError(t, err)

	job := waitJob(t, p, "xyz")
	assert.Equal(t, core.StatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "disk full")
	assert.False(t, p.Registry().Active("xyz"))

	count, err := repos.Index.Count(ctx, "xyz")
	require.NoError(t, err)
	assert.Zero(t, count, "a failed run leaves no chunks behind")
}
