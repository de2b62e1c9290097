package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/chunker"
	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/embedding"
	"github.com/poiesic/vidchat/retry"
	"github.com/poiesic/vidchat/storage"
)

// Notifier receives every persisted job transition.
type Notifier interface {
	Notify(ctx context.Context, job *core.VideoJob) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, job *core.VideoJob) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, job *core.VideoJob) error {
	return f(ctx, job)
}

const interruptedMessage = "interrupted"

// Pipeline orchestrates the ingestion of videos.
type Pipeline struct {
	jobs        storage.JobRepository
	transcripts storage.TranscriptRepository
	index       storage.VectorIndex
	registry    *Registry
	pool        *ants.Pool
	processors  []processor
	notifier    Notifier
	logger      *slog.Logger

	// configured by options, consumed when building the processors
	gateway     *embedding.Gateway
	chunkOpts   chunker.Options
	retryPolicy retry.Policy

	closeOnce sync.Once
	closed    chan struct{}
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many videos are processed at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithChunkOptions replaces the chunker options.
func WithChunkOptions(opts chunker.Options) Option {
	return func(p *Pipeline) error {
		if err := opts.Validate(); err != nil {
			return err
		}
		p.chunkOpts = opts
		return nil
	}
}

// WithRetryPolicy replaces the retry policy applied at stage boundaries.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) error {
		if policy.MaxAttempts <= 0 {
			return retry.ErrInvalidMaxAttempts
		}
		p.retryPolicy = policy
		return nil
	}
}

// WithGateway replaces the embedding gateway built from the providers.
func WithGateway(gateway *embedding.Gateway) Option {
	return func(p *Pipeline) error {
		p.gateway = gateway
		return nil
	}
}

// WithNotifier sets the receiver of job transitions.
func WithNotifier(notifier Notifier) Option {
	return func(p *Pipeline) error {
		p.notifier = notifier
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repos *storage.Repositories, providers ai.Providers, registry *Registry, opts ...Option) (*Pipeline, error) {
	if repos == nil || repos.Jobs == nil || repos.Transcripts == nil || repos.Index == nil {
		return nil, ErrRepositoriesRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if providers.Media == nil {
		return nil, ai.ErrMediaFetcherRequired
	}
	if providers.Transcriber == nil {
		return nil, ai.ErrTranscriberRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		jobs:        repos.Jobs,
		transcripts: repos.Transcripts,
		index:       repos.Index,
		registry:    registry,
		pool:        pool,
		logger:      slog.Default().With("component", "ingestion"),
		chunkOpts:   chunker.DefaultOptions(),
		retryPolicy: retry.DefaultPolicy(),
		closed:      make(chan struct{}),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.pool.Release()
			return nil, optErr
		}
	}

	if p.gateway == nil {
		gateway, err := embedding.New(providers.Embedder, embedding.WithLogger(p.logger), embedding.WithRetryPolicy(p.retryPolicy))
		if err != nil {
			p.pool.Release()
			return nil, err
		}
		p.gateway = gateway
	}

	p.processors = []processor{
		&downloadProcessor{media: providers.Media, policy: p.retryPolicy, logger: p.logger},
		&transcribeProcessor{transcriber: providers.Transcriber, transcripts: p.transcripts, policy: p.retryPolicy, logger: p.logger},
		&chunkProcessor{options: p.chunkOpts},
		&embeddingProcessor{gateway: p.gateway, index: p.index, logger: p.logger},
	}
	return p, nil
}

// Registry returns the registry the pipeline reports runs to.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Submit starts ingestion of videoRef. An active job for the same video is
// returned unchanged. A terminal job is restarted from Queued.
func (p *Pipeline) Submit(ctx context.Context, videoRef string) (*core.VideoJob, error) {
	videoID, err := core.ParseVideoRef(videoRef)
	if err != nil {
		return nil, err
	}
	select {
	case <-p.closed:
		return nil, ErrPipelineClosed
	default:
	}

	var (
		job    *core.VideoJob
		rn     *run
		cancel context.CancelFunc
		runCtx context.Context
	)
	for rn == nil {
		if current, ok := p.registry.Snapshot(videoID); ok {
			return current, nil
		}
		if held := p.registry.heldCh(videoID); held != nil {
			select {
			case <-held:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		prior, err := p.jobs.GetJob(ctx, videoID)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
		job = Restart(videoID, prior, time.Now().UTC())

		runCtx, cancel = context.WithCancel(context.WithoutCancel(ctx))
		started, current, ok := p.registry.begin(job, cancel)
		if !ok {
			cancel()
			if current != nil {
				return current, nil
			}
			// Held between the check and begin; wait for the release.
			continue
		}
		rn = started
	}

	if err := p.jobs.SaveJob(ctx, job); err != nil {
		cancel()
		p.registry.finish(videoID, rn)
		return nil, err
	}
	p.notify(job)

	p.logger.Info("video submitted", "video", videoID, "attempt", job.Attempt)
	go p.dispatch(runCtx, rn, job)
	return job.Clone(), nil
}

// dispatch waits for a free worker. The job stays Queued until then.
func (p *Pipeline) dispatch(ctx context.Context, rn *run, job *core.VideoJob) {
	err := p.pool.Submit(func() {
		p.execute(ctx, rn, job)
	})
	if err != nil {
		p.logger.Error("failed to schedule job", "video", job.VideoID, "err", err)
		p.fail(rn, job, core.NewError(core.KindCanceled, "schedule", err))
		rn.cancel()
		p.registry.finish(job.VideoID, rn)
	}
}

// execute runs every stage in order, persisting each transition.
func (p *Pipeline) execute(ctx context.Context, rn *run, job *core.VideoJob) {
	defer p.registry.finish(job.VideoID, rn)
	defer rn.cancel()

	logger := p.logger.With("video", job.VideoID, "attempt", job.Attempt)
	w := &work{job: job}
	for _, proc := range p.processors {
		// Leave the previous status: Queued moves to Downloading and so on.
		if !p.transition(rn, w, Outcome{Err: ctx.Err(), At: time.Now().UTC()}) {
			p.cleanup(w.job)
			return
		}
		logger.Debug("stage started", "status", proc.status())
		if err := proc.process(ctx, w); err != nil {
			if ctx.Err() != nil {
				err = core.NewError(core.KindCanceled, "ingest", ctx.Err())
			}
			logger.Warn("stage failed", "status", w.job.Status, "err", err)
			p.transition(rn, w, Outcome{Err: err, At: time.Now().UTC()})
			p.cleanup(w.job)
			return
		}
	}
	if !p.transition(rn, w, Outcome{At: time.Now().UTC()}) {
		p.cleanup(w.job)
		return
	}
	logger.Info("video indexed", "title", w.job.Metadata.Title)
}

// transition advances w.job and persists it. It returns false once the job
// has failed.
func (p *Pipeline) transition(rn *run, w *work, outcome Outcome) bool {
	next := Advance(w.job, outcome)
	// A transition is only final once persisted; retry the write briefly.
	err := retry.WithBackoff(context.Background(), func() error {
		return p.jobs.SaveJob(context.Background(), next)
	}, 3, 50*time.Millisecond)
	if err != nil {
		p.logger.Error("failed to persist job", "video", next.VideoID, "status", next.Status, "err", err)
		if next.Status != core.StatusFailed {
			// The store would keep reporting the previous status; end the
			// run so the two agree as far as the store allows.
			next = Advance(w.job, Outcome{Err: fmt.Errorf("persist %s: %w", next.Status, err), At: outcome.At})
			if err := p.jobs.SaveJob(context.Background(), next); err != nil {
				p.logger.Error("failed to persist job failure", "video", next.VideoID, "err", err)
			}
		}
	}
	p.registry.update(rn, next)
	p.notify(next)
	w.job = next
	return next.Status != core.StatusFailed
}

// fail marks a job that never reached a worker as Failed.
func (p *Pipeline) fail(rn *run, job *core.VideoJob, err error) {
	p.transition(rn, &work{job: job}, Outcome{Err: err, At: time.Now().UTC()})
	p.cleanup(job)
}

// cleanup deletes partial index state of a failed run.
func (p *Pipeline) cleanup(job *core.VideoJob) {
	if err := p.index.Delete(context.Background(), job.VideoID); err != nil {
		p.logger.Warn("failed to delete partial index", "video", job.VideoID, "err", err)
	}
}

func (p *Pipeline) notify(job *core.VideoJob) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(context.Background(), job.Clone()); err != nil {
		p.logger.Warn("job notification failed", "video", job.VideoID, "status", job.Status, "err", err)
	}
}

// Status returns the current job of videoRef.
func (p *Pipeline) Status(ctx context.Context, videoRef string) (*core.VideoJob, error) {
	videoID, err := core.ParseVideoRef(videoRef)
	if err != nil {
		return nil, err
	}
	if job, ok := p.registry.Snapshot(videoID); ok {
		return job, nil
	}
	job, err := p.jobs.GetJob(ctx, videoID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.Errorf(core.KindNotFound, "status", "video %s was never submitted", videoID)
	}
	return job, err
}

// Wait blocks until the active run of videoID finishes and returns the
// resulting job. Without an active run it returns the stored job.
func (p *Pipeline) Wait(ctx context.Context, videoID core.VideoID) (*core.VideoJob, error) {
	if done := p.registry.doneCh(videoID); done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.jobs.GetJob(ctx, videoID)
}

// Cancel stops the active run of videoID and waits for it to record
// Failed(Canceled). It returns a NotFound error if no run is active.
func (p *Pipeline) Cancel(ctx context.Context, videoID core.VideoID) error {
	done, ok := p.registry.cancel(videoID)
	if !ok {
		return core.Errorf(core.KindNotFound, "cancel", "no active job for %s", videoID)
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Hold cancels the active run of videoID, if any, and reserves the video
// until release is called. It waits for other holders to finish first.
func (p *Pipeline) Hold(ctx context.Context, videoID core.VideoID) (release func(), err error) {
	for {
		if release, ok := p.registry.Hold(videoID); ok {
			return release, nil
		}
		wait, ok := p.registry.cancel(videoID)
		if !ok {
			wait = p.registry.heldCh(videoID)
		}
		if wait == nil {
			continue
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Recover fails jobs left in a non-terminal status by a previous process
// and deletes their partial index. Call it once at startup.
func (p *Pipeline) Recover(ctx context.Context) (int, error) {
	jobs, err := p.jobs.ListJobs(ctx)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, job := range jobs {
		if job.Status.IsTerminal() || p.registry.Active(job.VideoID) || p.registry.Held(job.VideoID) {
			continue
		}
		failed := Advance(job, Outcome{
			Err: core.Errorf(core.KindCanceled, "ingest", interruptedMessage),
			At:  time.Now().UTC(),
		})
		if err := p.jobs.SaveJob(ctx, failed); err != nil {
			return recovered, err
		}
		if err := p.index.Delete(ctx, job.VideoID); err != nil {
			return recovered, err
		}
		p.notify(failed)
		p.logger.Info("recovered interrupted job", "video", job.VideoID, "status", job.Status)
		recovered++
	}
	return recovered, nil
}

// Close cancels every active run, waits for them and releases the pool.
func (p *Pipeline) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		for _, done := range p.registry.cancelAll() {
			select {
			case <-done:
			case <-ctx.Done():
				err = ctx.Err()
			}
			if err != nil {
				break
			}
		}
		p.pool.Release()
	})
	return err
}
