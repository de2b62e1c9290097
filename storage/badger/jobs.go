package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
type JobRepository struct {
	backend *Backend
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) *JobRepository {
	return &JobRepository{backend: backend}
}

// SaveJob creates or replaces the job of job.VideoID.
func (r *JobRepository) SaveJob(ctx context.Context, job *core.VideoJob) error {
	if job.VideoID == "" {
		return core.Errorf(core.KindInput, "save job", "video ID is empty")
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.CreatedAt
	}
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		return tx.Set(makeJobKey(job.VideoID), storage.MarshalVideoJob(job))
	})
}

// GetJob retrieves the job of videoID.
func (r *JobRepository) GetJob(ctx context.Context, videoID core.VideoID) (*core.VideoJob, error) {
	var job *core.VideoJob
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		job, err = get(tx, makeJobKey(videoID), storage.UnmarshalVideoJob)
		return err
	})
	return job, err
}

// ListJobs returns every job, oldest first.
func (r *JobRepository) ListJobs(ctx context.Context) ([]*core.VideoJob, error) {
	var jobs []*core.VideoJob
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		jobs, err = scan(tx, []byte(jobPrefix+":"), storage.UnmarshalVideoJob)
		return err
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(jobs, func(a, b *core.VideoJob) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return jobs, nil
}

// DeleteJob removes the job of videoID.
func (r *JobRepository) DeleteJob(ctx context.Context, videoID core.VideoID) error {
	return deleteExisting(ctx, r.backend, makeJobKey(videoID))
}

// deleteExisting removes key, returning storage.ErrNotFound if it is absent.
func deleteExisting(ctx context.Context, backend *Backend, key []byte) error {
	return backend.Update(ctx, func(tx *badger.Txn) error {
		ok, err := exists(tx, key)
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrNotFound
		}
		return tx.Delete(key)
	})
}

// TranscriptRepository implements storage.TranscriptRepository for BadgerDB.
type TranscriptRepository struct {
	backend *Backend
}

var _ storage.TranscriptRepository = (*TranscriptRepository)(nil)

// NewTranscriptRepository creates a new TranscriptRepository.
func NewTranscriptRepository(backend *Backend) *TranscriptRepository {
	return &TranscriptRepository{backend: backend}
}

// SaveTranscript replaces the transcript of transcript.VideoID.
func (r *TranscriptRepository) SaveTranscript(ctx context.Context, transcript *core.Transcript) error {
	if transcript.VideoID == "" {
		return core.Errorf(core.KindInput, "save transcript", "video ID is empty")
	}
	if transcript.CreatedAt.IsZero() {
		transcript.CreatedAt = time.Now().UTC()
	}
	if transcript.Checksum == 0 {
		transcript.Checksum = core.IDFromContent(transcript.Text())
	}
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		return tx.Set(makeTranscriptKey(transcript.VideoID), storage.MarshalTranscript(transcript))
	})
}

// GetTranscript retrieves the transcript of videoID.
func (r *TranscriptRepository) GetTranscript(ctx context.Context, videoID core.VideoID) (*core.Transcript, error) {
	var transcript *core.Transcript
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		transcript, err = get(tx, makeTranscriptKey(videoID), storage.UnmarshalTranscript)
		return err
	})
	return transcript, err
}

// DeleteTranscript removes the transcript of videoID. Missing is not an error.
func (r *TranscriptRepository) DeleteTranscript(ctx context.Context, videoID core.VideoID) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		return tx.Delete(makeTranscriptKey(videoID))
	})
}

// SummaryRepository implements storage.SummaryRepository for BadgerDB.
type SummaryRepository struct {
	backend *Backend
}

var _ storage.SummaryRepository = (*SummaryRepository)(nil)

// NewSummaryRepository creates a new SummaryRepository.
func NewSummaryRepository(backend *Backend) *SummaryRepository {
	return &SummaryRepository{backend: backend}
}

// SaveSummary replaces the latest summary of summary.VideoID.
func (r *SummaryRepository) SaveSummary(ctx context.Context, summary *core.Summary) error {
	if summary.VideoID == "" {
		return core.Errorf(core.KindInput, "save summary", "video ID is empty")
	}
	if summary.GeneratedAt.IsZero() {
		summary.GeneratedAt = time.Now().UTC()
	}
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		return tx.Set(makeSummaryKey(summary.VideoID), storage.MarshalSummary(summary))
	})
}

// GetSummary retrieves the latest summary of videoID.
func (r *SummaryRepository) GetSummary(ctx context.Context, videoID core.VideoID) (*core.Summary, error) {
	var summary *core.Summary
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		summary, err = get(tx, makeSummaryKey(videoID), storage.UnmarshalSummary)
		return err
	})
	return summary, err
}

// DeleteSummary removes the summary of videoID. Missing is not an error.
func (r *SummaryRepository) DeleteSummary(ctx context.Context, videoID core.VideoID) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		return tx.Delete(makeSummaryKey(videoID))
	})
}
