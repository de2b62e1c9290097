package storage

import (
	"context"

	"github.com/poiesic/vidchat/core"
)

// VectorIndex stores one embedding per chunk, scoped per video.
// Implementations must be thread-safe and support concurrent access.
type VectorIndex interface {
	// Upsert replaces every chunk of videoID with chunks and their vectors.
	// Readers see either the previous complete set or the new one, never a mix.
	Upsert(ctx context.Context, videoID core.VideoID, chunks []core.Chunk, vectors [][]float32) error

	// Query returns up to k chunks of videoID ordered by cosine similarity
	// (highest first), ties broken by ascending sequence.
	Query(ctx context.Context, videoID core.VideoID, vector []float32, k int) ([]core.ScoredChunk, error)

	// Delete removes every chunk of videoID. Deleting nothing is not an error.
	Delete(ctx context.Context, videoID core.VideoID) error

	// Chunks returns the indexed chunks of videoID in sequence order.
	Chunks(ctx context.Context, videoID core.VideoID) ([]core.IndexedChunk, error)

	// Count returns the number of indexed chunks of videoID.
	Count(ctx context.Context, videoID core.VideoID) (int, error)
}

// JobRepository persists VideoJobs, one per video.
type JobRepository interface {
	// SaveJob creates or replaces the job of job.VideoID.
	SaveJob(ctx context.Context, job *core.VideoJob) error

	// GetJob returns ErrNotFound if the video was never submitted.
	GetJob(ctx context.Context, videoID core.VideoID) (*core.VideoJob, error)

	// ListJobs returns every job ordered by creation time, oldest first.
	ListJobs(ctx context.Context) ([]*core.VideoJob, error)

	// DeleteJob returns ErrNotFound if the job doesn't exist.
	DeleteJob(ctx context.Context, videoID core.VideoID) error
}

// TranscriptRepository persists the transcript of each video.
type TranscriptRepository interface {
	SaveTranscript(ctx context.Context, transcript *core.Transcript) error
	GetTranscript(ctx context.Context, videoID core.VideoID) (*core.Transcript, error)
	DeleteTranscript(ctx context.Context, videoID core.VideoID) error
}

// SessionRepository persists chat sessions and their append-only messages.
type SessionRepository interface {
	// CreateSession assigns an ID if session.ID is empty and sets timestamps.
	CreateSession(ctx context.Context, session *core.ChatSession) (*core.ChatSession, error)

	// GetSession returns ErrNotFound if the session doesn't exist.
	GetSession(ctx context.Context, sessionID string) (*core.ChatSession, error)

	// AppendMessages adds messages after the existing ones, atomically.
	// Returns ErrNotFound if the session doesn't exist.
	AppendMessages(ctx context.Context, sessionID string, messages ...*core.ChatMessage) error

	// GetMessages returns the messages of a session in append order.
	// A positive limit returns only the last limit messages.
	GetMessages(ctx context.Context, sessionID string, limit int) ([]*core.ChatMessage, error)

	// ListSessions returns the sessions of videoID, oldest first.
	ListSessions(ctx context.Context, videoID core.VideoID) ([]*core.ChatSession, error)

	// DeleteSession removes a session and its messages.
	DeleteSession(ctx context.Context, sessionID string) error
}

// SummaryRepository keeps the latest summary of each video.
type SummaryRepository interface {
	SaveSummary(ctx context.Context, summary *core.Summary) error
	GetSummary(ctx context.Context, videoID core.VideoID) (*core.Summary, error)
	DeleteSummary(ctx context.Context, videoID core.VideoID) error
}

// Repositories groups every store the engine needs.
type Repositories struct {
	Index       VectorIndex
	Jobs        JobRepository
	Transcripts TranscriptRepository
	Sessions    SessionRepository
	Summaries   SummaryRepository
	// Close releases the backend. May be nil.
	Close func() error
}
