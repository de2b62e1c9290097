package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// VideoID is the canonical identifier of a source video.
type VideoID string

// JobStatus is the stage a VideoJob is in.
type JobStatus int

const (
	StatusQueued JobStatus = iota + 1
	StatusDownloading
	StatusTranscribing
	StatusChunking
	StatusEmbedding
	StatusIndexed
	StatusFailed
)

var statusNames = map[JobStatus]string{
	StatusQueued:       "queued",
	StatusDownloading:  "downloading",
	StatusTranscribing: "transcribing",
	StatusChunking:     "chunking",
	StatusEmbedding:    "embedding",
	StatusIndexed:      "indexed",
	StatusFailed:       "failed",
}

func (s JobStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal reports whether no further stage follows s.
func (s JobStatus) IsTerminal() bool {
	return s == StatusIndexed || s == StatusFailed
}

// IsActive reports whether a pipeline run is expected to be working on the job.
func (s JobStatus) IsActive() bool {
	return s >= StatusQueued && s < StatusIndexed
}

// VideoMetadata describes the source video. Every field is optional.
type VideoMetadata struct {
	Title       string
	Uploader    string
	Description string
	Thumbnail   string
	Duration    time.Duration
}

// VideoJob tracks ingestion of one video from submission to indexed-or-failed.
type VideoJob struct {
	VideoID      VideoID
	Status       JobStatus
	ErrorKind    ErrorKind // Set iff Status is StatusFailed
	ErrorMessage string
	Attempt      int // Incremented each time the pipeline restarts the job
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Metadata     VideoMetadata
}

// Clone returns a copy of the job that shares no state with j.
func (j *VideoJob) Clone() *VideoJob {
	if j == nil {
		return nil
	}
	c := *j
	return &c
}

// Err returns the classified failure of a failed job, or nil.
func (j *VideoJob) Err() error {
	if j == nil || j.Status != StatusFailed {
		return nil
	}
	return &Error{Kind: j.ErrorKind, Op: "ingest " + string(j.VideoID), Err: errorText(j.ErrorMessage)}
}

// TranscriptSegment is one timed piece of a transcript.
type TranscriptSegment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Transcript holds the ordered segments produced by transcription.
type Transcript struct {
	VideoID   VideoID
	Segments  []TranscriptSegment
	Checksum  ID // IDFromContent over the concatenated segment text
	CreatedAt time.Time
}

// Duration returns the end time of the last segment.
func (t *Transcript) Duration() time.Duration {
	if t == nil || len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// Text returns the segment texts joined by single spaces.
func (t *Transcript) Text() string {
	if t == nil {
		return ""
	}
	return JoinSegments(t.Segments)
}

// Chunk is a contiguous, time-anchored slice of a transcript.
type Chunk struct {
	VideoID  VideoID
	Sequence int
	Text     string
	Start    time.Duration
	End      time.Duration
}

// IndexedChunk is a chunk together with its embedding.
type IndexedChunk struct {
	Chunk  Chunk
	Vector []float32
}

// ScoredChunk is a retrieval hit.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// Role identifies the author of a chat message.
type Role int

const (
	RoleUser Role = iota + 1
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	}
	return "unknown"
}

// ChunkRef points at the chunk an answer was grounded on.
type ChunkRef struct {
	VideoID  VideoID
	Sequence int
	Start    time.Duration
	End      time.Duration
	Score    float32
	Snippet  string
}

// ChatMessage is one entry of a chat session.
type ChatMessage struct {
	Role      Role
	Text      string
	Sources   []ChunkRef
	Timestamp time.Time
}

// ChatSession is a conversation about one video.
type ChatSession struct {
	ID        string
	VideoID   VideoID
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SummaryStyle selects the summary prompt.
type SummaryStyle string

const (
	StyleComprehensive SummaryStyle = "comprehensive"
	StyleBullet        SummaryStyle = "bullet"
	StyleInsights      SummaryStyle = "insights"
	StyleTimeline      SummaryStyle = "timeline"
	StyleQA            SummaryStyle = "qa"
	StyleBrief         SummaryStyle = "brief"
)

// SummaryStyles lists the supported styles in display order.
var SummaryStyles = []SummaryStyle{
	StyleComprehensive, StyleBullet, StyleInsights, StyleTimeline, StyleQA, StyleBrief,
}

// Summary is the latest generated summary of a video.
type Summary struct {
	VideoID     VideoID
	Style       SummaryStyle
	Text        string
	Overview    string
	KeyPoints   []string
	Partials    int // Number of partial summaries reduced into Text; 0 for single-pass
	GeneratedAt time.Time
}

// Answer is the result of a chat question.
type Answer struct {
	Text     string
	Sources  []ChunkRef
	Grounded bool
}
