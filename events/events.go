// Package events publishes ingestion job transitions.
//
// Every notifier here satisfies ingestion.Notifier. RedisNotifier publishes
// JSON events over redis pub/sub so other processes can follow a video;
// LogNotifier writes them to a slog.Logger; Multi fans out to several.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/vidchat/core"
)

// Event is the published form of a job transition.
type Event struct {
	VideoID   string    `json:"video_id"`
	Status    string    `json:"status"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
	Attempt   int       `json:"attempt"`
	Title     string    `json:"title,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromJob builds the event for job.
func FromJob(job *core.VideoJob) Event {
	ev := Event{
		VideoID:   string(job.VideoID),
		Status:    job.Status.String(),
		Attempt:   job.Attempt,
		Title:     job.Metadata.Title,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Status == core.StatusFailed {
		ev.ErrorKind = job.ErrorKind.String()
		ev.Message = job.ErrorMessage
	}
	return ev
}

// Terminal reports whether the event ends a run.
func (e Event) Terminal() bool {
	return e.Status == core.StatusIndexed.String() || e.Status == core.StatusFailed.String()
}

func encode(job *core.VideoJob) ([]byte, error) {
	return json.Marshal(FromJob(job))
}

// Decode parses a published event.
func Decode(data []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(data, &ev)
	return ev, err
}

// LogNotifier logs every transition.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses the default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default().With("component", "events")
	}
	return &LogNotifier{logger: logger}
}

// Notify logs job at info level, failures at warn.
func (n *LogNotifier) Notify(ctx context.Context, job *core.VideoJob) error {
	if job.Status == core.StatusFailed {
		n.logger.WarnContext(ctx, "job failed", "video", job.VideoID, "kind", job.ErrorKind, "err", job.ErrorMessage)
		return nil
	}
	n.logger.InfoContext(ctx, "job status", "video", job.VideoID, "status", job.Status, "attempt", job.Attempt)
	return nil
}

// Notifier is the method set shared by every notifier in this package.
type Notifier interface {
	Notify(ctx context.Context, job *core.VideoJob) error
}

// Multi notifies each notifier in order and joins their errors.
type Multi []Notifier

// Notify calls every notifier even when one fails.
func (m Multi) Notify(ctx context.Context, job *core.VideoJob) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
