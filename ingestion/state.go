package ingestion

import (
	"time"

	"github.com/poiesic/vidchat/core"
)

var nextStatus = map[core.JobStatus]core.JobStatus{
	core.StatusQueued:       core.StatusDownloading,
	core.StatusDownloading:  core.StatusTranscribing,
	core.StatusTranscribing: core.StatusChunking,
	core.StatusChunking:     core.StatusEmbedding,
	core.StatusEmbedding:    core.StatusIndexed,
}

// Outcome is the result of the stage a job is in.
type Outcome struct {
	Err error
	At  time.Time
}

// Advance returns the job that follows job after outcome. Success moves to
// the next status, failure moves to Failed with the error's kind. Terminal
// jobs are returned unchanged. job itself is never modified.
func Advance(job *core.VideoJob, outcome Outcome) *core.VideoJob {
	next := job.Clone()
	following, ok := nextStatus[job.Status]
	if !ok {
		return next
	}
	next.UpdatedAt = outcome.At
	if outcome.Err != nil {
		next.Status = core.StatusFailed
		next.ErrorKind = core.KindOf(outcome.Err)
		next.ErrorMessage = outcome.Err.Error()
		return next
	}
	next.Status = following
	return next
}

// Restart returns a Queued job for videoID. A prior job keeps its creation
// time and metadata and has its attempt counter incremented.
func Restart(videoID core.VideoID, prior *core.VideoJob, at time.Time) *core.VideoJob {
	job := &core.VideoJob{
		VideoID:   videoID,
		Status:    core.StatusQueued,
		Attempt:   1,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if prior != nil {
		job.Attempt = prior.Attempt + 1
		job.CreatedAt = prior.CreatedAt
		job.Metadata = prior.Metadata
	}
	return job
}
