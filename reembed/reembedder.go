// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/embedding"
	"github.com/poiesic/vidchat/ingestion"
	"github.com/poiesic/vidchat/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// ReportInterval is how often to report progress (number of videos)
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReportInterval: 1,
	}
}

// Result summarizes a reembedding run.
type Result struct {
	Videos  int
	Chunks  int
	Skipped []core.VideoID
}

// Reembedder orchestrates the reembedding of every indexed video.
type Reembedder struct {
	jobs      storage.JobRepository
	registry  *ingestion.Registry
	config    *Config
	progress  io.Writer
	processor *VideoProcessor
	iterator  *VideoIterator
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder.
// registry: in-flight ingestion runs to skip; may be nil
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repos *storage.Repositories, gateway *embedding.Gateway, registry *ingestion.Registry, config *Config, progress io.Writer) (*Reembedder, error) {
	if repos == nil || repos.Jobs == nil || repos.Index == nil {
		return nil, ErrRepositoriesRequired
	}
	if gateway == nil {
		return nil, ErrGatewayRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		jobs:      repos.Jobs,
		registry:  registry,
		config:    config,
		progress:  progress,
		processor: NewVideoProcessor(gateway, repos.Index),
		iterator:  NewVideoIterator(repos.Jobs, repos.Index),
		logger:    slog.Default().With("component", "reembedder"),
	}, nil
}

// Run re-embeds every Indexed video. Each video is held in the registry
// while its index is rewritten; videos with an active ingestion run are
// skipped.
func (r *Reembedder) Run(ctx context.Context) (*Result, error) {
	videos, err := r.iterator.Videos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	result := &Result{}
	if len(videos) == 0 {
		fmt.Fprintf(r.progress, "No indexed videos found\n")
		return result, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d videos\n", len(videos))

	tracker := NewProgressTracker(r.progress, len(videos), r.config.ReportInterval)
	tracker.Start()

	skip := func(videoID core.VideoID) {
		result.Skipped = append(result.Skipped, videoID)
		tracker.Done(0)
	}
	err = r.iterator.ForEach(ctx, videos, func(job *core.VideoJob, load func() ([]core.IndexedChunk, error)) error {
		release, ok := r.hold(job.VideoID)
		if !ok {
			skip(job.VideoID)
			return nil
		}
		defer release()

		if r.changed(ctx, job) {
			r.logger.Info("video changed since it was listed, skipping", "video", job.VideoID)
			skip(job.VideoID)
			return nil
		}
		chunks, err := load()
		if err != nil {
			return fmt.Errorf("failed to load chunks of video %s: %w", job.VideoID, err)
		}
		plain, vectors, err := r.processor.Embed(ctx, chunks)
		if err != nil {
			return fmt.Errorf("failed to process video %s: %w", job.VideoID, err)
		}
		if r.changed(ctx, job) {
			r.logger.Info("video changed while reembedding, skipping", "video", job.VideoID)
			skip(job.VideoID)
			return nil
		}
		if err := r.processor.Replace(ctx, job.VideoID, plain, vectors); err != nil {
			return fmt.Errorf("failed to process video %s: %w", job.VideoID, err)
		}

		result.Videos++
		result.Chunks += len(plain)
		tracker.Done(len(plain))
		return nil
	})

	if err != nil {
		return result, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d videos (%d chunks) in %v, skipped %d\n",
		result.Videos, result.Chunks, elapsed.Round(time.Millisecond), len(result.Skipped))

	return result, nil
}

// hold reserves videoID against ingestion runs for the duration of a
// rewrite. Without a registry nothing is reserved.
func (r *Reembedder) hold(videoID core.VideoID) (func(), bool) {
	if r.registry == nil {
		return func() {}, true
	}
	return r.registry.Hold(videoID)
}

// changed reports whether job was touched since it was listed.
func (r *Reembedder) changed(ctx context.Context, job *core.VideoJob) bool {
	current, err := r.jobs.GetJob(ctx, job.VideoID)
	if err != nil {
		return true
	}
	return current.Status != core.StatusIndexed || !current.UpdatedAt.Equal(job.UpdatedAt)
}
