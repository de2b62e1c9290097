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


package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/chunker"
	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/retry"
	"github.com/poiesic/vidchat/storage"
)

// work carries the products of earlier stages to later ones.
type work struct {
	job      *core.VideoJob
	audio    *ai.Audio
	segments []core.TranscriptSegment
	chunks   []core.Chunk
}

// processor is one stage of the pipeline. It runs while the job is in
// status() and leaves its product in w.
type processor interface {
	status() core.JobStatus
	process(ctx context.Context, w *work) error
}

// downloadProcessor acquires the audio track and the video metadata.
type downloadProcessor struct {
	media  ai.MediaFetcher
	policy retry.Policy
	logger *slog.Logger
}

var _ processor = (*downloadProcessor)(nil)

func (dp *downloadProcessor) status() core.JobStatus { return core.StatusDownloading }

func (dp *downloadProcessor) process(ctx context.Context, w *work) error {
	err := dp.policy.Do(ctx, func(ctx context.Context) error {
		audio, err := dp.media.FetchAudio(ctx, w.job.VideoID)
		if err != nil {
			dp.logger.Debug("audio fetch failed", "video", w.job.VideoID, "err", err)
			return err
		}
		w.audio = audio
		return nil
	})
	if err != nil {
		return err
	}
	if w.audio == nil || len(w.audio.Data) == 0 {
		return core.Errorf(core.KindProvider, "download", "no audio for %s", w.job.VideoID)
	}
	w.job.Metadata = mergeMetadata(w.job.Metadata, w.audio.Metadata)
	return nil
}

// mergeMetadata keeps known fields the fetcher left empty.
func mergeMetadata(prior, fetched core.VideoMetadata) core.VideoMetadata {
	if fetched.Title == "" {
		fetched.Title = prior.Title
	}
	if fetched.Uploader == "" {
		fetched.Uploader = prior.Uploader
	}
	if fetched.Description == "" {
		fetched.Description = prior.Description
	}
	if fetched.Thumbnail == "" {
		fetched.Thumbnail = prior.Thumbnail
	}
	if fetched.Duration == 0 {
		fetched.Duration = prior.Duration
	}
	return fetched
}

// transcribeProcessor converts audio into segments and persists the transcript.
type transcribeProcessor struct {
	transcriber ai.Transcriber
	transcripts storage.TranscriptRepository
	policy      retry.Policy
	logger      *slog.Logger
}

var _ processor = (*transcribeProcessor)(nil)

func (tp *transcribeProcessor) status() core.JobStatus { return core.StatusTranscribing }

func (tp *transcribeProcessor) process(ctx context.Context, w *work) error {
	err := tp.policy.Do(ctx, func(ctx context.Context) error {
		segments, err := tp.transcriber.Transcribe(ctx, w.audio)
		if err != nil {
			return err
		}
		w.segments = segments
		return nil
	})
	if err != nil {
		return err
	}
	if err := core.ValidateSegments(w.segments); err != nil {
		return core.NewError(core.KindProvider, "transcribe", err)
	}
	if strings.TrimSpace(core.JoinSegments(w.segments)) == "" {
		return core.Errorf(core.KindProvider, "transcribe", "empty transcript")
	}
	// Audio is no longer needed.
	w.audio = nil

	transcript := &core.Transcript{
		VideoID:   w.job.VideoID,
		Segments:  w.segments,
		CreatedAt: time.Now().UTC(),
	}
	if err := tp.transcripts.SaveTranscript(ctx, transcript); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	tp.logger.Debug("transcript saved", "video", w.job.VideoID, "segments", len(w.segments))
	return nil
}

// chunkProcessor packs segments into chunks.
type chunkProcessor struct {
	options chunker.Options
}

var _ processor = (*chunkProcessor)(nil)

func (cp *chunkProcessor) status() core.JobStatus { return core.StatusChunking }

func (cp *chunkProcessor) process(ctx context.Context, w *work) error {
	chunks, err := chunker.Chunk(w.job.VideoID, w.segments, cp.options)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return core.Errorf(core.KindProvider, "chunk", "empty transcript")
	}
	w.chunks = chunks
	return nil
}
