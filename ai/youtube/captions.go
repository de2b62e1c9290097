package youtube

import (
	"context"
	"log/slog"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/core"
)

// preferredLanguages are tried before any other caption track.
var preferredLanguages = []string{"en", "en-US", "en-GB"}

// captionEntry is one timed caption line.
type captionEntry struct {
	Text     string
	Start    float64
	Duration float64
}

// captionSource fetches the caption track of a video; nil languages means any.
type captionSource func(videoID string, languages []string) ([]captionEntry, error)

// CaptionTranscriber implements ai.Transcriber from published captions.
type CaptionTranscriber struct {
	fetch    captionSource
	fallback ai.Transcriber
	logger   *slog.Logger
}

// NewCaptionTranscriber creates a caption-backed transcriber. When fallback
// is non-nil it transcribes videos that have no usable captions.
func NewCaptionTranscriber(fallback ai.Transcriber) *CaptionTranscriber {
	api := ytapi.NewYouTubeTranscriptApi()
	return &CaptionTranscriber{
		fetch: func(videoID string, languages []string) ([]captionEntry, error) {
			transcript, err := api.GetTranscript(videoID, languages)
			if err != nil {
				return nil, err
			}
			entries := make([]captionEntry, len(transcript.Entries))
			for i, e := range transcript.Entries {
				entries[i] = captionEntry{Text: e.Text, Start: e.Start, Duration: e.Duration}
			}
			return entries, nil
		},
		fallback: fallback,
		logger:   slog.Default().With("component", "youtube-captions"),
	}
}

// Transcribe returns the caption track of audio.VideoID as segments.
func (c *CaptionTranscriber) Transcribe(ctx context.Context, audio *ai.Audio) ([]core.TranscriptSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, ai.Classify("captions", err)
	}

	entries, err := c.fetch(string(audio.VideoID), preferredLanguages)
	if err != nil {
		entries, err = c.fetch(string(audio.VideoID), nil)
	}
	if err == nil {
		if segments := toSegments(entries); len(segments) > 0 {
			return segments, nil
		}
	}

	if c.fallback != nil {
		c.logger.Info("no usable captions, falling back to audio transcription", "video", audio.VideoID, "err", err)
		return c.fallback.Transcribe(ctx, audio)
	}
	if err != nil {
		return nil, classify("captions", err)
	}
	return nil, core.Errorf(core.KindProvider, "captions", "caption track for %s is empty", audio.VideoID)
}

func toSegments(entries []captionEntry) []core.TranscriptSegment {
	segments := make([]core.TranscriptSegment, 0, len(entries))
	for _, e := range entries {
		text := strings.TrimSpace(strings.ReplaceAll(e.Text, "\n", " "))
		if text == "" {
			continue
		}
		start := time.Duration(e.Start * float64(time.Second))
		end := start + time.Duration(e.Duration*float64(time.Second))
		if n := len(segments); n > 0 && start < segments[n-1].Start {
			start = segments[n-1].Start
		}
		if end < start {
			end = start
		}
		segments = append(segments, core.TranscriptSegment{Start: start, End: end, Text: text})
	}
	return segments
}
