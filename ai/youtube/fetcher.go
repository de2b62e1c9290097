package youtube

import (
	"context"
	"io"
	"log/slog"
	"strings"

	yt "github.com/kkdai/youtube/v2"
	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/core"
)

// DefaultMaxAudioBytes caps a downloaded audio track.
const DefaultMaxAudioBytes = 100 * 1024 * 1024

// Option configures a Fetcher.
type Option func(*Fetcher) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) error {
		f.logger = logger
		return nil
	}
}

// WithMaxAudioBytes caps the size of a downloaded track.
func WithMaxAudioBytes(n int64) Option {
	return func(f *Fetcher) error {
		if n <= 0 {
			return core.Errorf(core.KindInput, "youtube fetcher", "max audio bytes must be positive")
		}
		f.maxBytes = n
		return nil
	}
}

// Fetcher implements ai.MediaFetcher with the public YouTube player API.
type Fetcher struct {
	client   *yt.Client
	maxBytes int64
	logger   *slog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		client:   &yt.Client{},
		maxBytes: DefaultMaxAudioBytes,
		logger:   slog.Default().With("component", "youtube-fetcher"),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// FetchAudio downloads the highest bitrate stream that carries audio.
func (f *Fetcher) FetchAudio(ctx context.Context, videoID core.VideoID) (*ai.Audio, error) {
	const op = "fetch audio"

	video, err := f.client.GetVideoContext(ctx, string(videoID))
	if err != nil {
		return nil, classify(op, err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, core.Errorf(core.KindNotFound, op, "no audio formats available for %s", videoID)
	}
	best := formats[0]
	for _, format := range formats {
		if format.Bitrate > best.Bitrate {
			best = format
		}
	}

	stream, _, err := f.client.GetStreamContext(ctx, video, &best)
	if err != nil {
		return nil, classify(op, err)
	}
	defer stream.Close()

	data, err := io.ReadAll(io.LimitReader(stream, f.maxBytes+1))
	if err != nil {
		return nil, classify(op, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, core.Errorf(core.KindUnsupportedFormat, op, "audio stream exceeds %d MB limit", f.maxBytes/(1024*1024))
	}

	mimeType := strings.TrimSpace(strings.Split(best.MimeType, ";")[0])
	if mimeType == "" {
		mimeType = "audio/mp4"
	}

	f.logger.Debug("downloaded audio", "video", videoID, "bytes", len(data), "mime", mimeType)
	return &ai.Audio{
		VideoID:  videoID,
		Data:     data,
		MIMEType: mimeType,
		Metadata: metadataOf(video),
	}, nil
}

func metadataOf(video *yt.Video) core.VideoMetadata {
	md := core.VideoMetadata{
		Title:       video.Title,
		Uploader:    video.Author,
		Description: video.Description,
		Duration:    video.Duration,
	}
	// thumbnails are listed smallest first
	if n := len(video.Thumbnails); n > 0 {
		md.Thumbnail = video.Thumbnails[n-1].URL
	}
	return md
}

var notFoundHints = []string{"not found", "unavailable", "private", "removed", "does not exist"}

// classify maps downloader failures, which carry no structured status,
// onto the error taxonomy.
func classify(op string, err error) error {
	msg := strings.ToLower(err.Error())
	for _, hint := range notFoundHints {
		if strings.Contains(msg, hint) {
			return core.NewError(core.KindNotFound, op, err)
		}
	}
	if strings.Contains(msg, "429") || strings.Contains(msg, "too many requests") {
		return core.NewError(core.KindRateLimited, op, err)
	}
	return ai.Classify(op, err)
}
