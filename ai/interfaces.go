package ai

import (
	"context"

	"github.com/poiesic/vidchat/core"
)

// Audio is the acquired audio track of a video.
type Audio struct {
	VideoID  core.VideoID
	Data     []byte
	MIMEType string
	Metadata core.VideoMetadata
}

// MediaFetcher acquires the audio of a video.
// Fails with NotFound, RateLimited or Network kinds.
type MediaFetcher interface {
	FetchAudio(ctx context.Context, videoID core.VideoID) (*Audio, error)
}

// Transcriber converts audio into time-ordered transcript segments.
// Fails with UnsupportedFormat or Provider kinds.
type Transcriber interface {
	Transcribe(ctx context.Context, audio *Audio) ([]core.TranscriptSegment, error)
}

// Embedder generates a fixed-length vector embedding for text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder is an optional capability of an Embedder. The returned slice
// holds embeddings in input order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// GenerateRequest is the input to a Generator.
type GenerateRequest struct {
	Prompt    string
	MaxTokens int
	// Credential authenticates the call. Sourcing it is the caller's concern.
	Credential string
}

// Generator produces text from a prompt.
// Fails with Auth, RateLimited or Provider kinds.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Providers groups the capabilities an Engine is wired with.
type Providers struct {
	Media       MediaFetcher
	Transcriber Transcriber
	Embedder    Embedder
	Generator   Generator
}

// Validate reports the first missing capability.
func (p Providers) Validate() error {
	switch {
	case p.Media == nil:
		return ErrMediaFetcherRequired
	case p.Transcriber == nil:
		return ErrTranscriberRequired
	case p.Embedder == nil:
		return ErrEmbedderRequired
	case p.Generator == nil:
		return ErrGeneratorRequired
	}
	return nil
}
