package gemini

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/core"
)

const transcribePrompt = `Transcribe the provided audio verbatim.
Respond with a JSON array only. Each element is an object with "start" and "end"
(seconds from the beginning of the audio) and "text" (the words spoken).
Keep each element to one or two sentences and keep elements in time order.`

// Transcriber implements ai.Transcriber by uploading audio to Gemini.
type Transcriber struct {
	config       *ai.Config
	clients      *clients
	pollInterval time.Duration
	maxPolls     int
	logger       *slog.Logger

	// call returns the raw model output for audio; replaced in tests.
	call func(ctx context.Context, audio *ai.Audio) (string, error)
}

func newTranscriber(config *ai.Config) (*Transcriber, error) {
	config.Normalize()
	if err := config.ValidateGemini(); err != nil {
		return nil, err
	}
	if config.GeminiAPIKey == "" {
		return nil, core.Errorf(core.KindAuth, "gemini transcriber", "GeminiAPIKey is required")
	}

	t := &Transcriber{
		config:       config,
		clients:      newClients(),
		pollInterval: 2 * time.Second,
		maxPolls:     30,
		logger:       slog.Default().With("component", "gemini-transcriber"),
	}
	t.call = t.send
	return t, nil
}

// NewTranscriber creates a Gemini transcriber authenticated with the
// configured API key.
func NewTranscriber(config *ai.Config) (ai.Transcriber, error) {
	return newTranscriber(config)
}

func (t *Transcriber) send(ctx context.Context, audio *ai.Audio) (string, error) {
	client, err := t.clients.get(ctx, t.config.GeminiAPIKey)
	if err != nil {
		return "", err
	}

	file, err := client.UploadFile(ctx, "", bytes.NewReader(audio.Data), &genai.UploadFileOptions{
		DisplayName: "vidchat-" + string(audio.VideoID),
		MIMEType:    audio.MIMEType,
	})
	if err != nil {
		return "", err
	}
	defer func() {
		if err := client.DeleteFile(context.Background(), file.Name); err != nil {
			t.logger.Warn("failed to delete uploaded audio", "file", file.Name, "err", err)
		}
	}()

	for i := 0; i < t.maxPolls && file.State != genai.FileStateActive; i++ {
		if file.State == genai.FileStateFailed {
			return "", core.Errorf(core.KindUnsupportedFormat, "gemini transcribe", "audio processing failed")
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(t.pollInterval):
		}
		if file, err = client.GetFile(ctx, file.Name); err != nil {
			return "", err
		}
	}
	if file.State != genai.FileStateActive {
		return "", core.Errorf(core.KindNetwork, "gemini transcribe", "audio file did not become active in time")
	}

	model := client.GenerativeModel(t.config.GeminiModel)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	resp, err := model.GenerateContent(ctx,
		genai.Text(transcribePrompt),
		genai.FileData{MIMEType: audio.MIMEType, URI: file.URI},
	)
	if err != nil {
		return "", err
	}
	return extractText(resp), nil
}

// Transcribe returns time-ordered segments for audio.
func (t *Transcriber) Transcribe(ctx context.Context, audio *ai.Audio) ([]core.TranscriptSegment, error) {
	if audio == nil || len(audio.Data) == 0 {
		return nil, core.Errorf(core.KindUnsupportedFormat, "gemini transcribe", "audio payload is empty")
	}
	if audio.MIMEType == "" {
		audio.MIMEType = "audio/mp4"
	}

	t.logger.Debug("transcribing", "video", audio.VideoID, "bytes", len(audio.Data), "mime", audio.MIMEType)
	raw, err := t.call(ctx, audio)
	if err != nil {
		return nil, classify("gemini transcribe", err)
	}

	segments, err := parseSegments(raw, audio.Metadata.Duration)
	if err != nil {
		return nil, core.NewError(core.KindProvider, "gemini transcribe", err)
	}
	return segments, nil
}

// Close releases the cached client.
func (t *Transcriber) Close() error {
	return t.clients.close()
}

type rawSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// parseSegments decodes the model output. Plain text output becomes one
// segment spanning the whole video when its duration is known.
func parseSegments(raw string, duration time.Duration) ([]core.TranscriptSegment, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, core.ErrProvider
	}

	var decoded []rawSegment
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		if strings.HasPrefix(raw, "[") || strings.HasPrefix(raw, "{") || duration <= 0 {
			return nil, err
		}
		return []core.TranscriptSegment{{Start: 0, End: duration, Text: raw}}, nil
	}

	segments := make([]core.TranscriptSegment, 0, len(decoded))
	for _, d := range decoded {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			continue
		}
		start := seconds(d.Start)
		end := seconds(d.End)
		if end < start {
			end = start
		}
		segments = append(segments, core.TranscriptSegment{Start: start, End: end, Text: text})
	}
	slices.SortStableFunc(segments, func(a, b core.TranscriptSegment) int {
		return cmp.Compare(a.Start, b.Start)
	})
	if err := core.ValidateSegments(segments); err != nil {
		return nil, err
	}
	return segments, nil
}

func seconds(s float64) time.Duration {
	if s < 0 || math.IsNaN(s) {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
