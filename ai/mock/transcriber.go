package mock

import (
	"context"
	"sync"
	"time"

	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/core"
)

// MockTranscriber is a test double for ai.Transcriber.
type MockTranscriber struct {
	// TranscribeFunc is called by Transcribe if set.
	TranscribeFunc func(ctx context.Context, audio *ai.Audio) ([]core.TranscriptSegment, error)

	mu        sync.Mutex
	segments  map[core.VideoID][]core.TranscriptSegment
	callCount int
}

// NewMockTranscriber creates a transcriber with no registered transcripts.
func NewMockTranscriber() *MockTranscriber {
	return &MockTranscriber{segments: make(map[core.VideoID][]core.TranscriptSegment)}
}

// SetTranscript registers the segments returned for videoID.
func (m *MockTranscriber) SetTranscript(videoID core.VideoID, segments []core.TranscriptSegment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments[videoID] = segments
}

// Transcribe returns the registered segments, or a single ten second
// segment when nothing is registered for the video.
func (m *MockTranscriber) Transcribe(ctx context.Context, audio *ai.Audio) ([]core.TranscriptSegment, error) {
	m.mu.Lock()
	m.callCount++
	segs, ok := m.segments[audio.VideoID]
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audio)
	}
	if ok {
		return append([]core.TranscriptSegment(nil), segs...), nil
	}
	return []core.TranscriptSegment{
		{Start: 0, End: 10 * time.Second, Text: "transcript of " + string(audio.VideoID)},
	}, nil
}

// CallCount returns the number of Transcribe calls.
func (m *MockTranscriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
