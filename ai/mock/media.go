package mock

import (
	"context"
	"sync"
	"time"

	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/core"
)

// MockMediaFetcher is a test double for ai.MediaFetcher.
type MockMediaFetcher struct {
	// FetchAudioFunc is called by FetchAudio if set.
	FetchAudioFunc func(ctx context.Context, videoID core.VideoID) (*ai.Audio, error)

	mu    sync.Mutex
	calls []core.VideoID
}

// NewMockMediaFetcher creates a fetcher that returns fake audio for any id.
func NewMockMediaFetcher() *MockMediaFetcher {
	return &MockMediaFetcher{}
}

// FetchAudio records the call and returns audio for videoID.
func (m *MockMediaFetcher) FetchAudio(ctx context.Context, videoID core.VideoID) (*ai.Audio, error) {
	m.mu.Lock()
	m.calls = append(m.calls, videoID)
	m.mu.Unlock()

	if m.FetchAudioFunc != nil {
		return m.FetchAudioFunc(ctx, videoID)
	}
	return &ai.Audio{
		VideoID:  videoID,
		Data:     []byte("fake-audio:" + string(videoID)),
		MIMEType: "audio/mp4",
		Metadata: core.VideoMetadata{
			Title:    "Video " + string(videoID),
			Uploader: "mock",
			Duration: time.Minute,
		},
	}, nil
}

// CallCount returns the number of FetchAudio calls.
func (m *MockMediaFetcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CallsFor returns the number of FetchAudio calls for videoID.
func (m *MockMediaFetcher) CallsFor(videoID core.VideoID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range m.calls {
		if id == videoID {
			n++
		}
	}
	return n
}
