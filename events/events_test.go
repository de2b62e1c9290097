package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/poiesic/vidchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJob(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := FromJob(&core.VideoJob{
		VideoID:   "abc123",
		Status:    core.StatusEmbedding,
		Attempt:   2,
		UpdatedAt: at,
		Metadata:  core.VideoMetadata{Title: "Talk"},
	})
	assert.Equal(t, Event{VideoID: "abc123", Status: "embedding", Attempt: 2, Title: "Talk", UpdatedAt: at}, ev)
	assert.False(t, ev.Terminal())

	failed := FromJob(&core.VideoJob{
		VideoID:      "abc123",
		Status:       core.StatusFailed,
		ErrorKind:    core.KindRateLimited,
		ErrorMessage: "quota exceeded",
	})
	assert.Equal(t, "rate limited", failed.ErrorKind)
	assert.Equal(t, "quota exceeded", failed.Message)
	assert.True(t, failed.Terminal())
}

func TestEncodeDecode(t *testing.T) {
	job := &core.VideoJob{VideoID: "abc123", Status: core.StatusIndexed, Attempt: 1}
	data, err := encode(job)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"indexed"`)
	assert.NotContains(t, string(data), "error_kind")

	ev, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "abc123", ev.VideoID)
	assert.True(t, ev.Terminal())

	_, err = Decode([]byte("not json"))
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, n.Notify(context.Background(), &core.VideoJob{VideoID: "abc123", Status: core.StatusChunking}))
	require.NoError(t, n.Notify(context.Background(), &core.VideoJob{VideoID: "abc123", Status: core.StatusFailed, ErrorMessage: "boom"}))

	out := buf.String()
	assert.Contains(t, out, "status=chunking")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "boom")
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(ctx context.Context, job *core.VideoJob) error {
	f.calls++
	return errors.New("unavailable")
}

func TestMulti_NotifiesEveryone(t *testing.T) {
	first, second := &failingNotifier{}, &failingNotifier{}
	err := Multi{first, nil, second}.Notify(context.Background(), &core.VideoJob{VideoID: "abc123"})
	assert.Error(t, err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	assert.NoError(t, Multi{}.Notify(context.Background(), &core.VideoJob{}))
}

func TestNewRedisNotifier_BadURL(t *testing.T) {
	_, err := NewRedisNotifier(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestRedisNotifier_PublishSubscribe(t *testing.T) {
	url := os.Getenv("VIDCHAT_TEST_REDIS")
	if url == "" {
		t.Skip("VIDCHAT_TEST_REDIS not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := NewRedisNotifier(ctx, url, WithChannelPrefix("vidchat-test"))
	require.NoError(t, err)
	defer n.Close()

	events, err := n.Subscribe(ctx, "abc123")
	require.NoError(t, err)

	require.NoError(t, n.Notify(ctx, &core.VideoJob{VideoID: "abc123", Status: core.StatusIndexed}))
	select {
	case ev := <-events:
		assert.Equal(t, "indexed", ev.Status)
	case <-ctx.Done():
		t.Fatal("no event received")
	}
}
