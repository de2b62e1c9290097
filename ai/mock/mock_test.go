package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func TestVector(t *testing.T) {
	a := Vector("the end of the video")
	b := Vector("what happens at the end")
	c := Vector("quantum chromodynamics lecture")

	require.Len(t, a, Dimension)
	assert.InDelta(t, 1.0, dot(a, a), 1e-5, "vectors are unit length")
	assert.Equal(t, a, Vector("the end of the video"), "deterministic")
	assert.Greater(t, dot(a, b), dot(a, c), "shared words score higher")

	empty := Vector("...")
	assert.InDelta(t, 1.0, dot(empty, empty), 1e-5)
}

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()
	m := NewMockEmbedder()

	v, err := m.Embed(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, Vector("hello"), v)

	batch, err := m.EmbedBatch(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
	assert.Equal(t, 2, m.CallCount())

	m.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("boom")
	}
	_, err = m.EmbedBatch(ctx, []string{"a"})
	assert.Error(t, err)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	assert.Nil(t, m.EmbedFunc)
}

func TestMockSet(t *testing.T) {
	ctx := context.Background()
	set := NewSet()
	require.NoError(t, set.Providers().Validate())

	audio, err := set.Media.FetchAudio(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, core.VideoID("abc123"), audio.VideoID)
	assert.Equal(t, 1, set.Media.CallsFor("abc123"))
	assert.Equal(t, 0, set.Media.CallsFor("other"))

	segs, err := set.Transcriber.Transcribe(ctx, audio)
	require.NoError(t, err)
	assert.Len(t, segs, 1)

	set.Transcriber.SetTranscript("abc123", []core.TranscriptSegment{{Text: "a"}, {Text: "b"}})
	segs, err = set.Transcriber.Transcribe(ctx, audio)
	require.NoError(t, err)
	assert.Len(t, segs, 2)

	out, err := set.Generator.Generate(ctx, ai.GenerateRequest{Prompt: "p", Credential: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultResponse, out)
	assert.Equal(t, "k", set.Generator.LastRequest().Credential)
	assert.Len(t, set.Generator.Requests(), 1)
}
