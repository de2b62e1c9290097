package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVideoRef(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    VideoID
		wantErr bool
	}{
		{name: "bare id", ref: "dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "short bare id", ref: "abc123", want: "abc123"},
		{name: "trimmed", ref: "  xyz  ", want: "xyz"},
		{name: "watch url", ref: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", want: "dQw4w9WgXcQ"},
		{name: "mobile url", ref: "https://m.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "short link", ref: "https://youtu.be/dQw4w9WgXcQ?si=x", want: "dQw4w9WgXcQ"},
		{name: "no scheme", ref: "youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "embed", ref: "https://www.youtube.com/embed/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "shorts", ref: "https://youtube.com/shorts/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "empty", ref: "", wantErr: true},
		{name: "bad characters", ref: "abc$123", wantErr: true},
		{name: "other host", ref: "https://vimeo.com/12345", wantErr: true},
		{name: "watch without id", ref: "https://www.youtube.com/watch", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVideoRef(tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInput)
				assert.Equal(t, KindInput, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateSegments(t *testing.T) {
	valid := []TranscriptSegment{
		{Start: 0, End: 10 * time.Second, Text: "a"},
		{Start: 10 * time.Second, End: 10 * time.Second, Text: "b"},
	}
	assert.NoError(t, ValidateSegments(valid))
	assert.NoError(t, ValidateSegments(nil))

	tests := []struct {
		name     string
		segments []TranscriptSegment
	}{
		{name: "negative start", segments: []TranscriptSegment{{Start: -time.Second, End: 0}}},
		{name: "end before start", segments: []TranscriptSegment{{Start: 5 * time.Second, End: time.Second}}},
		{name: "out of order", segments: []TranscriptSegment{
			{Start: 10 * time.Second, End: 20 * time.Second},
			{Start: 5 * time.Second, End: 8 * time.Second},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSegments(tt.segments)
			assert.ErrorIs(t, err, ErrProvider)
		})
	}
}

func TestValidateChatMessage(t *testing.T) {
	assert.NoError(t, ValidateChatMessage(&ChatMessage{Role: RoleUser, Text: "hi"}))
	assert.ErrorIs(t, ValidateChatMessage(nil), ErrInput)
	assert.ErrorIs(t, ValidateChatMessage(&ChatMessage{Role: 0, Text: "hi"}), ErrInput)
	assert.ErrorIs(t, ValidateChatMessage(&ChatMessage{Role: RoleAssistant, Text: "  "}), ErrInput)
}
