package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, IDFromContent(tt.content), IDFromContent(tt.content))
		})
	}

	assert.NotEqual(t, IDFromContent("content1"), IDFromContent("content2"))
}

func TestJobStatus(t *testing.T) {
	active := []JobStatus{StatusQueued, StatusDownloading, StatusTranscribing, StatusChunking, StatusEmbedding}
	for _, s := range active {
		assert.True(t, s.IsActive(), s.String())
		assert.False(t, s.IsTerminal(), s.String())
	}
	for _, s := range []JobStatus{StatusIndexed, StatusFailed} {
		assert.False(t, s.IsActive(), s.String())
		assert.True(t, s.IsTerminal(), s.String())
	}

	assert.Equal(t, "downloading", StatusDownloading.String())
	assert.Equal(t, "unknown", JobStatus(0).String())
	assert.False(t, JobStatus(0).IsActive())
}

func TestVideoJob_Clone(t *testing.T) {
	job := &VideoJob{VideoID: "abc123", Status: StatusQueued}
	clone := job.Clone()
	clone.Status = StatusIndexed

	assert.Equal(t, StatusQueued, job.Status)
	assert.Nil(t, (*VideoJob)(nil).Clone())
}

func TestVideoJob_Err(t *testing.T) {
	job := &VideoJob{VideoID: "abc123", Status: StatusIndexed}
	assert.NoError(t, job.Err())

	job.Status = StatusFailed
	job.ErrorKind = KindRateLimited
	job.ErrorMessage = "quota exhausted"

	err := job.Err()
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "quota exhausted")
	assert.Equal(t, KindRateLimited, KindOf(err))
}

func TestTranscript_TextAndDuration(t *testing.T) {
	tr := &Transcript{
		Segments: []TranscriptSegment{
			{Start: 0, End: 10 * time.Second, Text: " Intro "},
			{Start: 10 * time.Second, End: 20 * time.Second, Text: ""},
			{Start: 20 * time.Second, End: 50 * time.Second, Text: "Outro"},
		},
	}

	assert.Equal(t, "Intro Outro", tr.Text())
	assert.Equal(t, 50*time.Second, tr.Duration())
	assert.Equal(t, time.Duration(0), (*Transcript)(nil).Duration())
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "user", RoleUser.String())
	assert.Equal(t, "assistant", RoleAssistant.String())
	assert.Equal(t, "unknown", Role(9).String())
}
