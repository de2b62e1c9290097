package badger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepositories(t *testing.T) *storage.Repositories {
	t.Helper()
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func TestNewRepositories_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repos, err := NewRepositories(dir)
	require.NoError(t, err)
	require.NoError(t, repos.Jobs.SaveJob(ctx, &core.VideoJob{VideoID: "vid", Status: core.StatusIndexed}))
	require.NoError(t, repos.Close())

	repos, err = NewRepositories(dir)
	require.NoError(t, err)
	defer repos.Close()

	job, err := repos.Jobs.GetJob(ctx, "vid")
	require.NoError(t, err)
	assert.Equal(t, core.StatusIndexed, job.Status)
}

func TestJobRepository(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	_, err := repos.Jobs.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, err, core.ErrNotFound)

	base := time.Now().UTC().Truncate(time.Microsecond)
	second := &core.VideoJob{VideoID: "b", Status: core.StatusQueued, CreatedAt: base.Add(time.Minute)}
	first := &core.VideoJob{
		VideoID:      "a",
		Status:       core.StatusFailed,
		ErrorKind:    core.KindNotFound,
		ErrorMessage: "video unavailable",
		Attempt:      2,
		CreatedAt:    base,
		Metadata:     core.VideoMetadata{Title: "Intro", Duration: 90 * time.Second},
	}
	require.NoError(t, repos.Jobs.SaveJob(ctx, second))
	require.NoError(t, repos.Jobs.SaveJob(ctx, first))

	got, err := repos.Jobs.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, got.Status)
	assert.Equal(t, core.KindNotFound, got.ErrorKind)
	assert.Equal(t, 2, got.Attempt)
	assert.Equal(t, "Intro", got.Metadata.Title)
	assert.ErrorIs(t, got.Err(), core.ErrNotFound)

	jobs, err := repos.Jobs.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, core.VideoID("a"), jobs[0].VideoID)
	assert.Equal(t, core.VideoID("b"), jobs[1].VideoID)

	require.NoError(t, repos.Jobs.DeleteJob(ctx, "a"))
	assert.ErrorIs(t, repos.Jobs.DeleteJob(ctx, "a"), storage.ErrNotFound)

	assert.ErrorIs(t, repos.Jobs.SaveJob(ctx, &core.VideoJob{}), core.ErrInput)
}

func TestTranscriptRepository(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	transcript := &core.Transcript{
		VideoID: "vid",
		Segments: []core.TranscriptSegment{
			{Start: 0, End: 4 * time.Second, Text: "hello"},
			{Start: 4 * time.Second, End: 9 * time.Second, Text: "world"},
		},
	}
	require.NoError(t, repos.Transcripts.SaveTranscript(ctx, transcript))
	assert.Equal(t, core.IDFromContent("hello world"), transcript.Checksum)

	got, err := repos.Transcripts.GetTranscript(ctx, "vid")
	require.NoError(t, err)
	assert.Equal(t, transcript.Segments, got.Segments)
	assert.Equal(t, 9*time.Second, got.Duration())

	require.NoError(t, repos.Transcripts.DeleteTranscript(ctx, "vid"))
	_, err = repos.Transcripts.GetTranscript(ctx, "vid")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, repos.Transcripts.DeleteTranscript(ctx, "vid"))
}

func TestSummaryRepository_LatestWins(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	require.NoError(t, repos.Summaries.SaveSummary(ctx, &core.Summary{VideoID: "vid", Style: core.StyleBrief, Text: "old"}))
	require.NoError(t, repos.Summaries.SaveSummary(ctx, &core.Summary{
		VideoID:   "vid",
		Style:     core.StyleBullet,
		Text:      "new",
		KeyPoints: []string{"one", "two"},
		Partials:  3,
	}))

	got, err := repos.Summaries.GetSummary(ctx, "vid")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Text)
	assert.Equal(t, core.StyleBullet, got.Style)
	assert.Equal(t, []string{"one", "two"}, got.KeyPoints)
	assert.Equal(t, 3, got.Partials)
	assert.False(t, got.GeneratedAt.IsZero())
}

func TestSessionRepository_AppendAndHistory(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	session, err := repos.Sessions.CreateSession(ctx, &core.ChatSession{VideoID: "vid", UserID: "u1"})
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)

	err = repos.Sessions.AppendMessages(ctx, session.ID,
		&core.ChatMessage{Role: core.RoleUser, Text: "q1"},
		&core.ChatMessage{Role: core.RoleAssistant, Text: "a1", Sources: []core.ChunkRef{
			{VideoID: "vid", Sequence: 1, Start: 10 * time.Second, End: 50 * time.Second, Score: 0.9, Snippet: "cats"},
		}},
	)
	require.NoError(t, err)
	require.NoError(t, repos.Sessions.AppendMessages(ctx, session.ID,
		&core.ChatMessage{Role: core.RoleUser, Text: "q2"},
		&core.ChatMessage{Role: core.RoleAssistant, Text: "a2"},
	))

	msgs, err := repos.Sessions.GetMessages(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{"q1", "a1", "q2", "a2"}, []string{msgs[0].Text, msgs[1].Text, msgs[2].Text, msgs[3].Text})
	require.Len(t, msgs[1].Sources, 1)
	assert.Equal(t, 10*time.Second, msgs[1].Sources[0].Start)

	tail, err := repos.Sessions.GetMessages(ctx, session.ID, 3)
	require.NoError(t, err)
	require.Len(t, tail, 3)
	assert.Equal(t, "a1", tail[0].Text)

	updated, err := repos.Sessions.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, updated.UpdatedAt.Before(session.CreatedAt))
}

func TestSessionRepository_Errors(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	_, err := repos.Sessions.GetSession(ctx, "")
	assert.ErrorIs(t, err, storage.ErrSessionRequired)

	err = repos.Sessions.AppendMessages(ctx, "missing", &core.ChatMessage{Role: core.RoleUser, Text: "hi"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repos.Sessions.GetMessages(ctx, "missing", 0)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	session, err := repos.Sessions.CreateSession(ctx, &core.ChatSession{VideoID: "vid"})
	require.NoError(t, err)
	err = repos.Sessions.AppendMessages(ctx, session.ID, &core.ChatMessage{Role: core.RoleUser, Text: "  "})
	assert.ErrorIs(t, err, core.ErrInput)

	msgs, err := repos.Sessions.GetMessages(ctx, session.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = repos.Sessions.CreateSession(ctx, &core.ChatSession{})
	assert.ErrorIs(t, err, core.ErrInput)
}

func TestSessionRepository_ListAndDelete(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	s1, err := repos.Sessions.CreateSession(ctx, &core.ChatSession{VideoID: "vid"})
	require.NoError(t, err)
	s2, err := repos.Sessions.CreateSession(ctx, &core.ChatSession{VideoID: "vid"})
	require.NoError(t, err)
	_, err = repos.Sessions.CreateSession(ctx, &core.ChatSession{VideoID: "other"})
	require.NoError(t, err)

	sessions, err := repos.Sessions.ListSessions(ctx, "vid")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	ids := []string{sessions[0].ID, sessions[1].ID}
	assert.ElementsMatch(t, []string{s1.ID, s2.ID}, ids)

	require.NoError(t, repos.Sessions.AppendMessages(ctx, s1.ID, &core.ChatMessage{Role: core.RoleUser, Text: "hi"}))
	require.NoError(t, repos.Sessions.DeleteSession(ctx, s1.ID))

	_, err = repos.Sessions.GetSession(ctx, s1.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	sessions, err = repos.Sessions.ListSessions(ctx, "vid")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, s2.ID, sessions[0].ID)

	assert.ErrorIs(t, repos.Sessions.DeleteSession(ctx, s1.ID), storage.ErrNotFound)
}

func TestSessionRepository_ConcurrentAppendsKeepPairs(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	session, err := repos.Sessions.CreateSession(ctx, &core.ChatSession{VideoID: "vid"})
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repos.Sessions.AppendMessages(ctx, session.ID,
				&core.ChatMessage{Role: core.RoleUser, Text: "question"},
				&core.ChatMessage{Role: core.RoleAssistant, Text: "answer"},
			))
		}()
	}
	wg.Wait()

	msgs, err := repos.Sessions.GetMessages(ctx, session.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2*writers)
	for i := 0; i < len(msgs); i += 2 {
		assert.Equal(t, core.RoleUser, msgs[i].Role)
		assert.Equal(t, core.RoleAssistant, msgs[i+1].Role)
	}
}

func TestRequireIndexed(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	_, err := storage.RequireIndexed(ctx, repos.Jobs, "missing")
	assert.ErrorIs(t, err, core.ErrNotReady)

	require.NoError(t, repos.Jobs.SaveJob(ctx, &core.VideoJob{VideoID: "busy", Status: core.StatusEmbedding}))
	_, err = storage.RequireIndexed(ctx, repos.Jobs, "busy")
	assert.ErrorIs(t, err, core.ErrNotReady)

	require.NoError(t, repos.Jobs.SaveJob(ctx, &core.VideoJob{VideoID: "done", Status: core.StatusIndexed}))
	job, err := storage.RequireIndexed(ctx, repos.Jobs, "done")
	require.NoError(t, err)
	assert.Equal(t, core.VideoID("done"), job.VideoID)
}
