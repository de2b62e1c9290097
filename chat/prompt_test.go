package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/poiesic/vidchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(text string) int {
	return len(strings.Fields(text))
}

func testParts() promptParts {
	chunk := func(seq int, text string) core.ScoredChunk {
		return core.ScoredChunk{
			Chunk: core.Chunk{
				VideoID:  "vid",
				Sequence: seq,
				Text:     text,
				Start:    time.Duration(seq) * 10 * time.Second,
				End:      time.Duration(seq+1) * 10 * time.Second,
			},
			Score: 1 - float32(seq)/10,
		}
	}
	return promptParts{
		question: "what happens next?",
		chunks: []core.ScoredChunk{
			chunk(0, "first chunk with a handful of words"),
			chunk(1, "second chunk with a handful of words"),
			chunk(2, "third chunk with a handful of words"),
		},
		history: []*core.ChatMessage{
			{Role: core.RoleUser, Text: "oldest question here"},
			{Role: core.RoleAssistant, Text: "newest answer here"},
		},
	}
}

func TestAssemble_Fits(t *testing.T) {
	parts := testParts()
	a := assembler{estimator: words, budget: 10000, minChunks: 1}

	prompt, used, err := a.assemble(parts)
	require.NoError(t, err)
	assert.Len(t, used, 3)
	assert.Contains(t, prompt, "[0:00-0:10] first chunk")
	assert.Contains(t, prompt, "[0:20-0:30] third chunk")
	assert.Contains(t, prompt, "User: oldest question here")
	assert.Contains(t, prompt, "Assistant: newest answer here")
	assert.True(t, strings.HasSuffix(prompt, "Question: what happens next?\nAnswer:"))
}

func TestAssemble_TrimOrder(t *testing.T) {
	parts := testParts()

	t.Run("chunks go first, down to min chunks", func(t *testing.T) {
		budget := words(render(parts.question, parts.chunks[:1], parts.history, false))
		a := assembler{estimator: words, budget: budget, minChunks: 1}

		prompt, used, err := a.assemble(parts)
		require.NoError(t, err)
		require.Len(t, used, 1)
		assert.Equal(t, 0, used[0].Chunk.Sequence, "the most relevant chunk survives")
		assert.Contains(t, prompt, "oldest question here", "history is untouched")
	})

	t.Run("then the oldest history", func(t *testing.T) {
		budget := words(render(parts.question, parts.chunks[:1], parts.history[1:], false))
		a := assembler{estimator: words, budget: budget, minChunks: 1}

		prompt, used, err := a.assemble(parts)
		require.NoError(t, err)
		assert.Len(t, used, 1)
		assert.NotContains(t, prompt, "oldest question here")
		assert.Contains(t, prompt, "newest answer here")
	})

	t.Run("then the remaining chunks", func(t *testing.T) {
		budget := words(render(parts.question, nil, nil, false))
		a := assembler{estimator: words, budget: budget, minChunks: 1}

		prompt, used, err := a.assemble(parts)
		require.NoError(t, err)
		assert.Empty(t, used)
		assert.NotContains(t, prompt, "newest answer here")
		assert.Contains(t, prompt, "what happens next?")
	})

	t.Run("question alone does not fit", func(t *testing.T) {
		a := assembler{estimator: words, budget: 3, minChunks: 1}

		_, _, err := a.assemble(parts)
		assert.ErrorIs(t, err, core.ErrInput)
	})
}

func TestRender_GeneralKnowledge(t *testing.T) {
	prompt := render("who wrote it?", nil, nil, true)
	assert.Contains(t, prompt, "general knowledge")
	assert.NotContains(t, prompt, "TRANSCRIPT EXCERPTS")
}

func TestSources(t *testing.T) {
	parts := testParts()
	refs := sources(parts.chunks[1:2])
	require.Len(t, refs, 1)
	assert.Equal(t, core.ChunkRef{
		VideoID:  "vid",
		Sequence: 1,
		Start:    10 * time.Second,
		End:      20 * time.Second,
		Score:    parts.chunks[1].Score,
		Snippet:  "second chunk with a handful of words",
	}, refs[0])

	assert.Nil(t, sources(nil))
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("word ", 100)
	s := snippet(long)
	assert.True(t, strings.HasSuffix(s, "…"))
	assert.LessOrEqual(t, len([]rune(s)), snippetLength+1)
	assert.Equal(t, "short", snippet("  short  "))
}

func TestSnippet_MultiByteText(t *testing.T) {
	// The only space sits early in the text, so the cut stays at the rune limit.
	text := strings.Repeat("あ", 50) + " " + strings.Repeat("い", 200)
	s := snippet(text)
	assert.Len(t, []rune(s), snippetLength+1)
	assert.True(t, strings.HasSuffix(s, "い…"))

	// A space past half the limit is used as the cut point.
	text = strings.Repeat("あ", 120) + " " + strings.Repeat("い", 200)
	assert.Equal(t, strings.Repeat("あ", 120)+"…", snippet(text))
}
