package chat

import (
	"strings"

	"github.com/poiesic/vidchat/core"
)

const (
	groundedInstructions = "You answer questions about a single video using excerpts from its transcript.\n" +
		"Answer only from the excerpts below and cite the time ranges you used, for example [1:05-1:40].\n" +
		"If the excerpts do not contain the answer, say that the video does not cover it.\n"

	generalInstructions = "You answer questions about a single video.\n" +
		"No part of its transcript matched this question. Answer from general knowledge\n" +
		"and say clearly that the answer does not come from the video.\n"
)

// assembler builds prompts that fit within budget tokens.
type assembler struct {
	estimator core.TokenEstimator
	budget    int
	minChunks int
}

// promptParts is the material a prompt is rendered from.
type promptParts struct {
	question string
	chunks   []core.ScoredChunk // most relevant first
	history  []*core.ChatMessage
	general  bool
}

// assemble renders parts, trimming chunks and history until the prompt fits.
// It returns the prompt and the chunks that made it in.
func (a assembler) assemble(parts promptParts) (string, []core.ScoredChunk, error) {
	chunks := parts.chunks
	history := parts.history
	for {
		prompt := render(parts.question, chunks, history, parts.general)
		if a.estimator(prompt) <= a.budget {
			return prompt, chunks, nil
		}
		switch {
		case len(chunks) > a.minChunks:
			chunks = chunks[:len(chunks)-1]
		case len(history) > 0:
			history = history[1:]
		case len(chunks) > 0:
			chunks = chunks[:len(chunks)-1]
		default:
			return "", nil, core.Errorf(core.KindInput, "assemble prompt",
				"question does not fit the context budget of %d tokens", a.budget)
		}
	}
}

func render(question string, chunks []core.ScoredChunk, history []*core.ChatMessage, general bool) string {
	var b strings.Builder

	if general && len(chunks) == 0 {
		b.WriteString(generalInstructions)
	} else {
		b.WriteString(groundedInstructions)
		b.WriteString("\n---TRANSCRIPT EXCERPTS---\n")
		for _, hit := range chunks {
			b.WriteString(core.FormatRange(hit.Chunk.Start, hit.Chunk.End))
			b.WriteByte(' ')
			b.WriteString(hit.Chunk.Text)
			b.WriteByte('\n')
		}
		b.WriteString("---END EXCERPTS---\n")
	}

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, msg := range history {
			switch msg.Role {
			case core.RoleUser:
				b.WriteString("User: ")
			default:
				b.WriteString("Assistant: ")
			}
			b.WriteString(msg.Text)
			b.WriteByte('\n')
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}

const snippetLength = 160

// sources converts the chunks used in a prompt into citations.
func sources(chunks []core.ScoredChunk) []core.ChunkRef {
	if len(chunks) == 0 {
		return nil
	}
	refs := make([]core.ChunkRef, len(chunks))
	for i, hit := range chunks {
		refs[i] = core.ChunkRef{
			VideoID:  hit.Chunk.VideoID,
			Sequence: hit.Chunk.Sequence,
			Start:    hit.Chunk.Start,
			End:      hit.Chunk.End,
			Score:    hit.Score,
			Snippet:  snippet(hit.Chunk.Text),
		}
	}
	return refs
}

func snippet(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= snippetLength {
		return string(runes)
	}
	cut := runes[:snippetLength]
	for i := len(cut) - 1; i > snippetLength/2; i-- {
		if cut[i] == ' ' {
			cut = cut[:i]
			break
		}
	}
	return string(cut) + "…"
}
