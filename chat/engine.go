package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/search"
	"github.com/poiesic/vidchat/storage"
)

const (
	// DefaultHistoryWindow is the number of trailing session messages
	// included in the prompt.
	DefaultHistoryWindow = 6
	// DefaultMinChunks is the number of chunks kept before history is trimmed.
	DefaultMinChunks = 1
	// DefaultContextBudget is the prompt size limit in estimated tokens.
	DefaultContextBudget = 3000
	// DefaultMaxAnswerTokens caps the generated answer.
	DefaultMaxAnswerTokens = 512
)

// NoAnswerResponse is returned when nothing in the video matches a question
// and general knowledge answers are disabled.
const NoAnswerResponse = "I can't answer that from this video. Nothing in its transcript covers the question."

// AskRequest is one chat turn.
type AskRequest struct {
	VideoID core.VideoID
	// SessionID records the turn and supplies history. Optional.
	SessionID string
	Question  string
	// History is used when SessionID is empty.
	History    []*core.ChatMessage
	Credential string
}

// Engine answers questions about indexed videos.
type Engine struct {
	jobs          storage.JobRepository
	sessions      storage.SessionRepository
	retriever     *search.Retriever
	generator     ai.Generator
	assembler     assembler
	historyWindow int
	maxTokens     int
	general       bool
	logger        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "chat")
		return nil
	}
}

// WithHistoryWindow sets how many trailing messages are offered to the prompt.
// Zero disables history.
func WithHistoryWindow(n int) Option {
	return func(e *Engine) error {
		if n < 0 {
			return core.Errorf(core.KindInput, "chat engine", "history window cannot be negative")
		}
		e.historyWindow = n
		return nil
	}
}

// WithMinChunks sets how many chunks survive trimming before history does.
func WithMinChunks(n int) Option {
	return func(e *Engine) error {
		if n < 0 {
			return core.Errorf(core.KindInput, "chat engine", "min chunks cannot be negative")
		}
		e.assembler.minChunks = n
		return nil
	}
}

// WithContextBudget sets the prompt size limit in estimated tokens.
func WithContextBudget(tokens int) Option {
	return func(e *Engine) error {
		if tokens <= 0 {
			return core.Errorf(core.KindInput, "chat engine", "context budget must be positive")
		}
		e.assembler.budget = tokens
		return nil
	}
}

// WithMaxAnswerTokens caps the generated answer.
func WithMaxAnswerTokens(tokens int) Option {
	return func(e *Engine) error {
		if tokens <= 0 {
			return core.Errorf(core.KindInput, "chat engine", "max answer tokens must be positive")
		}
		e.maxTokens = tokens
		return nil
	}
}

// WithGeneralKnowledge lets the provider answer from general knowledge when
// retrieval finds nothing.
func WithGeneralKnowledge(allow bool) Option {
	return func(e *Engine) error {
		e.general = allow
		return nil
	}
}

// WithEstimator replaces core.EstimateTokens.
func WithEstimator(estimator core.TokenEstimator) Option {
	return func(e *Engine) error {
		if estimator == nil {
			return core.Errorf(core.KindInput, "chat engine", "estimator is nil")
		}
		e.assembler.estimator = estimator
		return nil
	}
}

// NewEngine creates a new Engine.
func NewEngine(jobs storage.JobRepository, sessions storage.SessionRepository, retriever *search.Retriever, generator ai.Generator, opts ...Option) (*Engine, error) {
	switch {
	case jobs == nil:
		return nil, ErrJobsRequired
	case sessions == nil:
		return nil, ErrSessionsRequired
	case retriever == nil:
		return nil, ErrRetrieverRequired
	case generator == nil:
		return nil, ai.ErrGeneratorRequired
	}

	e := &Engine{
		jobs:      jobs,
		sessions:  sessions,
		retriever: retriever,
		generator: generator,
		assembler: assembler{
			estimator: core.EstimateTokens,
			budget:    DefaultContextBudget,
			minChunks: DefaultMinChunks,
		},
		historyWindow: DefaultHistoryWindow,
		maxTokens:     DefaultMaxAnswerTokens,
		logger:        slog.Default().With("component", "chat"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Ask answers req.Question from the transcript of req.VideoID. Nothing is
// recorded unless the whole turn succeeds.
func (e *Engine) Ask(ctx context.Context, req AskRequest) (*core.Answer, error) {
	const op = "chat"
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, core.Errorf(core.KindInput, op, "question is empty")
	}
	if _, err := storage.RequireIndexed(ctx, e.jobs, req.VideoID); err != nil {
		return nil, err
	}

	history, err := e.history(ctx, req)
	if err != nil {
		return nil, err
	}

	hits, err := e.retriever.Retrieve(ctx, req.VideoID, question)
	if err != nil {
		return nil, err
	}

	var answer *core.Answer
	if len(hits) == 0 && !e.general {
		e.logger.Debug("no chunk cleared the similarity floor", "video", req.VideoID)
		answer = &core.Answer{Text: NoAnswerResponse}
	} else {
		answer, err = e.generate(ctx, req, question, hits, history)
		if err != nil {
			return nil, err
		}
	}

	if req.SessionID != "" {
		now := time.Now().UTC()
		err := e.sessions.AppendMessages(ctx, req.SessionID,
			&core.ChatMessage{Role: core.RoleUser, Text: question, Timestamp: now},
			&core.ChatMessage{Role: core.RoleAssistant, Text: answer.Text, Sources: answer.Sources, Timestamp: now},
		)
		if err != nil {
			return nil, err
		}
	}
	return answer, nil
}

func (e *Engine) generate(ctx context.Context, req AskRequest, question string, hits []core.ScoredChunk, history []*core.ChatMessage) (*core.Answer, error) {
	prompt, used, err := e.assembler.assemble(promptParts{
		question: question,
		chunks:   hits,
		history:  history,
		general:  e.general,
	})
	if err != nil {
		return nil, err
	}
	if len(used) < len(hits) {
		e.logger.Debug("trimmed chunks to fit the context budget", "video", req.VideoID, "kept", len(used), "retrieved", len(hits))
	}
	if len(used) == 0 && !e.general {
		e.logger.Debug("no chunk fits the context budget", "video", req.VideoID)
		return &core.Answer{Text: NoAnswerResponse}, nil
	}

	text, err := e.generator.Generate(ctx, ai.GenerateRequest{
		Prompt:     prompt,
		MaxTokens:  e.maxTokens,
		Credential: req.Credential,
	})
	if err != nil {
		e.logger.Error("error generating answer", "video", req.VideoID, "err", err)
		return nil, ai.Classify("chat generate", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, core.Errorf(core.KindProvider, "chat generate", "empty answer returned")
	}
	return &core.Answer{Text: text, Sources: sources(used), Grounded: len(used) > 0}, nil
}

// history returns the trailing messages offered to the prompt.
func (e *Engine) history(ctx context.Context, req AskRequest) ([]*core.ChatMessage, error) {
	if req.SessionID == "" {
		history := req.History
		if len(history) > e.historyWindow {
			history = history[len(history)-e.historyWindow:]
		}
		return history, nil
	}

	session, err := e.sessions.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.VideoID != req.VideoID {
		return nil, core.Errorf(core.KindInput, "chat", "session %s belongs to video %s", session.ID, session.VideoID)
	}
	if e.historyWindow == 0 {
		return nil, nil
	}
	return e.sessions.GetMessages(ctx, req.SessionID, e.historyWindow)
}
