package summary

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/retry"
	"github.com/poiesic/vidchat/storage"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultInputBudget is the prompt size limit in estimated tokens.
	DefaultInputBudget = 24000
	// DefaultMaxTokens caps each generated summary.
	DefaultMaxTokens = 1024
	// DefaultConcurrency is the number of partial summaries generated at once.
	DefaultConcurrency = 4
)

// Options selects how one summary is generated.
type Options struct {
	// Style defaults to core.StyleComprehensive.
	Style      core.SummaryStyle
	Credential string
}

// Summarizer generates and stores video summaries.
type Summarizer struct {
	jobs        storage.JobRepository
	transcripts storage.TranscriptRepository
	index       storage.VectorIndex
	summaries   storage.SummaryRepository
	generator   ai.Generator
	estimator   core.TokenEstimator
	budget      int
	maxTokens   int
	concurrency int
	policy      retry.Policy
	logger      *slog.Logger
}

// Option configures a Summarizer.
type Option func(*Summarizer) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Summarizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "summarizer")
		return nil
	}
}

// WithInputBudget sets the prompt size limit in estimated tokens.
func WithInputBudget(tokens int) Option {
	return func(s *Summarizer) error {
		if tokens <= 0 {
			return core.Errorf(core.KindInput, "summarizer", "input budget must be positive")
		}
		s.budget = tokens
		return nil
	}
}

// WithMaxTokens caps each generated summary.
func WithMaxTokens(tokens int) Option {
	return func(s *Summarizer) error {
		if tokens <= 0 {
			return core.Errorf(core.KindInput, "summarizer", "max tokens must be positive")
		}
		s.maxTokens = tokens
		return nil
	}
}

// WithConcurrency sets how many partial summaries are generated at once.
func WithConcurrency(n int) Option {
	return func(s *Summarizer) error {
		if n <= 0 {
			return core.Errorf(core.KindInput, "summarizer", "concurrency must be positive")
		}
		s.concurrency = n
		return nil
	}
}

// WithEstimator replaces core.EstimateTokens.
func WithEstimator(estimator core.TokenEstimator) Option {
	return func(s *Summarizer) error {
		if estimator == nil {
			return core.Errorf(core.KindInput, "summarizer", "estimator is nil")
		}
		s.estimator = estimator
		return nil
	}
}

// WithRetryPolicy replaces the retry policy for generation calls.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Summarizer) error {
		if p.MaxAttempts <= 0 {
			return retry.ErrInvalidMaxAttempts
		}
		s.policy = p
		return nil
	}
}

// New creates a Summarizer reading from repos.
func New(repos *storage.Repositories, generator ai.Generator, opts ...Option) (*Summarizer, error) {
	if repos == nil || repos.Jobs == nil || repos.Transcripts == nil || repos.Index == nil || repos.Summaries == nil {
		return nil, ErrRepositoriesRequired
	}
	if generator == nil {
		return nil, ai.ErrGeneratorRequired
	}

	s := &Summarizer{
		jobs:        repos.Jobs,
		transcripts: repos.Transcripts,
		index:       repos.Index,
		summaries:   repos.Summaries,
		generator:   generator,
		estimator:   core.EstimateTokens,
		budget:      DefaultInputBudget,
		maxTokens:   DefaultMaxTokens,
		concurrency: DefaultConcurrency,
		policy:      retry.DefaultPolicy(),
		logger:      slog.Default().With("component", "summarizer"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Summarize generates a summary of videoID and stores it as the latest one.
// Nothing is stored if generation fails.
func (s *Summarizer) Summarize(ctx context.Context, videoID core.VideoID, opts Options) (*core.Summary, error) {
	style := opts.Style
	if style == "" {
		style = core.StyleComprehensive
	}
	if !validStyle(style) {
		return nil, core.Errorf(core.KindInput, "summarize", "unknown summary style %q", style)
	}
	if _, err := storage.RequireIndexed(ctx, s.jobs, videoID); err != nil {
		return nil, err
	}

	transcript, err := s.transcripts.GetTranscript(ctx, videoID)
	if err != nil {
		return nil, err
	}

	var text string
	partials := 0
	if prompt := finalPrompt(style, transcript.Text(), false); s.estimator(prompt) <= s.budget {
		s.logger.Debug("summarizing in one pass", "video", videoID, "style", style)
		text, err = s.generate(ctx, prompt, opts.Credential)
	} else {
		text, partials, err = s.mapReduce(ctx, videoID, style, opts.Credential)
	}
	if err != nil {
		return nil, err
	}

	overview, keyPoints := parseSections(text)
	summary := &core.Summary{
		VideoID:     videoID,
		Style:       style,
		Text:        text,
		Overview:    overview,
		KeyPoints:   keyPoints,
		Partials:    partials,
		GeneratedAt: time.Now().UTC(),
	}
	if err := s.summaries.SaveSummary(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// Latest returns the stored summary of videoID, or storage.ErrNotFound.
func (s *Summarizer) Latest(ctx context.Context, videoID core.VideoID) (*core.Summary, error) {
	return s.summaries.GetSummary(ctx, videoID)
}

// mapReduce summarizes groups of chunks, then merges the partial summaries
// until they fit one final call. It returns the number of first-round partials.
func (s *Summarizer) mapReduce(ctx context.Context, videoID core.VideoID, style core.SummaryStyle, credential string) (string, int, error) {
	chunks, err := s.index.Chunks(ctx, videoID)
	if err != nil {
		return "", 0, err
	}
	if len(chunks) == 0 {
		return "", 0, core.Errorf(core.KindNotReady, "summarize", "video %s has no indexed chunks", videoID)
	}

	parts := make([]part, len(chunks))
	for i, c := range chunks {
		parts[i] = part{Start: c.Chunk.Start, End: c.Chunk.End, Text: c.Chunk.Text}
	}
	groups := s.group(parts, s.estimator(mapPrompt("")))
	s.logger.Debug("summarizing in parts", "video", videoID, "chunks", len(chunks), "parts", len(groups))

	partials, err := s.summarizeGroups(ctx, groups, mapPrompt, credential)
	if err != nil {
		return "", 0, err
	}
	first := len(partials)

	for round := 1; ; round++ {
		prompt := finalPrompt(style, joinParts(partials), true)
		if s.estimator(prompt) <= s.budget {
			text, err := s.generate(ctx, prompt, credential)
			return text, first, err
		}

		groups := s.group(partials, s.estimator(mergePrompt("")))
		if len(groups) >= len(partials) {
			return "", 0, core.NewError(core.KindProvider, "summarize", errNoConvergence)
		}
		s.logger.Debug("merging partial summaries", "video", videoID, "round", round, "partials", len(partials), "groups", len(groups))
		partials, err = s.summarizeGroups(ctx, groups, mergePrompt, credential)
		if err != nil {
			return "", 0, err
		}
	}
}

// group packs consecutive parts into groups whose joined text fits the
// budget left after overhead. A part too large on its own forms its own group.
func (s *Summarizer) group(parts []part, overhead int) [][]part {
	limit := s.budget - overhead
	var groups [][]part
	var current []part
	for _, p := range parts {
		if len(current) > 0 && s.estimator(joinParts(append(slices.Clip(current), p))) > limit {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, p)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// summarizeGroups generates one summary per group, preserving order.
func (s *Summarizer) summarizeGroups(ctx context.Context, groups [][]part, prompt func(string) string, credential string) ([]part, error) {
	results := make([]part, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)
	for i, g := range groups {
		eg.Go(func() error {
			text, err := s.generate(egCtx, prompt(joinParts(g)), credential)
			if err != nil {
				return err
			}
			results[i] = part{Start: g[0].Start, End: g[len(g)-1].End, Text: text}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Summarizer) generate(ctx context.Context, prompt, credential string) (string, error) {
	var text string
	err := s.policy.Do(ctx, func(ctx context.Context) error {
		out, err := s.generator.Generate(ctx, ai.GenerateRequest{
			Prompt:     prompt,
			MaxTokens:  s.maxTokens,
			Credential: credential,
		})
		if err != nil {
			return ai.Classify("summarize generate", err)
		}
		text = out
		return nil
	})
	if err != nil {
		s.logger.Error("error generating summary", "err", err)
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", core.Errorf(core.KindProvider, "summarize generate", "empty summary returned")
	}
	return text, nil
}
