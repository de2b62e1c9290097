// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package vidchat ingests videos into a searchable index and answers
// questions about them.
package vidchat

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/poiesic/vidchat/ai"
	"github.com/poiesic/vidchat/chat"
	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/embedding"
	"github.com/poiesic/vidchat/ingestion"
	"github.com/poiesic/vidchat/reembed"
	"github.com/poiesic/vidchat/search"
	"github.com/poiesic/vidchat/storage"
	"github.com/poiesic/vidchat/storage/badger"
	"github.com/poiesic/vidchat/summary"
)

// ErrRepositoriesRequired is returned when NewEngine gets incomplete storage.
var ErrRepositoriesRequired = errors.New("vidchat: repositories are required")

// Engine wires storage and providers into the ingestion pipeline, the chat
// engine and the summarizer.
type Engine struct {
	repos      *storage.Repositories
	gateway    *embedding.Gateway
	pipeline   *ingestion.Pipeline
	chat       *chat.Engine
	summarizer *summary.Summarizer
	closers    []func() error
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	logger       *slog.Logger
	gatewayOpts  []embedding.Option
	pipelineOpts []ingestion.Option
	searchOpts   []search.Option
	chatOpts     []chat.Option
	summaryOpts  []summary.Option
	closers      []func() error
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithGatewayOptions configures the embedding gateway.
func WithGatewayOptions(opts ...embedding.Option) Option {
	return func(o *engineOptions) {
		o.gatewayOpts = append(o.gatewayOpts, opts...)
	}
}

// WithPipelineOptions configures the ingestion pipeline.
func WithPipelineOptions(opts ...ingestion.Option) Option {
	return func(o *engineOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// WithSearchOptions configures retrieval.
func WithSearchOptions(opts ...search.Option) Option {
	return func(o *engineOptions) {
		o.searchOpts = append(o.searchOpts, opts...)
	}
}

// WithChatOptions configures the chat engine.
func WithChatOptions(opts ...chat.Option) Option {
	return func(o *engineOptions) {
		o.chatOpts = append(o.chatOpts, opts...)
	}
}

// WithSummaryOptions configures the summarizer.
func WithSummaryOptions(opts ...summary.Option) Option {
	return func(o *engineOptions) {
		o.summaryOpts = append(o.summaryOpts, opts...)
	}
}

// WithCloser registers fn to run on Close, after the pipeline stops and
// before storage is released. Closers run in reverse registration order.
func WithCloser(fn func() error) Option {
	return func(o *engineOptions) {
		o.closers = append(o.closers, fn)
	}
}

// OpenEngine opens a BadgerDB database at path and builds an Engine on it.
func OpenEngine(path string, providers ai.Providers, opts ...Option) (*Engine, error) {
	repos, err := badger.NewRepositories(path)
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(repos, providers, opts...)
	if err != nil {
		repos.Close()
		return nil, err
	}
	return engine, nil
}

// NewEngine builds an Engine that owns repos: Close releases them.
// Jobs left unfinished by a previous process are failed before it returns.
func NewEngine(repos *storage.Repositories, providers ai.Providers, opts ...Option) (*Engine, error) {
	if repos == nil || repos.Jobs == nil || repos.Transcripts == nil || repos.Index == nil ||
		repos.Sessions == nil || repos.Summaries == nil {
		return nil, ErrRepositoriesRequired
	}
	if err := providers.Validate(); err != nil {
		return nil, err
	}

	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	gateway, err := embedding.New(providers.Embedder,
		append([]embedding.Option{embedding.WithLogger(logger.With("component", "embedding"))}, options.gatewayOpts...)...)
	if err != nil {
		return nil, err
	}

	pipeline, err := ingestion.NewPipeline(repos, providers, ingestion.NewRegistry(),
		append([]ingestion.Option{
			ingestion.WithLogger(logger.With("component", "ingestion")),
			ingestion.WithGateway(gateway),
		}, options.pipelineOpts...)...)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		repos:    repos,
		gateway:  gateway,
		pipeline: pipeline,
		closers:  options.closers,
		logger:   logger.With("component", "vidchat"),
	}

	retriever, err := search.NewRetriever(repos.Index, gateway,
		append([]search.Option{search.WithLogger(logger.With("component", "search"))}, options.searchOpts...)...)
	if err != nil {
		pipeline.Close(context.Background())
		return nil, err
	}

	e.chat, err = chat.NewEngine(repos.Jobs, repos.Sessions, retriever, providers.Generator,
		append([]chat.Option{chat.WithLogger(logger.With("component", "chat"))}, options.chatOpts...)...)
	if err != nil {
		pipeline.Close(context.Background())
		return nil, err
	}

	e.summarizer, err = summary.New(repos, providers.Generator,
		append([]summary.Option{summary.WithLogger(logger.With("component", "summary"))}, options.summaryOpts...)...)
	if err != nil {
		pipeline.Close(context.Background())
		return nil, err
	}

	recovered, err := pipeline.Recover(context.Background())
	if err != nil {
		pipeline.Close(context.Background())
		return nil, err
	}
	if recovered > 0 {
		e.logger.Info("failed interrupted jobs", "count", recovered)
	}
	return e, nil
}

// Close stops every active ingestion run, then releases providers and storage.
func (e *Engine) Close(ctx context.Context) error {
	errs := []error{e.pipeline.Close(ctx)}
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	if e.repos.Close != nil {
		errs = append(errs, e.repos.Close())
	}
	err := errors.Join(errs...)
	if err != nil {
		e.logger.Error("error closing engine", "err", err)
	}
	return err
}

// SubmitVideo starts ingesting videoRef and returns its job right away.
func (e *Engine) SubmitVideo(ctx context.Context, videoRef string) (*core.VideoJob, error) {
	return e.pipeline.Submit(ctx, videoRef)
}

// GetStatus returns the job of videoRef. NotFound if it was never submitted.
func (e *Engine) GetStatus(ctx context.Context, videoRef string) (*core.VideoJob, error) {
	return e.pipeline.Status(ctx, videoRef)
}

// Wait blocks until the active run of videoRef finishes.
func (e *Engine) Wait(ctx context.Context, videoRef string) (*core.VideoJob, error) {
	videoID, err := core.ParseVideoRef(videoRef)
	if err != nil {
		return nil, err
	}
	job, err := e.pipeline.Wait(ctx, videoID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.Errorf(core.KindNotFound, "wait", "video %s was never submitted", videoID)
	}
	return job, err
}

// ListVideos returns every submitted video, oldest first. Active jobs
// report their in-flight status.
func (e *Engine) ListVideos(ctx context.Context) ([]*core.VideoJob, error) {
	jobs, err := e.repos.Jobs.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	registry := e.pipeline.Registry()
	for i, job := range jobs {
		if live, ok := registry.Snapshot(job.VideoID); ok {
			jobs[i] = live
		}
	}
	return jobs, nil
}

// DeleteVideo cancels any active run of videoRef and removes everything
// stored for it. Submits of the video wait until the delete is done.
func (e *Engine) DeleteVideo(ctx context.Context, videoRef string) error {
	videoID, err := core.ParseVideoRef(videoRef)
	if err != nil {
		return err
	}
	if _, err := e.GetStatus(ctx, videoRef); err != nil {
		return err
	}
	release, err := e.pipeline.Hold(ctx, videoID)
	if err != nil {
		return err
	}
	defer release()

	sessions, err := e.repos.Sessions.ListSessions(ctx, videoID)
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if err := e.repos.Sessions.DeleteSession(ctx, session.ID); err != nil {
			return err
		}
	}
	if err := e.repos.Index.Delete(ctx, videoID); err != nil {
		return err
	}
	if err := e.repos.Transcripts.DeleteTranscript(ctx, videoID); err != nil {
		return err
	}
	if err := e.repos.Summaries.DeleteSummary(ctx, videoID); err != nil {
		return err
	}
	if err := e.repos.Jobs.DeleteJob(ctx, videoID); err != nil && !errors.Is(err, core.ErrNotFound) {
		return err
	}
	e.logger.Info("video deleted", "video", videoID, "sessions", len(sessions))
	return nil
}

// Transcript returns the stored transcript of videoRef.
func (e *Engine) Transcript(ctx context.Context, videoRef string) (*core.Transcript, error) {
	videoID, err := core.ParseVideoRef(videoRef)
	if err != nil {
		return nil, err
	}
	transcript, err := e.repos.Transcripts.GetTranscript(ctx, videoID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.Errorf(core.KindNotFound, "transcript", "no transcript for %s", videoID)
	}
	return transcript, err
}

// Summarize generates, stores and returns a new summary of videoRef.
func (e *Engine) Summarize(ctx context.Context, videoRef string, style core.SummaryStyle, credential string) (*core.Summary, error) {
	videoID, err := core.ParseVideoRef(videoRef)
	if err != nil {
		return nil, err
	}
	return e.summarizer.Summarize(ctx, videoID, summary.Options{Style: style, Credential: credential})
}

// LatestSummary returns the last summary generated for videoRef.
func (e *Engine) LatestSummary(ctx context.Context, videoRef string) (*core.Summary, error) {
	videoID, err := core.ParseVideoRef(videoRef)
	if err != nil {
		return nil, err
	}
	s, err := e.summarizer.Latest(ctx, videoID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.Errorf(core.KindNotFound, "latest summary", "no summary for %s", videoID)
	}
	return s, err
}

// Chat answers question about videoRef. A non-empty sessionID reads the
// session's recent history and records the exchange in it.
func (e *Engine) Chat(ctx context.Context, videoRef, question, sessionID, credential string) (*core.Answer, error) {
	videoID, err := core.ParseVideoRef(videoRef)
	if err != nil {
		return nil, err
	}
	return e.chat.Ask(ctx, chat.AskRequest{
		VideoID:    videoID,
		SessionID:  sessionID,
		Question:   question,
		Credential: credential,
	})
}

// StartSession opens a chat session about a submitted video.
func (e *Engine) StartSession(ctx context.Context, videoRef, userID string) (*core.ChatSession, error) {
	videoID, err := core.ParseVideoRef(videoRef)
	if err != nil {
		return nil, err
	}
	if _, err := e.GetStatus(ctx, string(videoID)); err != nil {
		return nil, err
	}
	return e.repos.Sessions.CreateSession(ctx, &core.ChatSession{VideoID: videoID, UserID: userID})
}

// Sessions returns the chat sessions of videoRef, oldest first.
func (e *Engine) Sessions(ctx context.Context, videoRef string) ([]*core.ChatSession, error) {
	videoID, err := core.ParseVideoRef(videoRef)
	if err != nil {
		return nil, err
	}
	return e.repos.Sessions.ListSessions(ctx, videoID)
}

// History returns the messages of a session in order. A positive limit
// keeps only the most recent ones.
func (e *Engine) History(ctx context.Context, sessionID string, limit int) ([]*core.ChatMessage, error) {
	messages, err := e.repos.Sessions.GetMessages(ctx, sessionID, limit)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.Errorf(core.KindNotFound, "history", "session %s not found", sessionID)
	}
	return messages, err
}

// DeleteSession removes a session and its messages.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	err := e.repos.Sessions.DeleteSession(ctx, sessionID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Errorf(core.KindNotFound, "delete session", "session %s not found", sessionID)
	}
	return err
}

// Reembed re-embeds every indexed video with the current embedder, writing
// progress to w. Videos being ingested are skipped.
func (e *Engine) Reembed(ctx context.Context, w io.Writer) (*reembed.Result, error) {
	r, err := reembed.NewReembedder(e.repos, e.gateway, e.pipeline.Registry(), reembed.DefaultConfig(), w)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}
