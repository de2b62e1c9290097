package mock

import "github.com/poiesic/vidchat/ai"

// Set holds one double per capability.
type Set struct {
	Media       *MockMediaFetcher
	Transcriber *MockTranscriber
	Embedder    *MockEmbedder
	Generator   *MockGenerator
}

// NewSet creates a Set with default behavior everywhere.
func NewSet() *Set {
	return &Set{
		Media:       NewMockMediaFetcher(),
		Transcriber: NewMockTranscriber(),
		Embedder:    NewMockEmbedder(),
		Generator:   NewMockGenerator(),
	}
}

// Providers returns the doubles as ai.Providers.
func (s *Set) Providers() ai.Providers {
	return ai.Providers{
		Media:       s.Media,
		Transcriber: s.Transcriber,
		Embedder:    s.Embedder,
		Generator:   s.Generator,
	}
}
