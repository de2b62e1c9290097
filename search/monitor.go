package search

import (
	"github.com/poiesic/vidchat/core"
)

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results.
type Monitor interface {
	Start(videoID core.VideoID, query string)
	AfterVectorSearch(hits []core.ScoredChunk)
	BelowThreshold(hit core.ScoredChunk)
	LexicalHit(hit core.ScoredChunk)
	Finish(hits []core.ScoredChunk)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.VideoID, _ string)         {}
func (n *noopMonitor) AfterVectorSearch(_ []core.ScoredChunk) {}
func (n *noopMonitor) BelowThreshold(_ core.ScoredChunk)      {}
func (n *noopMonitor) LexicalHit(_ core.ScoredChunk)          {}
func (n *noopMonitor) Finish(_ []core.ScoredChunk)            {}
