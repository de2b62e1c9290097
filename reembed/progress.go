package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports how many videos and chunks have been re-embedded.
type ProgressTracker struct {
	writer         io.Writer
	totalVideos    int
	videos         int
	chunks         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
// totalVideos: number of videos to process
// reportInterval: report progress every N videos
func NewProgressTracker(writer io.Writer, totalVideos, reportInterval int) *ProgressTracker {
	if reportInterval <= 0 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		totalVideos:    totalVideos,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.videos = 0
	p.chunks = 0
	p.lastReported = 0
}

// Done records one finished video with its chunk count. Skipped videos
// count with zero chunks.
func (p *ProgressTracker) Done(chunks int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	if p.videos < p.totalVideos {
		p.videos++
	}
	p.chunks += chunks

	if p.videos-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.videos
	}
}

// Finish prints final progress.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.report()
	fmt.Fprintln(p.writer)
}

// Chunks returns the number of chunks recorded so far.
func (p *ProgressTracker) Chunks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chunks
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.chunks) / elapsed
	}

	percentage := 0.0
	if p.totalVideos > 0 {
		percentage = float64(p.videos) / float64(p.totalVideos) * 100.0
	}

	fmt.Fprintf(p.writer, "\rVideos: %d/%d (%.1f%%) - %d chunks, %.1f chunks/s",
		p.videos, p.totalVideos, percentage, p.chunks, rate)
}
