// Package summary generates summaries of indexed videos.
//
// A transcript that fits the input budget is summarized with a single
// generation call. Longer transcripts are map-reduced: the indexed chunks are
// grouped into budget-sized parts, each part is summarized concurrently, and
// the partial summaries are combined into the final one. Partials that still
// overflow the budget are merged in further rounds until they fit.
//
// Summaries are never cached. Each call regenerates and replaces the stored
// latest summary of the video.
package summary
