package core

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// TokenEstimator returns the approximate number of tokens in text.
// Chunking, context assembly and map-reduce summarization size everything
// through one of these.
type TokenEstimator func(text string) int

// EstimateTokens approximates tokens as one per four characters.
// Non-empty text is never smaller than one token.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// JoinSegments joins the non-blank segment texts with single spaces.
func JoinSegments(segments []TranscriptSegment) string {
	var sb strings.Builder
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	}
	return sb.String()
}

// FormatTimestamp renders d as m:ss, or h:mm:ss past the hour.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatRange renders a chunk time range as [start-end].
func FormatRange(start, end time.Duration) string {
	return "[" + FormatTimestamp(start) + "-" + FormatTimestamp(end) + "]"
}
