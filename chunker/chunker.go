// Package chunker splits a time-coded transcript into overlapping chunks
// sized for retrieval.
package chunker

import (
	"strings"

	"github.com/poiesic/vidchat/core"
)

const (
	// DefaultTargetSize is roughly 1000 characters of speech.
	DefaultTargetSize = 250
	// DefaultOverlap is roughly 200 characters of speech.
	DefaultOverlap = 50
)

// Options controls chunk sizes. Sizes are measured in Estimator units.
type Options struct {
	// TargetSize is the size at which a chunk is closed.
	TargetSize int
	// Overlap is how much trailing text of a chunk is repeated at the
	// start of the next one.
	Overlap int
	// Estimator measures text. Nil means core.EstimateTokens.
	Estimator core.TokenEstimator
}

// DefaultOptions returns the default chunk sizes.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		Overlap:    DefaultOverlap,
		Estimator:  core.EstimateTokens,
	}
}

// Validate checks the sizes.
func (o Options) Validate() error {
	if o.TargetSize <= 0 {
		return core.Errorf(core.KindInput, "chunk", "target size must be positive, got %d", o.TargetSize)
	}
	if o.Overlap < 0 || o.Overlap >= o.TargetSize {
		return core.Errorf(core.KindInput, "chunk", "overlap must be in [0, %d), got %d", o.TargetSize, o.Overlap)
	}
	return nil
}

// Chunk packs segments greedily into chunks of about opts.TargetSize.
//
// A chunk is closed once its size reaches the target; it always holds at
// least one segment. The next chunk starts by re-including the trailing
// segments of the previous one until their size reaches opts.Overlap, but
// always begins at least one segment later than the previous chunk did and
// always adds at least one new segment. Blank segments carry no text; their
// time range is folded into a neighbour so the chunks still cover the
// whole transcript. An empty transcript yields no chunks.
func Chunk(videoID core.VideoID, segments []core.TranscriptSegment, opts Options) ([]core.Chunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Estimator == nil {
		opts.Estimator = core.EstimateTokens
	}

	segs := prepare(segments)
	n := len(segs)
	if n == 0 {
		return nil, nil
	}

	sizes := make([]int, n)
	for i, seg := range segs {
		sizes[i] = max(opts.Estimator(seg.Text), 1)
	}

	var chunks []core.Chunk
	prevEnd := -1
	for i := 0; i < n; {
		j, size := i, 0
		for j < n && (size < opts.TargetSize || j <= prevEnd) {
			size += sizes[j]
			j++
		}
		chunks = append(chunks, build(videoID, len(chunks), segs[i:j]))
		if j == n {
			break
		}

		k, overlap := j, 0
		for k > i+1 && overlap < opts.Overlap {
			k--
			overlap += sizes[k]
		}
		prevEnd, i = j, k
	}
	return chunks, nil
}

func build(videoID core.VideoID, seq int, segs []core.TranscriptSegment) core.Chunk {
	texts := make([]string, len(segs))
	for i, seg := range segs {
		texts[i] = seg.Text
	}
	return core.Chunk{
		VideoID:  videoID,
		Sequence: seq,
		Text:     strings.Join(texts, " "),
		Start:    segs[0].Start,
		End:      segs[len(segs)-1].End,
	}
}

// prepare trims segment text and drops blank segments, extending the
// previous kept segment (or the next one, at the start) over their range.
func prepare(segments []core.TranscriptSegment) []core.TranscriptSegment {
	out := make([]core.TranscriptSegment, 0, len(segments))
	var lead *core.TranscriptSegment
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			if len(out) > 0 {
				last := &out[len(out)-1]
				last.End = max(last.End, seg.End)
			} else if lead == nil {
				s := seg
				lead = &s
			} else {
				lead.End = max(lead.End, seg.End)
			}
			continue
		}
		seg.Text = text
		if len(out) == 0 && lead != nil {
			seg.Start = min(seg.Start, lead.Start)
		}
		out = append(out, seg)
	}
	return out
}
