package search

import "strings"

// ignored words never count as query terms: common function words plus the
// fillers speech-to-text leaves in transcripts.
var ignored = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "what": true, "how": true, "why": true,
	"when": true, "where": true, "who": true, "does": true, "did": true,
	"about": true, "they": true, "he": true, "she": true, "we": true,
	"um": true, "uh": true, "erm": true, "hmm": true, "okay": true, "yeah": true,
}

// terms returns the lowercased content words of text.
func terms(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:'\"-()[]{}…")
		if f != "" && !ignored[f] {
			out = append(out, f)
		}
	}
	return out
}

// mentionsAll reports whether text contains every word of words.
// An empty word list matches nothing.
func mentionsAll(text string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	present := make(map[string]struct{})
	for _, t := range terms(text) {
		present[t] = struct{}{}
	}
	for _, w := range words {
		if _, ok := present[w]; !ok {
			return false
		}
	}
	return true
}
