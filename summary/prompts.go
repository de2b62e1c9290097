package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/vidchat/core"
)

const sectionFormat = "Respond with two labeled sections in this exact order:\n" +
	"OVERVIEW:\n<one paragraph>\n" +
	"KEY POINTS:\n- <one point per line>\n"

var styleInstructions = map[core.SummaryStyle]string{
	core.StyleComprehensive: "Write a comprehensive summary that covers every major topic in the order it is discussed.\n" +
		sectionFormat,
	core.StyleBullet: "Summarize the video as concise bullet points, one idea per bullet.\n" +
		sectionFormat,
	core.StyleInsights: "Focus on the insights, conclusions and recommendations rather than a play-by-play.\n" +
		sectionFormat,
	core.StyleTimeline: "Summarize the video as a timeline. Start every key point with the time range it covers, for example [2:10-3:45].\n" +
		sectionFormat,
	core.StyleQA: "Summarize the video as a list of questions a viewer might ask, each followed by the answer the video gives.\n" +
		"Format each pair as:\nQ: <question>\nA: <answer>\n",
	core.StyleBrief: "Summarize the video in two or three sentences of plain prose.\n",
}

// validStyle reports whether style has instructions.
func validStyle(style core.SummaryStyle) bool {
	_, ok := styleInstructions[style]
	return ok
}

// finalPrompt summarizes source, either the transcript or merged partials.
func finalPrompt(style core.SummaryStyle, source string, partial bool) string {
	var b strings.Builder
	b.WriteString("You are an expert content analyst summarizing a video.\n\n")
	b.WriteString(styleInstructions[style])
	b.WriteString("\n")
	if partial {
		b.WriteString("The text below is a sequence of summaries of consecutive parts of the video. ")
		b.WriteString("Treat them as one continuous video and do not mention the parts.\n\n")
		b.WriteString("---PART SUMMARIES START---\n")
		b.WriteString(source)
		b.WriteString("\n---PART SUMMARIES END---\n")
	} else {
		b.WriteString("---TRANSCRIPT START---\n")
		b.WriteString(source)
		b.WriteString("\n---TRANSCRIPT END---\n")
	}
	return b.String()
}

// mapPrompt summarizes one part of a long transcript.
func mapPrompt(part string) string {
	var b strings.Builder
	b.WriteString("You are summarizing one part of a longer video transcript.\n")
	b.WriteString("Keep every concrete fact, name, number and time reference. Write plain prose without headings.\n\n")
	b.WriteString("---TRANSCRIPT PART START---\n")
	b.WriteString(part)
	b.WriteString("\n---TRANSCRIPT PART END---\n")
	return b.String()
}

// mergePrompt combines consecutive partial summaries that are still too long
// to reduce in one call.
func mergePrompt(partials string) string {
	var b strings.Builder
	b.WriteString("Merge the following summaries of consecutive parts of a video into one shorter summary.\n")
	b.WriteString("Keep every concrete fact, name, number and time reference. Write plain prose without headings.\n\n")
	b.WriteString("---PART SUMMARIES START---\n")
	b.WriteString(partials)
	b.WriteString("\n---PART SUMMARIES END---\n")
	return b.String()
}

// part is a contiguous stretch of the video and its text.
type part struct {
	Start, End time.Duration
	Text       string
}

func (p part) label() string {
	return core.FormatRange(p.Start, p.End)
}

// joinParts renders parts one per paragraph, each tagged with its range.
func joinParts(parts []part) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s %s", p.label(), p.Text)
	}
	return b.String()
}

// parseSections splits model output into its OVERVIEW and KEY POINTS
// sections. Missing sections come back empty.
func parseSections(text string) (overview string, keyPoints []string) {
	upper := strings.ToUpper(text)
	overviewIdx := strings.Index(upper, "OVERVIEW:")
	pointsIdx := strings.Index(upper, "KEY POINTS:")

	if overviewIdx >= 0 {
		end := len(text)
		if pointsIdx > overviewIdx {
			end = pointsIdx
		}
		overview = strings.TrimSpace(text[overviewIdx+len("OVERVIEW:") : end])
	}
	if pointsIdx >= 0 {
		end := len(text)
		if overviewIdx > pointsIdx {
			end = overviewIdx
		}
		for _, line := range strings.Split(text[pointsIdx+len("KEY POINTS:"):end], "\n") {
			if point := trimBullet(line); point != "" {
				keyPoints = append(keyPoints, point)
			}
		}
	}
	return overview, keyPoints
}

func trimBullet(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "-*•")
	// numbered lists: "1." or "1)"
	if i := strings.IndexAny(line, ".)"); i > 0 && i <= 3 && strings.Trim(line[:i], "0123456789") == "" {
		line = line[i+1:]
	}
	return strings.TrimSpace(line)
}
