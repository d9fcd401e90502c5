package feedback

import (
	"fmt"
	"regexp"
	"strings"

	"scriptmentor/internal/domain/models"
)

const (
	maxSummaryItems  = 5
	minSentenceChars = 12
)

var (
	issuePattern    = regexp.MustCompile(`(?i)\b(?:consider|cut|cutting|tighten|missing|lacks?|weak|slow|unclear|confus\w*|overlong|long|too\s+\w+|floating|treading water|no slugline|no scene heading)\b`)
	strengthPattern = regexp.MustCompile(`(?i)\b(?:strong|works?|effective|compelling|clear|vivid|earned|lands?|well|reasonable|workable|crackles?)\b`)
	inlineLabel     = regexp.MustCompile(`^\*[^*\s][^*]*:\*\s*`)
	categoryNames   = [4]string{"Structure", "Dialogue", "Pacing", "Theme"}
)

// finding is one sentence and the chunks it was seen in.
type finding struct {
	text   string
	titles []string
}

type findings struct {
	items []*finding
	index map[string]*finding
}

func (f *findings) add(text, title string) {
	if f.index == nil {
		f.index = make(map[string]*finding)
	}
	key := strings.ToLower(text)
	if existing, ok := f.index[key]; ok {
		existing.titles = append(existing.titles, title)
		return
	}
	item := &finding{text: text, titles: []string{title}}
	f.index[key] = item
	f.items = append(f.items, item)
}

func (f *findings) list() []string {
	out := make([]string, 0, maxSummaryItems)
	for _, item := range f.items {
		if len(out) == maxSummaryItems {
			break
		}
		if len(item.titles) == 1 {
			out = append(out, fmt.Sprintf("%s: %s", item.titles[0], item.text))
		} else {
			out = append(out, fmt.Sprintf("%s (%d sections)", item.text, len(item.titles)))
		}
	}
	return out
}

// summarizeChunks sorts each chunk's category sentences into strengths and
// issues by keyword. A sentence with an issue cue is an issue even if it
// also reads as praise. Categories with issues in two or more chunks become
// global recommendations.
func summarizeChunks(chunks []models.ChunkFeedback) models.ChunkSummary {
	var strengths, issues findings
	var recurring [4]int

	for _, ch := range chunks {
		if ch.Feedback == nil {
			continue
		}
		for i, text := range categoryTexts(ch.Feedback.Categories) {
			flagged := false
			for _, s := range sentences(text) {
				switch {
				case issuePattern.MatchString(s):
					issues.add(s, ch.Title)
					flagged = true
				case strengthPattern.MatchString(s):
					strengths.add(s, ch.Title)
				}
			}
			if flagged {
				recurring[i]++
			}
		}
	}

	var recs []string
	for i, n := range recurring {
		if n >= 2 {
			recs = append(recs, fmt.Sprintf(
				"%s notes recur in %d of %d sections; address them across the whole script rather than scene by scene.",
				categoryNames[i], n, len(chunks)))
		}
	}
	if len(recs) == 0 && len(chunks) > 1 {
		recs = append(recs, "Read the sections back to back and check continuity where each one hands off to the next.")
	}

	return models.ChunkSummary{
		KeyStrengths:          strengths.list(),
		MajorIssues:           issues.list(),
		GlobalRecommendations: recs,
	}
}

// sentences splits category text into trimmed sentences, dropping list
// markers, inline mentor labels and fragments too short to stand alone.
func sentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = inlineLabel.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.TrimLeft(line, "-*• ")
		if line == "" {
			continue
		}

		start := 0
		runes := []rune(line)
		for i, r := range runes {
			end := i == len(runes)-1
			if (r == '.' || r == '!' || r == '?') && (end || runes[i+1] == ' ') {
				out = appendSentence(out, string(runes[start:i+1]))
				start = i + 1
			} else if end {
				out = appendSentence(out, string(runes[start:]))
			}
		}
	}
	return out
}

func appendSentence(out []string, s string) []string {
	s = strings.TrimSpace(s)
	if len(s) < minSentenceChars {
		return out
	}
	return append(out, s)
}

// renderSummary is the legacy content field of chunked feedback.
func renderSummary(s models.ChunkSummary, sections int) string {
	var b strings.Builder
	b.WriteString("# Script Feedback Summary\n\n")
	fmt.Fprintf(&b, "Reviewed %d sections.\n", sections)

	for _, part := range []struct {
		header string
		items  []string
	}{
		{"Key Strengths", s.KeyStrengths},
		{"Major Issues", s.MajorIssues},
		{"Global Recommendations", s.GlobalRecommendations},
	} {
		fmt.Fprintf(&b, "\n## %s\n\n", part.header)
		if len(part.items) == 0 {
			b.WriteString("- None noted.\n")
			continue
		}
		b.WriteString(bullets(part.items))
		b.WriteByte('\n')
	}
	return b.String()
}
