package chunking

import (
	"regexp"
	"strings"
)

var (
	// markers that open a new act on their own line
	breakBeforePattern = regexp.MustCompile(`(?i)^\s*(?:ACT\s+(?:ONE|TWO|THREE|FOUR|FIVE|[IVX]+|\d+)|MIDPOINT|CLIMAX)\s*[:.\-]*\s*$`)

	// markers that close the current act; the break falls after the line
	breakAfterPattern = regexp.MustCompile(`(?i)^\s*(?:FADE\s+OUT|FADE\s+TO\s+BLACK|CUT\s+TO\s+BLACK|END\s+OF\s+ACT(?:\s+\w+)?)\s*[:.\-]*\s*$`)

	sceneHeadingPattern = regexp.MustCompile(`^\s*(?:INT\.?/EXT|I/E|INT|EXT|EST)[.\s]`)

	transitionPattern = regexp.MustCompile(`^\s*(?:[A-Z ]+TO:|FADE (?:IN|OUT)[:.]?|FADE TO BLACK\.?|THE END)\s*$`)

	parentheticalSuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
)

// ActBreaks returns the line offsets where a new act begins, in line order.
// Offsets may repeat or equal len(lines); callers dedupe.
func ActBreaks(lines []string) []int {
	var breaks []int
	for i, line := range lines {
		switch {
		case breakBeforePattern.MatchString(line):
			breaks = append(breaks, i)
		case breakAfterPattern.MatchString(line):
			breaks = append(breaks, i+1)
		}
	}
	return breaks
}

// IsSceneHeading reports whether line is a slugline such as "INT. HOUSE - DAY"
func IsSceneHeading(line string) bool {
	return sceneHeadingPattern.MatchString(line)
}

// CountSceneHeadings counts sluglines in content
func CountSceneHeadings(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if IsSceneHeading(line) {
			n++
		}
	}
	return n
}

// CueName returns the speaking character named by a dialogue cue line, with
// extensions like (V.O.) removed. ok is false for anything that is not a cue.
func CueName(line string) (name string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > 40 {
		return "", false
	}
	if IsSceneHeading(trimmed) || transitionPattern.MatchString(trimmed) ||
		breakBeforePattern.MatchString(trimmed) || breakAfterPattern.MatchString(trimmed) {
		return "", false
	}

	name = strings.TrimSpace(parentheticalSuffix.ReplaceAllString(trimmed, ""))
	if name == "" || name != strings.ToUpper(name) {
		return "", false
	}

	hasLetter := false
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		case r == ' ' || r == '.' || r == '\'' || r == '-' || (r >= '0' && r <= '9'):
		default:
			return "", false
		}
	}
	return name, hasLetter
}
