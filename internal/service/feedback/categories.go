package feedback

import (
	"regexp"
	"strings"

	"scriptmentor/internal/domain/models"
)

var (
	markdownHeader = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*$`)
	boldHeader     = regexp.MustCompile(`^(?:\*\*|__)([^*_]+?)(?:\*\*|__)\s*:?\s*(.*)$`)
	colonHeader    = regexp.MustCompile(`^([A-Za-z][A-Za-z &/]{0,40}):\s*$`)
	numberedHeader = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)
)

// ExtractCategories partitions structured feedback into the four canonical
// sections by scanning for headers. Text under any other header, and text
// before the first header, is not assigned to a category.
func ExtractCategories(text string) models.Categories {
	var parts [4][]string
	current := -1

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if name, rest, ok := parseHeader(trimmed); ok {
			current = categoryIndex(name)
			if current >= 0 && rest != "" {
				parts[current] = append(parts[current], rest)
			}
			continue
		}
		if current >= 0 {
			parts[current] = append(parts[current], line)
		}
	}

	clean := func(lines []string) string {
		return strings.TrimSpace(strings.Join(lines, "\n"))
	}
	return models.Categories{
		Structure: clean(parts[0]),
		Dialogue:  clean(parts[1]),
		Pacing:    clean(parts[2]),
		Theme:     clean(parts[3]),
	}
}

// parseHeader recognizes markdown, bold and "Name:" headers. A bold header
// may carry text after it on the same line. Colon and numbered lines count
// as headers only when they name a canonical category.
func parseHeader(line string) (name, rest string, ok bool) {
	if m := markdownHeader.FindStringSubmatch(line); m != nil {
		return strings.Trim(m[1], "*_ "), "", true
	}
	if m := boldHeader.FindStringSubmatch(line); m != nil {
		rest = strings.TrimSpace(m[2])
		// bold words leading a sentence are emphasis, not a header
		if rest == "" || categoryIndex(m[1]) >= 0 {
			return m[1], rest, true
		}
	}
	// a plain label such as "For example:" stays in the current section
	if m := colonHeader.FindStringSubmatch(line); m != nil && categoryIndex(m[1]) >= 0 {
		return m[1], "", true
	}
	if m := numberedHeader.FindStringSubmatch(line); m != nil {
		title := strings.Trim(m[1], "*_: ")
		if categoryIndex(title) >= 0 && len(strings.Fields(title)) <= 3 {
			return title, "", true
		}
	}
	return "", "", false
}

// categoryIndex maps a header to 0..3 by its first word, or -1.
func categoryIndex(header string) int {
	fields := strings.FieldsFunc(strings.ToLower(header), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	if len(fields) == 0 {
		return -1
	}
	switch fields[0] {
	case "structure", "structural":
		return 0
	case "dialogue", "dialog":
		return 1
	case "pacing", "pace":
		return 2
	case "theme", "themes", "thematic":
		return 3
	}
	return -1
}
