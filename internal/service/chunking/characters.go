package chunking

import (
	"regexp"
	"sort"
	"strings"

	"scriptmentor/internal/domain/models"
)

// AttachCharacters fills each chunk's CharacterNames with the known
// characters whose name appears in its text as a whole word, ignoring case.
// Names are listed in sorted order.
func AttachCharacters(chunks []models.ScriptChunk, characters map[string]models.Character) {
	names := make([]string, 0, len(characters))
	for name := range characters {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	matchers := make([]*regexp.Regexp, len(names))
	for i, name := range names {
		matchers[i] = wholeWord(name)
	}

	for i := range chunks {
		present := []string{}
		for j, re := range matchers {
			if re.MatchString(chunks[i].Content) {
				present = append(present, names[j])
			}
		}
		chunks[i].CharacterNames = present
	}
}

func wholeWord(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(strings.TrimSpace(name)) + `(?:$|[^\p{L}\p{N}_])`)
}

// ExtractCharacters finds speaking characters from dialogue cues: an
// upper-case line preceded by a blank line and followed by dialogue.
// Every returned character carries the placeholder note.
func ExtractCharacters(content string) map[string]models.Character {
	lines := strings.Split(content, "\n")
	found := map[string]models.Character{}
	for i, line := range lines {
		if i > 0 && strings.TrimSpace(lines[i-1]) != "" {
			continue
		}
		if i+1 >= len(lines) || strings.TrimSpace(lines[i+1]) == "" {
			continue
		}
		name, ok := CueName(line)
		if !ok {
			continue
		}
		if _, seen := found[name]; !seen {
			found[name] = models.NewCharacter(name)
		}
	}
	return found
}

// MergeCharacters adds extracted characters that are missing from known,
// without touching existing notes, and restores the non-empty notes
// invariant on every entry.
func MergeCharacters(known, extracted map[string]models.Character) map[string]models.Character {
	merged := make(map[string]models.Character, len(known)+len(extracted))
	for name, c := range known {
		c.EnsureNotes()
		merged[name] = c
	}
	for name, c := range extracted {
		if _, ok := lookupFold(merged, name); !ok {
			merged[name] = c
		}
	}
	return merged
}

func lookupFold(m map[string]models.Character, name string) (models.Character, bool) {
	if c, ok := m[name]; ok {
		return c, true
	}
	for k, c := range m {
		if strings.EqualFold(k, name) {
			return c, true
		}
	}
	return models.Character{}, false
}
