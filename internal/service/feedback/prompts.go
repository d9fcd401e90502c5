package feedback

import (
	"fmt"
	"sort"
	"strings"

	"scriptmentor/internal/domain/models"
)

// Temperatures for the two remote calls. Scratchpad notes are looser.
const (
	structuredTemperature = 0.7
	scratchpadTemperature = 0.9
)

func mentorSystemPrompt(m models.Mentor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a screenwriting mentor giving notes on a screenplay scene.\n", m.Name)
	if m.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", m.Tone)
	}
	if len(m.Priorities) > 0 {
		fmt.Fprintf(&b, "You care most about: %s.\n", strings.Join(m.Priorities, ", "))
	}
	if m.Voice != "" {
		b.WriteString(strings.TrimSpace(m.Voice))
		b.WriteByte('\n')
	}
	b.WriteString("Be specific to the text. Quote lines when it helps. Do not rewrite the scene.")
	return b.String()
}

// blendSystemPrompt describes every mentor and its share so the model writes
// one voice shaped by all of them.
func blendSystemPrompt(b *blend) string {
	var sb strings.Builder
	sb.WriteString("You are a blend of screenwriting mentors giving one set of notes on a screenplay scene.\n")
	sb.WriteString("Mentors and their influence:\n")
	for _, e := range b.entries {
		fmt.Fprintf(&sb, "- %s (%s): %s", e.mentor.Name, percent(e.share), e.mentor.Tone)
		if len(e.mentor.Priorities) > 0 {
			fmt.Fprintf(&sb, "; priorities: %s", strings.Join(e.mentor.Priorities, ", "))
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("Higher-percentage mentors shape tone and priorities more. ")
	sb.WriteString("Write a single cohesive analysis in one voice. Do not give separate opinions per mentor.")
	return sb.String()
}

func userPrompt(req GenerationRequest) string {
	var b strings.Builder
	b.WriteString("Scene:\n")
	b.WriteString(req.SceneContent)
	b.WriteString("\n\nCharacters:\n")
	if req.CharacterContext != "" {
		b.WriteString(req.CharacterContext)
	} else {
		b.WriteString("None listed.")
	}
	b.WriteString("\n\n")
	if req.FeedbackMode == models.ModeScratchpad {
		b.WriteString("Write informal scratchpad notes as a short bulleted list in your own voice. No headers.")
	} else {
		b.WriteString(`Give structured feedback in four sections headed exactly "## Structure", "## Dialogue", "## Pacing" and "## Theme".`)
	}
	return b.String()
}

// characterContext renders the named characters, or all of them when names
// is nil, one per line in name order.
func characterContext(characters map[string]models.Character, names []string) string {
	if names == nil {
		for name := range characters {
			names = append(names, name)
		}
	}
	names = append([]string(nil), names...)
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		c, ok := characters[name]
		if !ok {
			continue
		}
		c.EnsureNotes()
		if c.Name == "" {
			c.Name = name
		}
		lines = append(lines, fmt.Sprintf("%s: %s", c.Name, strings.Join(c.Notes, "; ")))
	}
	return strings.Join(lines, "\n")
}
