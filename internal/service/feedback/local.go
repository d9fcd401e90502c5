package feedback

import (
	"fmt"
	"strings"

	"scriptmentor/internal/domain/models"
)

const emptySceneNote = "No scene content was provided, so there is nothing to review yet."

// sections is feedback text for the four canonical categories.
type sections struct {
	Structure string
	Dialogue  string
	Pacing    string
	Theme     string
}

// render writes the sections as markdown under the canonical headers.
func (s sections) render() string {
	var b strings.Builder
	for _, part := range []struct{ header, body string }{
		{"Structure", s.Structure},
		{"Dialogue", s.Dialogue},
		{"Pacing", s.Pacing},
		{"Theme", s.Theme},
	} {
		if part.body == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n%s", part.header, part.body)
	}
	return b.String()
}

// localSections picks the mentor's canned advice for what the analysis saw.
// An empty scene yields empty sections.
func localSections(m models.Mentor, a sceneAnalysis) sections {
	if a.empty() {
		return sections{}
	}
	advice := m.Advice

	var s sections
	if a.HasHeading {
		s.Structure = advice.Structure
	} else {
		s.Structure = advice.MissingHeading
	}

	ratio := a.dialogueRatio()
	switch {
	case ratio > heavyDialogueRatio:
		s.Dialogue = advice.HeavyDialogue
	case ratio < lightDialogueRatio:
		s.Dialogue = advice.LightDialogue
	default:
		s.Dialogue = advice.Dialogue
	}
	if len(a.Speakers) > crowdedSpeakers {
		s.Dialogue = joinParagraphs(s.Dialogue, advice.CrowdedScene)
	}

	switch {
	case a.Lines > longSceneLines:
		s.Pacing = advice.LongScene
	case a.Lines < shortSceneLines:
		s.Pacing = advice.ShortScene
	default:
		s.Pacing = advice.Pacing
	}

	s.Theme = advice.Theme
	return s
}

// localScratchpad lists the mentor's prompts after a few observations
// about the scene.
func localScratchpad(m models.Mentor, a sceneAnalysis) string {
	if a.empty() {
		return ""
	}
	var items []string
	if !a.HasHeading {
		items = append(items, "no slugline, where are we?")
	}
	switch n := len(a.Speakers); n {
	case 0:
		items = append(items, "nobody speaks")
	case 1:
		items = append(items, "one voice: "+a.Speakers[0])
	default:
		items = append(items, fmt.Sprintf("%d voices: %s", n, strings.Join(a.Speakers, ", ")))
	}
	if a.DialogueLines+a.ActionLines > 0 {
		items = append(items, fmt.Sprintf("dialogue is %.0f%% of the lines", a.dialogueRatio()*100))
	}
	items = append(items, m.Advice.Scratchpad...)
	return bullets(items)
}

// localSingle is the terminal tier for one mentor. It never fails.
func localSingle(m models.Mentor, content string) (structured, scratchpad string) {
	a := analyzeScene(content)
	if a.empty() {
		return emptySceneNote, ""
	}
	return localSections(m, a).render(), localScratchpad(m, a)
}

// localBlend builds blended feedback from the dominant mentor's advice.
// Secondary mentors above the influence threshold add an annotated
// perspective on dialogue and pacing.
func localBlend(b *blend, content string) (structured, scratchpad string) {
	a := analyzeScene(content)
	if a.empty() {
		return emptySceneNote, ""
	}

	dominant := b.dominantEntry()
	s := localSections(dominant.mentor, a)
	pad := []string{localScratchpad(dominant.mentor, a)}

	for _, e := range b.secondaries() {
		other := localSections(e.mentor, a)
		label := fmt.Sprintf("*%s (%s):*", e.mentor.Name, percent(e.share))
		s.Dialogue = joinParagraphs(s.Dialogue, label+" "+other.Dialogue)
		s.Pacing = joinParagraphs(s.Pacing, label+" "+other.Pacing)
		if len(e.mentor.Advice.Scratchpad) > 0 {
			pad = append(pad, bullets([]string{e.mentor.Name + ": " + e.mentor.Advice.Scratchpad[0]}))
		}
	}
	return s.render(), strings.Join(pad, "\n")
}

func joinParagraphs(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

func bullets(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}
