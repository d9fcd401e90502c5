package feedback

import (
	"strings"

	"scriptmentor/internal/service/chunking"
)

// Thresholds used by local synthesis. Line counts exclude blank lines.
const (
	heavyDialogueRatio = 0.6
	lightDialogueRatio = 0.2
	longSceneLines     = 90
	shortSceneLines    = 12
	crowdedSpeakers    = 4
)

// sceneAnalysis is the line composition of one scene or chunk.
type sceneAnalysis struct {
	Lines         int
	DialogueLines int
	ActionLines   int
	HasHeading    bool
	Speakers      []string
}

func analyzeScene(content string) sceneAnalysis {
	var a sceneAnalysis
	lines := strings.Split(content, "\n")
	seen := make(map[string]bool)
	inDialogue := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			inDialogue = false
			continue
		}
		a.Lines++

		if chunking.IsSceneHeading(trimmed) {
			a.HasHeading = true
			inDialogue = false
			continue
		}
		if name, ok := chunking.CueName(trimmed); ok && nextNonBlank(lines, i) {
			if !seen[name] {
				seen[name] = true
				a.Speakers = append(a.Speakers, name)
			}
			inDialogue = true
			continue
		}
		if inDialogue {
			if !strings.HasPrefix(trimmed, "(") {
				a.DialogueLines++
			}
			continue
		}
		a.ActionLines++
	}
	return a
}

// nextNonBlank reports whether the line after i exists and has text
func nextNonBlank(lines []string, i int) bool {
	return i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != ""
}

func (a sceneAnalysis) empty() bool {
	return a.Lines == 0
}

// dialogueRatio is dialogue lines over dialogue plus action lines.
func (a sceneAnalysis) dialogueRatio() float64 {
	total := a.DialogueLines + a.ActionLines
	if total == 0 {
		return 0
	}
	return float64(a.DialogueLines) / float64(total)
}
