package chunking

import (
	"fmt"
	"strings"

	"scriptmentor/internal/domain/models"
)

// Recommendation is advisory; callers may pick any strategy.
type Recommendation struct {
	Options
	EstimatedPages int    `json:"estimated_pages"`
	ActBreaks      int    `json:"act_breaks"`
	SceneHeadings  int    `json:"scene_headings"`
	Reason         string `json:"reason"`
}

// Recommend picks a strategy from the script's length and structure
func Recommend(content string) Recommendation {
	pages := EstimatePages(content, DefaultLinesPerPage)
	lines := strings.Split(content, "\n")
	rec := Recommendation{
		EstimatedPages: pages,
		ActBreaks:      len(ActBreaks(lines)),
		SceneHeadings:  CountSceneHeadings(content),
	}
	rec.LinesPerPage = DefaultLinesPerPage

	switch {
	case pages <= 30:
		rec.Strategy, rec.PagesPerChunk = models.StrategyPages, DefaultPagesPerChunk
		rec.Reason = fmt.Sprintf("short script (%d pages)", pages)
	case rec.ActBreaks >= 2 && pages > 80:
		rec.Strategy, rec.PagesPerChunk = models.StrategyActs, DefaultPagesPerChunk
		rec.Reason = fmt.Sprintf("%d act markers in a %d page script", rec.ActBreaks, pages)
	case rec.SceneHeadings > 20 && pages > 60:
		rec.Strategy, rec.PagesPerChunk = models.StrategySequences, DefaultPagesPerChunk
		rec.Reason = fmt.Sprintf("%d scenes in a %d page script", rec.SceneHeadings, pages)
	default:
		rec.Strategy, rec.PagesPerChunk = models.StrategyPages, 12
		rec.Reason = "no clear structure; denser page chunks"
	}
	return rec
}
