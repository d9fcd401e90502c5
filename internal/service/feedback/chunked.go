package feedback

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
)

// ChunkedRequest asks for feedback on every chunk of a chunked script.
// Mentors selects blended generation per chunk; otherwise MentorID is used.
type ChunkedRequest struct {
	ScriptID   string
	Chunks     []models.ScriptChunk
	Characters map[string]models.Character
	MentorID   string
	Mentors    []models.MentorWeight
}

// GenerateChunked runs per-chunk generation with bounded concurrency and
// summarizes the results into one Feedback.
func (c *Composer) GenerateChunked(ctx context.Context, req ChunkedRequest) (*models.Feedback, error) {
	if len(req.Chunks) == 0 {
		return nil, &domain.ValidationError{Message: "script has no chunks"}
	}

	var (
		b        *blend
		mentorID = req.MentorID
		err      error
	)
	if len(req.Mentors) > 0 {
		if b, err = newBlend(req.Mentors, c.mentors.Get); err != nil {
			return nil, err
		}
		mentorID = models.BlendedMentorID
	} else if _, err = c.mentors.Get(req.MentorID); err != nil {
		return nil, err
	}

	results := make([]models.ChunkFeedback, len(req.Chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, chunk := range req.Chunks {
		g.Go(func() error {
			names := chunk.CharacterNames
			if names == nil {
				names = []string{}
			}

			var fb *models.Feedback
			if b != nil {
				fb = c.generateBlend(gctx, b, BlendRequest{
					TargetID:       chunk.ID,
					SceneContent:   chunk.Content,
					Characters:     req.Characters,
					CharacterNames: names,
				})
			} else {
				var err error
				fb, err = c.Generate(gctx, SingleRequest{
					TargetID:       chunk.ID,
					SceneContent:   chunk.Content,
					MentorID:       req.MentorID,
					Characters:     req.Characters,
					CharacterNames: names,
				})
				if err != nil {
					return fmt.Errorf("chunk %d: %w", chunk.ChunkIndex, err)
				}
			}

			results[i] = models.ChunkFeedback{
				ChunkID:    chunk.ID,
				ChunkIndex: chunk.ChunkIndex,
				Title:      chunk.Title,
				StartPage:  chunk.StartPage,
				EndPage:    chunk.EndPage,
				Feedback:   fb,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].ChunkIndex < results[j].ChunkIndex })

	summary := summarizeChunks(results)
	content := renderSummary(summary, len(results))

	fb := &models.Feedback{
		ID:                c.newID(),
		MentorID:          mentorID,
		SceneOrScriptID:   req.ScriptID,
		StructuredContent: content,
		ScratchpadContent: joinScratchpads(results),
		Categories:        mergeCategories(results),
		Timestamp:         c.now().UTC(),
		Source:            models.SourceSummary,
		IsChunked:         true,
		ChunkedDetail:     &models.ChunkedDetail{Chunks: results, Summary: summary},
		Content:           content,
	}
	if b != nil {
		fb.Blend = b.influences()
	}

	c.logger.Info("chunked feedback composed",
		"script_id", req.ScriptID,
		"mentor_id", mentorID,
		"chunks", len(results),
	)
	return fb, nil
}

func joinScratchpads(chunks []models.ChunkFeedback) string {
	var parts []string
	for _, ch := range chunks {
		if ch.Feedback == nil || ch.Feedback.ScratchpadContent == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("### %s\n\n%s", ch.Title, ch.Feedback.ScratchpadContent))
	}
	return strings.Join(parts, "\n\n")
}

// mergeCategories joins each category across chunks, labeled by chunk title.
func mergeCategories(chunks []models.ChunkFeedback) models.Categories {
	var parts [4][]string
	for _, ch := range chunks {
		if ch.Feedback == nil {
			continue
		}
		for i, text := range categoryTexts(ch.Feedback.Categories) {
			if text != "" {
				parts[i] = append(parts[i], ch.Title+": "+text)
			}
		}
	}
	join := func(p []string) string { return strings.Join(p, "\n\n") }
	return models.Categories{
		Structure: join(parts[0]),
		Dialogue:  join(parts[1]),
		Pacing:    join(parts[2]),
		Theme:     join(parts[3]),
	}
}

func categoryTexts(c models.Categories) [4]string {
	return [4]string{c.Structure, c.Dialogue, c.Pacing, c.Theme}
}
