package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/service/review"
)

var (
	mentorFlags []string
	chunkFlag   int
	sceneFile   string
)

func init() {
	cmd := &cobra.Command{
		Use:   "feedback <script-id>",
		Short: "Request mentor feedback on a stored script",
		Long: `Runs a review as the signed-in user and charges their token account.

One --mentor gives single-mentor feedback. Several give a blend; append
=weight to set a mentor's share (default 1), e.g. --mentor architect=2.`,
		Args: cobra.ExactArgs(1),
		Run:  runFeedback,
	}
	cmd.Flags().StringSliceVarP(&mentorFlags, "mentor", "m", nil, "Mentor id, optionally id=weight (repeatable)")
	cmd.Flags().IntVar(&chunkFlag, "chunk", -1, "Review one chunk of a chunked script")
	cmd.Flags().StringVar(&sceneFile, "scene-file", "", "Review this excerpt instead of the stored content")
	_ = cmd.MarkFlagRequired("mentor")

	RootCmd.AddCommand(cmd)
}

// parseMentors turns --mentor values into a review request.
func parseMentors(values []string) (review.Request, error) {
	var req review.Request
	if len(values) == 1 && !strings.Contains(values[0], "=") {
		req.MentorID = values[0]
		return req, nil
	}
	for _, v := range values {
		id, weight, hasWeight := strings.Cut(v, "=")
		w := 1.0
		if hasWeight {
			parsed, err := strconv.ParseFloat(weight, 64)
			if err != nil {
				return req, fmt.Errorf("mentor %q: bad weight %q", id, weight)
			}
			w = parsed
		}
		req.Mentors = append(req.Mentors, models.MentorWeight{MentorID: id, Weight: w})
	}
	return req, nil
}

func runFeedback(cmd *cobra.Command, args []string) {
	req, err := parseMentors(mentorFlags)
	if err != nil {
		exitErr("feedback", err)
	}
	if chunkFlag >= 0 {
		req.ChunkIndex = &chunkFlag
	}
	if sceneFile != "" {
		req.SceneContent = readScript(sceneFile)
	}

	ctx := cmd.Context()
	a, cfg, logger, done := openApp(ctx)
	defer done()

	result, err := a.Reviews.Review(ctx, signedInUser(ctx, cfg, logger), args[0], &req)
	if err != nil {
		exitErr("feedback", err)
	}
	if err := result.Err(); err != nil {
		exitErr("feedback declined", err)
	}

	if !textOutput() {
		printJSON(result)
		return
	}
	fb := result.Feedback
	fmt.Printf("# %s (%s)\n\n%s\n", fb.MentorID, fb.Source, fb.StructuredContent)
	if fb.ScratchpadContent != "" {
		fmt.Printf("\n## Scratchpad\n\n%s\n", fb.ScratchpadContent)
	}
	if v := result.Transaction.UpdatedValidation; v != nil {
		fmt.Printf("\n%d tokens left\n", v.CurrentBalance)
	}
}
