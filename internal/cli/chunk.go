package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scriptmentor/internal/domain/models"
	"scriptmentor/internal/service/chunking"
)

var (
	strategyFlag string
	pagesFlag    int
)

func init() {
	chunkCmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Split a script file and print the chunks",
		Long:  "Runs the chunker locally. Nothing is stored and no session is needed.",
		Args:  cobra.ExactArgs(1),
		Run:   runChunk,
	}
	chunkCmd.Flags().StringVar(&strategyFlag, "strategy", "", "pages, acts or sequences (default: recommended)")
	chunkCmd.Flags().IntVar(&pagesFlag, "pages", 0, "Pages per chunk for the pages strategy")

	recommendCmd := &cobra.Command{
		Use:   "recommend <file>",
		Short: "Print the recommended chunking strategy for a script file",
		Args:  cobra.ExactArgs(1),
		Run:   runRecommend,
	}

	RootCmd.AddCommand(chunkCmd, recommendCmd)
}

func readScript(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		exitErr("read script", err)
	}
	return string(b)
}

func runChunk(cmd *cobra.Command, args []string) {
	content := readScript(args[0])

	opts := chunking.Recommend(content).Options
	if strategyFlag != "" {
		strategy := models.ChunkingStrategy(strategyFlag)
		if !strategy.Valid() {
			exitErr("chunk", fmt.Errorf("unknown strategy %q", strategyFlag))
		}
		opts = chunking.Options{Strategy: strategy, PagesPerChunk: pagesFlag}
	}

	script, err := chunking.New().Chunk(content, args[0], chunking.ExtractCharacters(content), opts)
	if err != nil {
		exitErr("chunk", err)
	}
	if !textOutput() {
		printJSON(script.Chunks)
		return
	}
	for _, c := range script.Chunks {
		pages := ""
		if c.StartPage != nil && c.EndPage != nil {
			pages = fmt.Sprintf("pp. %d-%d", *c.StartPage, *c.EndPage)
		}
		fmt.Printf("%2d  %-28s %-12s %d characters\n", c.ChunkIndex, c.Title, pages, len(c.CharacterNames))
	}
}

func runRecommend(cmd *cobra.Command, args []string) {
	rec := chunking.Recommend(readScript(args[0]))
	if textOutput() {
		fmt.Printf("%s (%d pages per chunk): %s\n", rec.Strategy, rec.PagesPerChunk, rec.Reason)
		return
	}
	printJSON(rec)
}
