// Package chunking splits full screenplays into bounded, ordered analysis
// units.
package chunking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
)

const (
	DefaultPagesPerChunk = 15
	DefaultLinesPerPage  = 52

	sequenceTarget   = 8
	minSequenceLines = 200
)

var romanNumerals = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// Options selects the strategy and page geometry. Zero values take defaults.
type Options struct {
	Strategy      models.ChunkingStrategy `json:"strategy"`
	PagesPerChunk int                     `json:"pages_per_chunk,omitempty"`
	LinesPerPage  int                     `json:"lines_per_page,omitempty"`
}

func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = models.StrategyPages
	}
	if o.PagesPerChunk <= 0 {
		o.PagesPerChunk = DefaultPagesPerChunk
	}
	if o.LinesPerPage <= 0 {
		o.LinesPerPage = DefaultLinesPerPage
	}
	return o
}

// Chunker partitions scripts. The zero value is not usable; call New.
type Chunker struct {
	newID func() string
}

// New creates a chunker that assigns random chunk IDs
func New() *Chunker {
	return &Chunker{newID: uuid.NewString}
}

// span is a half-open line interval [start, end)
type span struct {
	start, end int
	title      string
}

// Chunk splits content with the requested strategy and returns the full
// script view. Joining the chunk contents with "\n" in index order yields
// content exactly. Blank content yields a script with no chunks.
func (c *Chunker) Chunk(content, title string, characters map[string]models.Character, opts Options) (*models.Script, error) {
	opts = opts.withDefaults()
	if !opts.Strategy.Valid() {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown chunking strategy %q", opts.Strategy)}
	}

	strategy := opts.Strategy
	script := &models.Script{
		Title:            title,
		RawContent:       content,
		ProcessedContent: content,
		Characters:       characters,
		ChunkingStrategy: &strategy,
	}
	if script.Characters == nil {
		script.Characters = map[string]models.Character{}
	}

	if strings.TrimSpace(content) == "" {
		zero := 0
		script.TotalPages = &zero
		return script, nil
	}

	lines := strings.Split(content, "\n")
	pages := pageCount(len(lines), opts.LinesPerPage)
	script.TotalPages = &pages

	var spans []span
	var chunkType models.ChunkType
	switch opts.Strategy {
	case models.StrategyActs:
		spans, chunkType = splitActs(lines), models.ChunkTypeAct
	case models.StrategySequences:
		spans, chunkType = splitSequences(len(lines)), models.ChunkTypeSequence
	default:
		spans, chunkType = splitPages(len(lines), opts.PagesPerChunk, opts.LinesPerPage), models.ChunkTypePages
	}

	chunks := make([]models.ScriptChunk, 0, len(spans))
	for i, sp := range spans {
		startPage := sp.start/opts.LinesPerPage + 1
		endPage := (sp.end-1)/opts.LinesPerPage + 1
		chunks = append(chunks, models.ScriptChunk{
			ID:         c.newID(),
			Title:      sp.title,
			Content:    strings.Join(lines[sp.start:sp.end], "\n"),
			StartPage:  &startPage,
			EndPage:    &endPage,
			ChunkType:  chunkType,
			ChunkIndex: i,
		})
	}

	AttachCharacters(chunks, script.Characters)
	script.Chunks = chunks
	return script, nil
}

func splitPages(total, pagesPerChunk, linesPerPage int) []span {
	perChunk := pagesPerChunk * linesPerPage
	var spans []span
	for start := 0; start < total; start += perChunk {
		end := min(start+perChunk, total)
		spans = append(spans, span{
			start: start,
			end:   end,
			title: fmt.Sprintf("Pages %d-%d", start/linesPerPage+1, (end-1)/linesPerPage+1),
		})
	}
	return spans
}

func splitSequences(total int) []span {
	size := max(total/sequenceTarget, minSequenceLines)
	var spans []span
	for start := 0; start < total; start += size {
		spans = append(spans, span{
			start: start,
			end:   min(start+size, total),
			title: fmt.Sprintf("Sequence %d", len(spans)+1),
		})
	}
	return spans
}

func splitActs(lines []string) []span {
	total := len(lines)
	points := map[int]bool{0: true, total: true}
	for _, b := range ActBreaks(lines) {
		if b > 0 && b < total {
			points[b] = true
		}
	}

	if len(points) < 3 {
		return splitEqual(total, 3)
	}

	sorted := make([]int, 0, len(points))
	for p := range points {
		sorted = append(sorted, p)
	}
	sort.Ints(sorted)

	spans := make([]span, 0, len(sorted)-1)
	for i := 0; i+1 < len(sorted); i++ {
		spans = append(spans, span{
			start: sorted[i],
			end:   sorted[i+1],
			title: "Act " + roman(i+1),
		})
	}
	return spans
}

// splitEqual divides total lines into n near-equal acts. Earlier acts take
// the remainder. Fewer than n lines yield fewer acts.
func splitEqual(total, n int) []span {
	size, rem := total/n, total%n
	var spans []span
	start := 0
	for i := 0; i < n && start < total; i++ {
		length := size
		if i < rem {
			length++
		}
		if length == 0 {
			continue
		}
		spans = append(spans, span{
			start: start,
			end:   start + length,
			title: "Act " + roman(len(spans)+1),
		})
		start += length
	}
	return spans
}

func pageCount(lines, linesPerPage int) int {
	if lines == 0 {
		return 0
	}
	return (lines + linesPerPage - 1) / linesPerPage
}

// EstimatePages returns ceil(lines / linesPerPage); blank content is 0 pages
func EstimatePages(content string, linesPerPage int) int {
	if strings.TrimSpace(content) == "" {
		return 0
	}
	if linesPerPage <= 0 {
		linesPerPage = DefaultLinesPerPage
	}
	return pageCount(strings.Count(content, "\n")+1, linesPerPage)
}

func roman(n int) string {
	var b strings.Builder
	for _, r := range romanNumerals {
		for n >= r.value {
			b.WriteString(r.symbol)
			n -= r.value
		}
	}
	return b.String()
}
