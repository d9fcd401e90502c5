package seed

import (
	"strconv"
	"strings"
)

// Sample is one seeded script
type Sample struct {
	Title   string
	Content string
}

// Samples returns the seed scripts: a single scene and a longer script
// that is stored in chunks.
func Samples() []Sample {
	return []Sample{
		{Title: "The Envelope", Content: envelopeScene},
		{Title: "Warehouse Nights", Content: warehouseNights()},
	}
}

const envelopeScene = `INT. DINER - NIGHT

Rain streaks the window. ROSA (40s) slides into a booth across from LEO (30s).

ROSA
You're late.

LEO
I was never coming.

ROSA
And yet.

Leo pushes an envelope across the table. Rosa doesn't touch it.

LEO
It's all there. Every name.

ROSA
Then why do you look scared?`

func warehouseNights() string {
	var b strings.Builder
	for _, act := range []string{"ACT ONE", "ACT TWO", "ACT THREE"} {
		b.WriteString(act + "\n\n")
		for i := 1; i <= 8; i++ {
			b.WriteString(warehouseScene(i))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func warehouseScene(n int) string {
	var b strings.Builder
	b.WriteString("INT. WAREHOUSE " + strconv.Itoa(n) + " - NIGHT\n\n")
	b.WriteString("Crates stacked to the rafters. A single bulb swings.\n\n")
	b.WriteString("MARA\nWe move tonight or not at all.\n\n")
	b.WriteString("DEV\nThe buyer wants proof first.\n\n")
	b.WriteString("Mara kicks a crate open. Empty.\n\n")
	b.WriteString("MARA\nThen we give him a story instead.\n\n")
	for i := 0; i < 40; i++ {
		b.WriteString("Dust hangs in the light. Neither of them moves.\n")
	}
	b.WriteString("\n")
	return b.String()
}
