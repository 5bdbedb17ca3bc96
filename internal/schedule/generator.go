package schedule

import (
	"strings"

	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

// DefaultLunchStart is the start of the excluded lunch hour.
const DefaultLunchStart = "13:00"

// Generator expands availability ranges into one-hour blocks, skipping the
// block that starts at lunch.
type Generator struct {
	lunchStart int
	logger     *logging.Logger
}

// NewGenerator builds a generator. An unparsable or non hour-aligned lunch
// start falls back to 13:00.
func NewGenerator(lunchStart string, logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Default()
	}
	lunch, err := ParseClock(lunchStart)
	if err != nil || lunch%BlockMinutes != 0 {
		if strings.TrimSpace(lunchStart) != "" {
			logger.Warn("schedule: invalid lunch start, using default", "lunch_start", lunchStart, "default", DefaultLunchStart)
		}
		lunch, _ = ParseClock(DefaultLunchStart)
	}
	return &Generator{lunchStart: lunch, logger: logger}
}

// Blocks returns the ordered one-hour blocks inside raw. Starts are rounded
// up to the next full hour so every block is hour aligned. Malformed input is
// logged and yields no blocks.
func (g *Generator) Blocks(raw string) []Block {
	start, end, err := ParseRange(raw)
	if err != nil {
		g.logger.Warn("schedule: ignoring availability range", "range", raw, "error", err)
		return nil
	}
	if rem := start % BlockMinutes; rem != 0 {
		start += BlockMinutes - rem
	}

	var blocks []Block
	for cur := start; cur+BlockMinutes <= end; cur += BlockMinutes {
		if cur == g.lunchStart {
			continue
		}
		blocks = append(blocks, Block{Start: cur, End: cur + BlockMinutes})
	}
	return blocks
}

// DayBlocks concatenates the morning and afternoon blocks. Blank ranges are
// treated as "not working" and skipped without a warning.
func (g *Generator) DayBlocks(morning, afternoon string) []Block {
	var blocks []Block
	if strings.TrimSpace(morning) != "" {
		blocks = append(blocks, g.Blocks(morning)...)
	}
	if strings.TrimSpace(afternoon) != "" {
		blocks = append(blocks, g.Blocks(afternoon)...)
	}
	return blocks
}

// Strings renders blocks with Block.String.
func Strings(blocks []Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.String()
	}
	return out
}
