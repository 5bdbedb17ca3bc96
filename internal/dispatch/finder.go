package dispatch

import (
	"context"
	"sort"

	"github.com/wolfman30/fieldservice-scheduler/internal/records"
	"github.com/wolfman30/fieldservice-scheduler/internal/schedule"
	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

// Proposal is a concrete slot offered to a customer and awaiting a yes.
type Proposal struct {
	Technician string `json:"technician"`
	Date       string `json:"date"`
	Block      string `json:"block"`
}

// Complete reports whether every field is set.
func (p Proposal) Complete() bool {
	return p.Technician != "" && p.Date != "" && p.Block != ""
}

// SlotFinder resolves a customer-requested date and time into a proposal.
type SlotFinder struct {
	technicians  records.TechnicianStore
	availability *Availability
	generator    *schedule.Generator
	logger       *logging.Logger
}

func NewSlotFinder(technicians records.TechnicianStore, availability *Availability, generator *schedule.Generator, logger *logging.Logger) *SlotFinder {
	if logger == nil {
		logger = logging.Default()
	}
	if generator == nil {
		generator = schedule.NewGenerator(schedule.DefaultLunchStart, logger)
	}
	return &SlotFinder{
		technicians:  technicians,
		availability: availability,
		generator:    generator,
		logger:       logger,
	}
}

// Find looks for the open block closest to desired ("HH:MM") on date among
// compatible technicians, in store order. A technician is only considered
// when desired is exactly the start of one of their blocks; nearby blocks are
// then tried by distance, earlier blocks first on ties.
func (f *SlotFinder) Find(ctx context.Context, serviceType, date, desired string) (Proposal, bool, error) {
	desiredClock, err := schedule.NormalizeClock(desired)
	if err != nil {
		f.logger.Info("desired time not understood", "desired", desired, "error", err)
		return Proposal{}, false, nil
	}

	compatible, err := Compatible(ctx, f.technicians, serviceType)
	if err != nil {
		return Proposal{}, false, err
	}

	for _, t := range compatible {
		if t.IsBlockedOn(date) {
			continue
		}
		blocks := f.generator.DayBlocks(t.MorningHours, t.AfternoonHours)
		if len(blocks) == 0 {
			continue
		}

		desiredIdx := -1
		for i, b := range blocks {
			if b.StartClock() == desiredClock {
				desiredIdx = i
				break
			}
		}
		if desiredIdx < 0 {
			f.logger.Debug("desired time outside technician schedule", "technician", t.Name, "desired", desiredClock)
			continue
		}

		booked, err := f.availability.BookedBlocks(ctx, t.Name, date)
		if err != nil {
			return Proposal{}, false, err
		}

		order := make([]int, len(blocks))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return absInt(order[a]-desiredIdx) < absInt(order[b]-desiredIdx)
		})

		for _, idx := range order {
			block := blocks[idx].String()
			if !booked.Has(block) {
				return Proposal{Technician: t.Name, Date: date, Block: block}, true, nil
			}
		}
	}

	f.logger.Info("no block found near desired time", "service_type", serviceType, "date", date, "desired", desiredClock)
	return Proposal{}, false, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
