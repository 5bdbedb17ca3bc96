package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/wolfman30/fieldservice-scheduler/internal/records"
	"github.com/wolfman30/fieldservice-scheduler/internal/schedule"
	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

// DefaultFallbackRange is the full-day range searched for an alternative when
// a proposed block was taken before the customer confirmed.
const DefaultFallbackRange = "09:00 - 18:00"

// Outcome is the result of a confirmation attempt.
type Outcome int

const (
	// Committed means the appointment was stored.
	Committed Outcome = iota
	// Conflict means the block was taken and Alternative holds a replacement offer.
	Conflict
	// Unavailable means the block was taken and the technician has nothing else that day.
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Conflict:
		return "conflict"
	case Unavailable:
		return "conflict_no_alternative"
	default:
		return "unknown"
	}
}

// Confirmation carries what Confirm did.
type Confirmation struct {
	Outcome     Outcome
	Appointment records.Appointment
	Alternative Proposal
}

// Confirmer re-checks a proposal against live bookings before inserting the
// appointment. Check and insert run under one lock so two confirmations in
// the same process cannot book the same technician block.
type Confirmer struct {
	mu            sync.Mutex
	availability  *Availability
	appointments  records.AppointmentStore
	generator     *schedule.Generator
	fallbackRange string
	logger        *logging.Logger
}

func NewConfirmer(availability *Availability, appointments records.AppointmentStore, generator *schedule.Generator, fallbackRange string, logger *logging.Logger) *Confirmer {
	if logger == nil {
		logger = logging.Default()
	}
	if generator == nil {
		generator = schedule.NewGenerator(schedule.DefaultLunchStart, logger)
	}
	if fallbackRange == "" {
		fallbackRange = DefaultFallbackRange
	}
	return &Confirmer{
		availability:  availability,
		appointments:  appointments,
		generator:     generator,
		fallbackRange: fallbackRange,
		logger:        logger,
	}
}

// Confirm books p for customer unless the block is already taken, in which
// case the first open block of the fallback range with the same technician and
// date is returned as an alternative.
func (c *Confirmer) Confirm(ctx context.Context, customer records.Customer, p Proposal) (Confirmation, error) {
	if !p.Complete() {
		return Confirmation{}, ErrNoPendingProposal
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	booked, err := c.availability.BookedBlocks(ctx, p.Technician, p.Date)
	if err != nil {
		return Confirmation{}, err
	}

	if booked.Has(p.Block) {
		alt, ok := firstOpen(schedule.Strings(c.generator.Blocks(c.fallbackRange)), booked)
		if !ok {
			c.logger.Warn("proposed block taken, no alternative", "technician", p.Technician, "date", p.Date, "block", p.Block)
			return Confirmation{Outcome: Unavailable}, nil
		}
		c.logger.Info("proposed block taken, offering alternative", "technician", p.Technician, "date", p.Date, "block", p.Block, "alternative", alt)
		return Confirmation{
			Outcome:     Conflict,
			Alternative: Proposal{Technician: p.Technician, Date: p.Date, Block: alt},
		}, nil
	}

	appt := records.NewAppointment(customer, p.Technician, p.Date, p.Block)
	if err := c.appointments.InsertAppointment(ctx, &appt); err != nil {
		return Confirmation{}, fmt.Errorf("dispatch: commit appointment: %w", err)
	}
	c.logger.Info("appointment committed", "technician", p.Technician, "date", p.Date, "block", p.Block)
	return Confirmation{Outcome: Committed, Appointment: appt}, nil
}
