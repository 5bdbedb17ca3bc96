// Package dispatch decides which technician and block to offer a customer and
// commits bookings without double-booking a technician.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/fieldservice-scheduler/internal/records"
)

// ErrNoPendingProposal is returned when a confirmation arrives without a
// complete proposal to confirm.
var ErrNoPendingProposal = errors.New("dispatch: no pending proposal")

// BlockSet is the set of "HH:MM - HH:MM" blocks already booked.
type BlockSet map[string]struct{}

// Has reports whether block is booked.
func (s BlockSet) Has(block string) bool {
	_, ok := s[block]
	return ok
}

// Availability answers which blocks a technician already has booked on a date.
type Availability struct {
	appointments records.AppointmentStore
}

func NewAvailability(appointments records.AppointmentStore) *Availability {
	return &Availability{appointments: appointments}
}

// BookedBlocks returns the blocks booked for technician on date ("YYYY-MM-DD").
// Stores implementing records.AppointmentFilterer are asked for just that
// technician and date; others are scanned in full.
func (a *Availability) BookedBlocks(ctx context.Context, technician, date string) (BlockSet, error) {
	var (
		appts []records.Appointment
		err   error
	)
	if filterer, ok := a.appointments.(records.AppointmentFilterer); ok {
		appts, err = filterer.ListAppointmentsFor(ctx, technician, date)
	} else {
		appts, err = a.appointments.ListAppointments(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("dispatch: booked blocks for %s on %s: %w", technician, date, err)
	}

	booked := make(BlockSet)
	for _, appt := range appts {
		if appt.TechnicianName != technician || appt.Date() != date {
			continue
		}
		booked[appt.Block()] = struct{}{}
	}
	return booked, nil
}

// firstOpen returns the first block in candidates that is not booked.
func firstOpen(candidates []string, booked BlockSet) (string, bool) {
	for _, block := range candidates {
		if !booked.Has(block) {
			return block, true
		}
	}
	return "", false
}
