package records

import (
	"context"
	"errors"
)

var (
	// ErrCustomerNotFound is returned when no customer matches the lookup.
	ErrCustomerNotFound = errors.New("records: customer not found")
	// ErrInvalidAppointment is returned when an appointment misses required fields.
	ErrInvalidAppointment = errors.New("records: appointment requires phone, technician and slot")
)

// CustomerStore reads and patches customers.
type CustomerStore interface {
	FindByPhone(ctx context.Context, phone string) (*Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	UpdateCustomer(ctx context.Context, id string, patch CustomerPatch) error
}

// TechnicianStore lists technicians in their configured order.
type TechnicianStore interface {
	ListTechnicians(ctx context.Context) ([]Technician, error)
}

// AppointmentStore lists and inserts appointments.
type AppointmentStore interface {
	ListAppointments(ctx context.Context) ([]Appointment, error)
	InsertAppointment(ctx context.Context, appt *Appointment) error
}

// AppointmentFilterer is an optional AppointmentStore capability that narrows
// the listing to one technician and date server-side.
type AppointmentFilterer interface {
	ListAppointmentsFor(ctx context.Context, technician, date string) ([]Appointment, error)
}

// Store bundles every record store.
type Store interface {
	CustomerStore
	TechnicianStore
	AppointmentStore
}

func validateAppointment(appt *Appointment) error {
	if appt == nil || appt.Phone == "" || appt.TechnicianName == "" || appt.Date() == "" || appt.Block() == "" {
		return ErrInvalidAppointment
	}
	return nil
}
