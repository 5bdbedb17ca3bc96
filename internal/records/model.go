// Package records holds the customer, technician and appointment records the
// scheduler reads and writes, plus the stores that persist them.
package records

import (
	"strings"
	"time"
)

// Customer is a person with a pending field-service visit.
type Customer struct {
	ID                 string
	Phone              string
	Name               string
	ServiceType        string
	ServiceDescription string
	Address            string
	// State is the persisted dialogue state; see conversation.ParseState.
	State     string
	Contacted bool
}

// CustomerPatch updates the mutable fields of a customer. Nil fields are left untouched.
type CustomerPatch struct {
	State     *string
	Contacted *bool
}

// Empty reports whether the patch changes nothing.
func (p CustomerPatch) Empty() bool {
	return p.State == nil && p.Contacted == nil
}

// StatePatch is shorthand for a patch that only changes the dialogue state.
func StatePatch(state string) CustomerPatch {
	return CustomerPatch{State: &state}
}

// Technician is a field technician with per-service capability markers and a
// weekly schedule.
type Technician struct {
	Name string
	// Capabilities maps a service type to the raw marker entered by the
	// office ("si", "yes", "x", ...).
	Capabilities   map[string]string
	MorningHours   string
	AfternoonHours string
	// BlockedDate is an optional "YYYY-MM-DD" day off.
	BlockedDate string
}

var affirmativeMarkers = map[string]struct{}{
	"si":   {},
	"sí":   {},
	"yes":  {},
	"y":    {},
	"true": {},
	"x":    {},
	"1":    {},
}

// Supports reports whether the technician is flagged for the service type.
func (t Technician) Supports(serviceType string) bool {
	serviceType = strings.TrimSpace(serviceType)
	if serviceType == "" {
		return false
	}
	marker, ok := t.Capabilities[serviceType]
	if !ok {
		for key, value := range t.Capabilities {
			if strings.EqualFold(strings.TrimSpace(key), serviceType) {
				marker, ok = value, true
				break
			}
		}
	}
	if !ok {
		return false
	}
	_, affirmative := affirmativeMarkers[strings.ToLower(strings.TrimSpace(marker))]
	return affirmative
}

// IsBlockedOn reports whether date is the technician's day off.
func (t Technician) IsBlockedOn(date string) bool {
	blocked := strings.TrimSpace(t.BlockedDate)
	return blocked != "" && blocked == date
}

// Appointment is a confirmed one-hour booking.
type Appointment struct {
	ID                 string
	Phone              string
	CustomerName       string
	ServiceType        string
	ServiceDescription string
	TechnicianName     string
	// Slot combines the date and block: "2025-05-14 09:00 - 10:00".
	Slot      string
	Address   string
	CreatedAt time.Time
}

// SlotFor joins a date and a block string into the stored slot form.
func SlotFor(date, block string) string {
	return date + " " + block
}

// Date returns the "YYYY-MM-DD" part of the slot.
func (a Appointment) Date() string {
	date, _, _ := strings.Cut(a.Slot, " ")
	return date
}

// Block returns the "HH:MM - HH:MM" part of the slot.
func (a Appointment) Block() string {
	_, block, _ := strings.Cut(a.Slot, " ")
	return block
}

// NewAppointment builds the appointment for a customer booked with a
// technician on date and block.
func NewAppointment(c Customer, technician, date, block string) Appointment {
	return Appointment{
		Phone:              c.Phone,
		CustomerName:       c.Name,
		ServiceType:        c.ServiceType,
		ServiceDescription: c.ServiceDescription,
		TechnicianName:     technician,
		Slot:               SlotFor(date, block),
		Address:            c.Address,
	}
}
