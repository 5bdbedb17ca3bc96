// Package conversation drives the per-customer booking dialogue: it reads the
// customer's dialogue state, interprets the inbound message and produces the
// next state and reply.
package conversation

import "strings"

// State is a customer's place in the booking dialogue.
type State string

const (
	StateNone                         State = ""
	StateAwaitingScheduleConfirmation State = "awaiting_schedule_confirmation"
	StateProposingAppointment         State = "proposing_appointment"
	StateAwaitingPreference           State = "awaiting_preference"
	StateScheduled                    State = "scheduled"
)

var knownStates = map[State]struct{}{
	StateNone:                         {},
	StateAwaitingScheduleConfirmation: {},
	StateProposingAppointment:         {},
	StateAwaitingPreference:           {},
	StateScheduled:                    {},
}

// ParseState normalizes a persisted state. ok is false for values the
// dialogue does not know; those are handled like StateNone.
func ParseState(raw string) (State, bool) {
	s := State(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownStates[s]; !ok {
		return StateNone, false
	}
	return s, true
}

func (s State) String() string {
	if s == StateNone {
		return "none"
	}
	return string(s)
}
