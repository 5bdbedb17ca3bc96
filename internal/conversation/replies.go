package conversation

import "fmt"

const (
	replyCustomerNotFound    = "Could not find your information."
	replyIdentity            = "Hello 👋, we are a service provider. We are writing to you because you have a pending service with us. Would you like to schedule your pending appointment?"
	replyNoTechnicians       = "No technicians available. What date do you prefer?"
	replyScheduleReprompt    = "Hello 👋 Would you like to schedule an appointment for the service?"
	replyOptOut              = "Understood! You can write to us later."
	replyAskPreference       = "What date and time do you prefer?"
	replyNoAlternative       = "No available times today. Please suggest another date."
	replyDateNotUnderstood   = "I didn't quite understand the date and time. Can you write it differently?"
	replyNoAvailabilityOnDay = "I don't have availability for that date. Would you like me to suggest another nearby time?"
	replyDidNotUnderstand    = "I didn't understand! Please try again."
	replyUnavailable         = "Our scheduling system is temporarily unavailable. Please try again in a few minutes."
)

func replyFirstProposal(customerName, technician, date, block string) string {
	return fmt.Sprintf("Perfect %s, does an appointment with technician %s on %s from %s work for you?", customerName, technician, date, block)
}

func replyTargetedProposal(technician, date, block string) string {
	return fmt.Sprintf("Does an appointment with %s on %s at %s work for you?", technician, date, block)
}

func replyAlternative(technician, date, block string) string {
	return fmt.Sprintf("Sorry, that time is no longer available. Does the block %s with %s on %s work for you?", block, technician, date)
}

func replyConfirmed(technician, date, block, address string) string {
	return fmt.Sprintf("✅ Appointment confirmed for %s at %s with %s at %s!", date, block, technician, address)
}
