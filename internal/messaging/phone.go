package messaging

import "strings"

const whatsAppPrefix = "whatsapp:"

// NormalizePhone strips the WhatsApp channel prefix and surrounding spaces so
// the number matches the customer record.
func NormalizePhone(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= len(whatsAppPrefix) && strings.EqualFold(value[:len(whatsAppPrefix)], whatsAppPrefix) {
		value = value[len(whatsAppPrefix):]
	}
	return strings.TrimSpace(value)
}

// WhatsAppAddress formats a phone number as a Twilio WhatsApp address.
func WhatsAppAddress(phone string) string {
	phone = NormalizePhone(phone)
	if phone == "" {
		return ""
	}
	return whatsAppPrefix + phone
}
