package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/fieldservice-scheduler/internal/records"
	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

// BookingNotifier emails a summary of each committed appointment to the
// dispatch office.
type BookingNotifier struct {
	email     EmailSender
	recipient string
	logger    *logging.Logger
}

// NewBookingNotifier returns nil when there is no sender or recipient, so
// callers can skip notification with a nil check.
func NewBookingNotifier(email EmailSender, recipient string, logger *logging.Logger) *BookingNotifier {
	if email == nil || strings.TrimSpace(recipient) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingNotifier{email: email, recipient: strings.TrimSpace(recipient), logger: logger}
}

// AppointmentBooked sends the booking summary.
func (n *BookingNotifier) AppointmentBooked(ctx context.Context, appt records.Appointment) error {
	if n == nil {
		return nil
	}
	msg := EmailMessage{
		To:      n.recipient,
		ToName:  "Dispatch",
		Subject: fmt.Sprintf("New appointment: %s with %s on %s", appt.CustomerName, appt.TechnicianName, appt.Date()),
		Body:    bookingText(appt),
		HTML:    bookingHTML(appt),
	}
	if err := n.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: booking email: %w", err)
	}
	n.logger.Info("booking notification sent", "technician", appt.TechnicianName, "slot", appt.Slot)
	return nil
}

func bookingFields(appt records.Appointment) [][2]string {
	return [][2]string{
		{"Customer", appt.CustomerName},
		{"Phone", appt.Phone},
		{"Service", appt.ServiceType},
		{"Description", truncate(appt.ServiceDescription, 280)},
		{"Technician", appt.TechnicianName},
		{"Date", appt.Date()},
		{"Time", appt.Block()},
		{"Address", appt.Address},
	}
}

func bookingText(appt records.Appointment) string {
	var b strings.Builder
	b.WriteString("A new appointment was booked.\n\n")
	for _, f := range bookingFields(appt) {
		if f[1] == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f[0], f[1])
	}
	return b.String()
}

func bookingHTML(appt records.Appointment) string {
	var b strings.Builder
	b.WriteString("<h2>New appointment booked</h2><table>")
	for _, f := range bookingFields(appt) {
		if f[1] == "" {
			continue
		}
		fmt.Fprintf(&b, "<tr><td><strong>%s</strong></td><td>%s</td></tr>", f[0], html.EscapeString(f[1]))
	}
	b.WriteString("</table>")
	return b.String()
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
