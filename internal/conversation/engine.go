package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/fieldservice-scheduler/internal/audit"
	"github.com/wolfman30/fieldservice-scheduler/internal/dispatch"
	"github.com/wolfman30/fieldservice-scheduler/internal/observability/metrics"
	"github.com/wolfman30/fieldservice-scheduler/internal/records"
	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

var engineTracer = otel.Tracer("fieldservice.internal.conversation.engine")

// OfferSource ranks technicians for a service type.
type OfferSource interface {
	Offers(ctx context.Context, serviceType string) ([]dispatch.Offer, error)
}

// SlotSource resolves a requested date and time into a proposal.
type SlotSource interface {
	Find(ctx context.Context, serviceType, date, desired string) (dispatch.Proposal, bool, error)
}

// BookingConfirmer commits a proposal unless it was taken meanwhile.
type BookingConfirmer interface {
	Confirm(ctx context.Context, customer records.Customer, p dispatch.Proposal) (dispatch.Confirmation, error)
}

// TransitionRecorder persists state transitions for auditing.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, event audit.TransitionEvent) error
}

// BookingObserver is told about every committed appointment.
type BookingObserver interface {
	AppointmentBooked(ctx context.Context, appt records.Appointment) error
}

// EngineDeps wires the engine. Customers, Offers, Slots, Confirmer, YesNo and
// DateTime are required; the rest are optional.
type EngineDeps struct {
	Customers records.CustomerStore
	Offers    OfferSource
	Slots     SlotSource
	Confirmer BookingConfirmer
	YesNo     YesNoInterpreter
	DateTime  DateTimeInterpreter

	Sessions SessionStore
	History  HistoryStore
	Audit    TransitionRecorder
	Bookings BookingObserver
	Metrics  *metrics.SchedulerMetrics
	Now      func() time.Time
}

// Reply is the outcome of one inbound message.
type Reply struct {
	Text          string
	From          State
	To            State
	CustomerFound bool
}

// Engine is the conversation state machine.
type Engine struct {
	customers records.CustomerStore
	offers    OfferSource
	slots     SlotSource
	confirmer BookingConfirmer
	yesNo     YesNoInterpreter
	dateTime  DateTimeInterpreter
	sessions  SessionStore
	history   HistoryStore
	audit     TransitionRecorder
	bookings  BookingObserver
	metrics   *metrics.SchedulerMetrics
	now       func() time.Time
	logger    *logging.Logger

	// locks serializes messages from the same phone.
	locks sync.Map
}

func NewEngine(deps EngineDeps, logger *logging.Logger) *Engine {
	switch {
	case deps.Customers == nil:
		panic("conversation: customer store cannot be nil")
	case deps.Offers == nil || deps.Slots == nil || deps.Confirmer == nil:
		panic("conversation: dispatch collaborators cannot be nil")
	case deps.YesNo == nil || deps.DateTime == nil:
		panic("conversation: interpreters cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if deps.Sessions == nil {
		deps.Sessions = NewMemorySessionStore()
	}
	if deps.History == nil {
		deps.History = NewMemoryHistoryStore()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Engine{
		customers: deps.Customers,
		offers:    deps.Offers,
		slots:     deps.Slots,
		confirmer: deps.Confirmer,
		yesNo:     deps.YesNo,
		dateTime:  deps.DateTime,
		sessions:  deps.Sessions,
		history:   deps.History,
		audit:     deps.Audit,
		bookings:  deps.Bookings,
		metrics:   deps.Metrics,
		now:       deps.Now,
		logger:    logger,
	}
}

// turn carries one message through a state handler.
type turn struct {
	customer records.Customer
	phone    string
	message  string
	from     State
	to       State
	tags     []string
}

// Handle processes one inbound message from phone and always returns a reply.
// Store and interpreter failures leave the dialogue state as it was and
// produce a temporarily-unavailable reply.
func (e *Engine) Handle(ctx context.Context, phone, message string) Reply {
	ctx, span := engineTracer.Start(ctx, "conversation.handle")
	defer span.End()

	unlock := e.lock(phone)
	defer unlock()

	message = strings.TrimSpace(message)
	customer, err := e.customers.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, records.ErrCustomerNotFound) {
			e.logger.Info("message from unknown phone", "phone", phone)
			return Reply{Text: replyCustomerNotFound}
		}
		span.RecordError(err)
		e.logger.Error("customer lookup failed", "phone", phone, "error", err)
		return Reply{Text: replyUnavailable}
	}

	state, known := ParseState(customer.State)
	if !known {
		e.logger.Warn("unknown dialogue state", "phone", phone, "state", customer.State)
	}
	span.SetAttributes(attribute.String("fieldservice.state", state.String()))

	t := &turn{customer: *customer, phone: phone, message: message, from: state, to: state}
	reply := Reply{From: state, To: state, CustomerFound: true}

	if IsIdentityQuestion(message) {
		reply.Text = replyIdentity
		return reply
	}

	var text string
	switch state {
	case StateAwaitingScheduleConfirmation:
		text, err = e.handleAwaitingConfirmation(ctx, t)
	case StateProposingAppointment:
		text, err = e.handleProposal(ctx, t)
	case StateAwaitingPreference:
		text, err = e.handlePreference(ctx, t)
	default:
		text = replyDidNotUnderstand
	}
	if err != nil {
		span.RecordError(err)
		e.logger.Error("conversation turn failed", "phone", phone, "state", state.String(), "error", err)
		return Reply{Text: replyUnavailable, From: state, To: t.to, CustomerFound: true}
	}

	reply.Text = text
	reply.To = t.to
	if t.to != t.from {
		e.recordTransition(ctx, t, text)
	}
	return reply
}

func (e *Engine) lock(phone string) func() {
	mu, _ := e.locks.LoadOrStore(phone, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// setState persists next as the customer's dialogue state.
func (e *Engine) setState(ctx context.Context, t *turn, next State) error {
	if next == t.to {
		return nil
	}
	if err := e.customers.UpdateCustomer(ctx, t.customer.ID, records.StatePatch(string(next))); err != nil {
		return err
	}
	t.to = next
	return nil
}

// propose stores p as the pending session and moves to proposing_appointment.
func (e *Engine) propose(ctx context.Context, t *turn, p dispatch.Proposal) error {
	if err := e.sessions.Save(ctx, t.phone, p); err != nil {
		return err
	}
	if err := e.setState(ctx, t, StateProposingAppointment); err != nil {
		if delErr := e.sessions.Delete(ctx, t.phone); delErr != nil {
			e.logger.Warn("failed to drop session after state update error", "phone", t.phone, "error", delErr)
		}
		return err
	}
	return nil
}

// leaveProposal drops the pending session and moves to next.
func (e *Engine) leaveProposal(ctx context.Context, t *turn, next State) error {
	if err := e.setState(ctx, t, next); err != nil {
		return err
	}
	if err := e.sessions.Delete(ctx, t.phone); err != nil {
		e.logger.Warn("failed to delete session", "phone", t.phone, "error", err)
	}
	return nil
}

func (e *Engine) clearHistory(ctx context.Context, phone string) {
	if err := e.history.Clear(ctx, phone); err != nil {
		e.logger.Warn("failed to clear history", "phone", phone, "error", err)
	}
}

func (e *Engine) handleAwaitingConfirmation(ctx context.Context, t *turn) (string, error) {
	history, err := e.history.Append(ctx, t.phone, t.message)
	if err != nil {
		return "", err
	}
	wants, err := e.yesNo.Classify(ctx, SchedulePrompt(history))
	if err != nil {
		return "", err
	}

	if wants {
		offers, err := e.offers.Offers(ctx, t.customer.ServiceType)
		if err != nil {
			return "", err
		}
		if len(offers) == 0 {
			if err := e.setState(ctx, t, StateAwaitingPreference); err != nil {
				return "", err
			}
			e.clearHistory(ctx, t.phone)
			return replyNoTechnicians, nil
		}
		first := offers[0]
		if err := e.propose(ctx, t, first.Proposal()); err != nil {
			return "", err
		}
		e.clearHistory(ctx, t.phone)
		return replyFirstProposal(t.customer.Name, first.Technician, first.Date, first.Block), nil
	}

	if len(strings.Fields(history)) <= 3 {
		return replyScheduleReprompt, nil
	}
	if err := e.setState(ctx, t, StateNone); err != nil {
		return "", err
	}
	e.clearHistory(ctx, t.phone)
	return replyOptOut, nil
}

func (e *Engine) handleProposal(ctx context.Context, t *turn) (string, error) {
	if IsNegation(t.message) || !IsAffirmation(t.message) {
		return e.askPreference(ctx, t)
	}

	p, ok, err := e.sessions.Load(ctx, t.phone)
	if err != nil {
		return "", err
	}
	if !ok || !p.Complete() {
		e.logger.Info("affirmation without pending proposal", "phone", t.phone)
		return e.askPreference(ctx, t)
	}

	res, err := e.confirmer.Confirm(ctx, t.customer, p)
	if err != nil {
		return "", err
	}
	e.metrics.ObserveConfirmation(res.Outcome.String())
	t.tags = append(t.tags, res.Outcome.String())

	switch res.Outcome {
	case dispatch.Conflict:
		alt := res.Alternative
		if err := e.sessions.Save(ctx, t.phone, alt); err != nil {
			return "", err
		}
		return replyAlternative(alt.Technician, alt.Date, alt.Block), nil
	case dispatch.Unavailable:
		if err := e.leaveProposal(ctx, t, StateAwaitingPreference); err != nil {
			return "", err
		}
		return replyNoAlternative, nil
	}

	// The appointment is stored; a failed state write is logged rather than
	// reported, since the booking itself succeeded.
	if err := e.leaveProposal(ctx, t, StateScheduled); err != nil {
		e.logger.Error("appointment committed but state update failed", "phone", t.phone, "error", err)
	}
	e.clearHistory(ctx, t.phone)
	if e.bookings != nil {
		if err := e.bookings.AppointmentBooked(ctx, res.Appointment); err != nil {
			e.logger.Warn("booking notification failed", "phone", t.phone, "error", err)
		}
	}
	return replyConfirmed(p.Technician, p.Date, p.Block, t.customer.Address), nil
}

func (e *Engine) askPreference(ctx context.Context, t *turn) (string, error) {
	if err := e.leaveProposal(ctx, t, StateAwaitingPreference); err != nil {
		return "", err
	}
	return replyAskPreference, nil
}

func (e *Engine) handlePreference(ctx context.Context, t *turn) (string, error) {
	dt, err := e.dateTime.Parse(ctx, t.message, e.now())
	if errors.Is(err, ErrNotUnderstood) {
		return replyDateNotUnderstood, nil
	}
	if err != nil {
		return "", err
	}

	p, found, err := e.slots.Find(ctx, t.customer.ServiceType, dt.Date, dt.Time)
	if err != nil {
		return "", err
	}
	if !found {
		return replyNoAvailabilityOnDay, nil
	}
	if err := e.propose(ctx, t, p); err != nil {
		return "", err
	}
	return replyTargetedProposal(p.Technician, p.Date, p.Block), nil
}

func (e *Engine) recordTransition(ctx context.Context, t *turn, reply string) {
	e.metrics.ObserveTransition(string(t.from), string(t.to))
	e.logger.Info("dialogue state changed", "phone", t.phone, "from", t.from.String(), "to", t.to.String())
	if e.audit == nil {
		return
	}
	err := e.audit.RecordTransition(ctx, audit.TransitionEvent{
		Phone:     t.phone,
		FromState: string(t.from),
		ToState:   string(t.to),
		Inbound:   t.message,
		Reply:     reply,
		Tags:      t.tags,
	})
	if err != nil {
		e.logger.Warn("failed to record transition", "phone", t.phone, "error", err)
	}
}
