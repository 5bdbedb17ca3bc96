// Package outreach contacts every customer who has not been reached yet with
// the scheduling template and moves them into the booking dialogue.
package outreach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/wolfman30/fieldservice-scheduler/internal/conversation"
	"github.com/wolfman30/fieldservice-scheduler/internal/observability/metrics"
	"github.com/wolfman30/fieldservice-scheduler/internal/records"
	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

// DefaultInterval is the pause between two sends.
const DefaultInterval = 2 * time.Second

// ErrSweepRunning is returned when a sweep is requested while one is active.
var ErrSweepRunning = errors.New("outreach: sweep already running")

// Notifier delivers the outreach message to one customer.
type Notifier interface {
	Notify(ctx context.Context, c records.Customer) error
}

// Result summarizes one sweep.
type Result struct {
	Pending int
	Sent    int
	Failed  int
}

// Sweeper sends the outreach template to uncontacted customers, one at a time
// and no faster than the configured interval.
type Sweeper struct {
	customers records.CustomerStore
	notifier  Notifier
	limiter   *rate.Limiter
	metrics   *metrics.SchedulerMetrics
	logger    *logging.Logger

	running chan struct{}
}

// NewSweeper builds a sweeper. A non-positive interval disables throttling.
func NewSweeper(customers records.CustomerStore, notifier Notifier, interval time.Duration, m *metrics.SchedulerMetrics, logger *logging.Logger) *Sweeper {
	if customers == nil {
		panic("outreach: customer store cannot be nil")
	}
	if notifier == nil {
		panic("outreach: notifier cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Sweeper{
		customers: customers,
		notifier:  notifier,
		limiter:   rate.NewLimiter(limit, 1),
		metrics:   m,
		logger:    logger,
		running:   make(chan struct{}, 1),
	}
}

// Run contacts every customer whose contacted flag is false. A failed send
// leaves the customer uncontacted so the next sweep retries them.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	select {
	case s.running <- struct{}{}:
		defer func() { <-s.running }()
	default:
		return Result{}, ErrSweepRunning
	}

	all, err := s.customers.ListCustomers(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("outreach: list customers: %w", err)
	}

	var res Result
	for _, c := range all {
		if c.Contacted {
			continue
		}
		res.Pending++

		if err := s.limiter.Wait(ctx); err != nil {
			return res, fmt.Errorf("outreach: sweep interrupted: %w", err)
		}
		if err := s.contact(ctx, c); err != nil {
			res.Failed++
			s.logger.Error("outreach: contact failed", "customer_id", c.ID, "phone", c.Phone, "error", err)
			continue
		}
		res.Sent++
	}

	s.logger.Info("outreach: sweep finished", "pending", res.Pending, "sent", res.Sent, "failed", res.Failed)
	return res, nil
}

func (s *Sweeper) contact(ctx context.Context, c records.Customer) error {
	if err := s.notifier.Notify(ctx, c); err != nil {
		s.metrics.ObserveOutreach("send_failed")
		return fmt.Errorf("send: %w", err)
	}

	state := string(conversation.StateAwaitingScheduleConfirmation)
	contacted := true
	if err := s.customers.UpdateCustomer(ctx, c.ID, records.CustomerPatch{State: &state, Contacted: &contacted}); err != nil {
		s.metrics.ObserveOutreach("update_failed")
		return fmt.Errorf("mark contacted: %w", err)
	}
	s.metrics.ObserveOutreach("sent")
	return nil
}
