package dispatch

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/fieldservice-scheduler/internal/records"
	"github.com/wolfman30/fieldservice-scheduler/internal/schedule"
	"github.com/wolfman30/fieldservice-scheduler/pkg/logging"
)

// DateLayout is the date format used on appointments and proposals.
const DateLayout = "2006-01-02"

// DefaultSearchDays caps how many business days the ranker looks ahead.
const DefaultSearchDays = 10

// Offer is a technician's earliest open block on the first qualifying day.
type Offer struct {
	Technician     string
	Block          string
	Date           string
	MorningHours   string
	AfternoonHours string
}

// Proposal returns the offer as a proposal awaiting confirmation.
func (o Offer) Proposal() Proposal {
	return Proposal{Technician: o.Technician, Date: o.Date, Block: o.Block}
}

// Ranker selects compatible technicians for a service, ordered by fairness rank.
type Ranker struct {
	technicians  records.TechnicianStore
	availability *Availability
	fairness     FairnessStore
	generator    *schedule.Generator
	searchDays   int
	now          func() time.Time
	logger       *logging.Logger
}

// RankerOption customizes a Ranker.
type RankerOption func(*Ranker)

// WithClock overrides the time source used to pick "tomorrow".
func WithClock(now func() time.Time) RankerOption {
	return func(r *Ranker) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSearchDays overrides the business-day search horizon.
func WithSearchDays(days int) RankerOption {
	return func(r *Ranker) {
		if days > 0 {
			r.searchDays = days
		}
	}
}

func NewRanker(technicians records.TechnicianStore, availability *Availability, fairness FairnessStore, generator *schedule.Generator, logger *logging.Logger, opts ...RankerOption) *Ranker {
	if logger == nil {
		logger = logging.Default()
	}
	if fairness == nil {
		fairness = NewMemoryFairnessStore()
	}
	if generator == nil {
		generator = schedule.NewGenerator(schedule.DefaultLunchStart, logger)
	}
	r := &Ranker{
		technicians:  technicians,
		availability: availability,
		fairness:     fairness,
		generator:    generator,
		searchDays:   DefaultSearchDays,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Compatible returns the technicians flagged for serviceType, in store order.
func Compatible(ctx context.Context, store records.TechnicianStore, serviceType string) ([]records.Technician, error) {
	all, err := store.ListTechnicians(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispatch: list technicians: %w", err)
	}
	var out []records.Technician
	for _, t := range all {
		if t.Supports(serviceType) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Offers returns one offer per technician with an open block on the nearest
// business day that any compatible technician can serve. The search starts
// tomorrow, skips weekends and every compatible technician's blocked date, and
// gives up after the configured number of business days.
func (r *Ranker) Offers(ctx context.Context, serviceType string) ([]Offer, error) {
	compatible, err := Compatible(ctx, r.technicians, serviceType)
	if err != nil {
		return nil, err
	}
	if len(compatible) == 0 {
		r.logger.Info("no compatible technicians", "service_type", serviceType)
		return nil, nil
	}

	blockedDates := make(map[string]struct{})
	for _, t := range compatible {
		if d := strings.TrimSpace(t.BlockedDate); d != "" {
			blockedDates[d] = struct{}{}
		}
	}

	day := r.now()
	// Weekends and blocked dates are not attempts; the calendar bound keeps the
	// loop finite whatever the blocked set holds.
	maxCalendarDays := r.searchDays*7 + len(blockedDates) + 7
	for attempts, calendarDays := 0, 0; attempts < r.searchDays && calendarDays < maxCalendarDays; calendarDays++ {
		day = day.AddDate(0, 0, 1)
		date := day.Format(DateLayout)
		if isWeekend(day) {
			continue
		}
		if _, blocked := blockedDates[date]; blocked {
			continue
		}
		attempts++

		offers, err := r.offersOn(ctx, compatible, date)
		if err != nil {
			return nil, err
		}
		if len(offers) == 0 {
			continue
		}

		names := make([]string, len(offers))
		for i, o := range offers {
			names[i] = o.Technician
		}
		if err := r.fairness.AssignIfAbsent(ctx, names); err != nil {
			return nil, err
		}
		r.logger.Debug("technician offers found", "service_type", serviceType, "date", date, "count", len(offers))
		return offers, nil
	}

	r.logger.Info("no technician availability within horizon", "service_type", serviceType, "days", r.searchDays)
	return nil, nil
}

func (r *Ranker) offersOn(ctx context.Context, compatible []records.Technician, date string) ([]Offer, error) {
	ranks, err := r.fairness.Ranks(ctx)
	if err != nil {
		return nil, err
	}
	ordered := make([]records.Technician, len(compatible))
	copy(ordered, compatible)
	rankOf := func(name string) int {
		if rank, ok := ranks[name]; ok {
			return rank
		}
		return math.MaxInt
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return rankOf(ordered[i].Name) < rankOf(ordered[j].Name)
	})

	var offers []Offer
	for _, t := range ordered {
		if t.IsBlockedOn(date) {
			continue
		}
		blocks := schedule.Strings(r.generator.DayBlocks(t.MorningHours, t.AfternoonHours))
		if len(blocks) == 0 {
			continue
		}
		booked, err := r.availability.BookedBlocks(ctx, t.Name, date)
		if err != nil {
			return nil, err
		}
		block, ok := firstOpen(blocks, booked)
		if !ok {
			continue
		}
		offers = append(offers, Offer{
			Technician:     t.Name,
			Block:          block,
			Date:           date,
			MorningHours:   strings.TrimSpace(t.MorningHours),
			AfternoonHours: strings.TrimSpace(t.AfternoonHours),
		})
	}
	return offers, nil
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
