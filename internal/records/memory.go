package records

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a Store kept in process memory. It backs local runs
// without DATABASE_URL and the test suites.
type InMemoryStore struct {
	mu           sync.RWMutex
	customers    map[string]*Customer
	order        []string
	technicians  []Technician
	appointments []Appointment
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		customers: make(map[string]*Customer),
	}
}

// AddCustomer inserts or replaces a customer, generating an ID if needed.
func (s *InMemoryStore) AddCustomer(c Customer) Customer {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.customers[c.ID]; !exists {
		s.order = append(s.order, c.ID)
	}
	stored := c
	s.customers[c.ID] = &stored
	return c
}

// AddTechnician appends a technician; list order is insertion order.
func (s *InMemoryStore) AddTechnician(t Technician) {
	t.Capabilities = maps.Clone(t.Capabilities)
	s.mu.Lock()
	s.technicians = append(s.technicians, t)
	s.mu.Unlock()
}

func (s *InMemoryStore) FindByPhone(ctx context.Context, phone string) (*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if c := s.customers[id]; c.Phone == phone {
			found := *c
			return &found, nil
		}
	}
	return nil, ErrCustomerNotFound
}

func (s *InMemoryStore) ListCustomers(ctx context.Context) ([]Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Customer, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.customers[id])
	}
	return out, nil
}

func (s *InMemoryStore) UpdateCustomer(ctx context.Context, id string, patch CustomerPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return ErrCustomerNotFound
	}
	if patch.State != nil {
		c.State = *patch.State
	}
	if patch.Contacted != nil {
		c.Contacted = *patch.Contacted
	}
	return nil
}

func (s *InMemoryStore) ListTechnicians(ctx context.Context) ([]Technician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Technician, len(s.technicians))
	for i, t := range s.technicians {
		t.Capabilities = maps.Clone(t.Capabilities)
		out[i] = t
	}
	return out, nil
}

func (s *InMemoryStore) ListAppointments(ctx context.Context) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Appointment, len(s.appointments))
	copy(out, s.appointments)
	return out, nil
}

func (s *InMemoryStore) InsertAppointment(ctx context.Context, appt *Appointment) error {
	if err := validateAppointment(appt); err != nil {
		return err
	}
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.appointments = append(s.appointments, *appt)
	s.mu.Unlock()
	return nil
}
