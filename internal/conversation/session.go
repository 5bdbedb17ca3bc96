package conversation

import (
	"context"
	"strings"
	"sync"

	"github.com/wolfman30/fieldservice-scheduler/internal/dispatch"
)

// SessionStore keeps the slot proposed to a customer until they accept or
// reject it. Keys are customer phone numbers.
type SessionStore interface {
	Load(ctx context.Context, phone string) (dispatch.Proposal, bool, error)
	Save(ctx context.Context, phone string, p dispatch.Proposal) error
	Delete(ctx context.Context, phone string) error
}

// HistoryStore accumulates a customer's replies while they decide whether to
// schedule, giving the yes/no interpreter more context than the last message.
type HistoryStore interface {
	// Append adds message and returns the accumulated history.
	Append(ctx context.Context, phone, message string) (string, error)
	Clear(ctx context.Context, phone string) error
}

// MemorySessionStore is a process-local SessionStore.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]dispatch.Proposal
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]dispatch.Proposal)}
}

func (s *MemorySessionStore) Load(_ context.Context, phone string) (dispatch.Proposal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.sessions[phone]
	return p, ok, nil
}

func (s *MemorySessionStore) Save(_ context.Context, phone string, p dispatch.Proposal) error {
	s.mu.Lock()
	s.sessions[phone] = p
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	delete(s.sessions, phone)
	s.mu.Unlock()
	return nil
}

// MemoryHistoryStore is a process-local HistoryStore.
type MemoryHistoryStore struct {
	mu      sync.Mutex
	history map[string]string
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{history: make(map[string]string)}
}

func (s *MemoryHistoryStore) Append(_ context.Context, phone, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	joined := strings.TrimSpace(s.history[phone] + " " + strings.TrimSpace(message))
	s.history[phone] = joined
	return joined, nil
}

func (s *MemoryHistoryStore) Clear(_ context.Context, phone string) error {
	s.mu.Lock()
	delete(s.history, phone)
	s.mu.Unlock()
	return nil
}
