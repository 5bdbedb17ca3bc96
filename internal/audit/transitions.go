// Package audit records every persisted dialogue state transition so the
// dispatch office can see how a booking conversation unfolded.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TransitionEvent is one immutable state-change record.
type TransitionEvent struct {
	ID        string
	Phone     string
	FromState string
	ToState   string
	Inbound   string
	Reply     string
	// Tags annotate the transition, e.g. the confirmation outcome.
	Tags      []string
	CreatedAt time.Time
}

// Store writes and reads transition events through database/sql.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordTransition inserts event, filling in ID and CreatedAt when unset.
func (s *Store) RecordTransition(ctx context.Context, event TransitionEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Tags == nil {
		event.Tags = []string{}
	}

	query := `
		INSERT INTO conversation_events (
			id, phone, from_state, to_state, inbound, reply, tags, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Phone,
		event.FromState,
		event.ToState,
		event.Inbound,
		event.Reply,
		pq.Array(event.Tags),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: record transition: %w", err)
	}
	return nil
}

// ListByPhone returns the newest events for phone first. When toStates is not
// empty only transitions into one of those states are returned.
func (s *Store) ListByPhone(ctx context.Context, phone string, toStates []string, limit int) ([]TransitionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, phone, from_state, to_state, inbound, reply, tags, created_at
		FROM conversation_events
		WHERE phone = $1 AND (cardinality($2::text[]) = 0 OR to_state = ANY($2))
		ORDER BY created_at DESC
		LIMIT $3
	`
	if toStates == nil {
		toStates = []string{}
	}
	rows, err := s.db.QueryContext(ctx, query, phone, pq.Array(toStates), limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list transitions: %w", err)
	}
	defer rows.Close()

	var events []TransitionEvent
	for rows.Next() {
		var e TransitionEvent
		if err := rows.Scan(&e.ID, &e.Phone, &e.FromState, &e.ToState, &e.Inbound, &e.Reply, pq.Array(&e.Tags), &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan transition: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: list transitions: %w", err)
	}
	return events, nil
}
