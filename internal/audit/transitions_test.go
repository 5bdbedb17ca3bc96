package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RecordTransition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	tests := []struct {
		name    string
		event   TransitionEvent
		execErr error
		wantErr bool
	}{
		{
			name: "proposal",
			event: TransitionEvent{
				Phone:     "+15550001",
				FromState: "awaiting_schedule_confirmation",
				ToState:   "proposing_appointment",
				Inbound:   "yes please",
				Reply:     "Perfect Ana, does an appointment ...",
			},
		},
		{
			name: "committed with tags",
			event: TransitionEvent{
				Phone:     "+15550001",
				FromState: "proposing_appointment",
				ToState:   "scheduled",
				Tags:      []string{"committed"},
			},
		},
		{
			name:    "database error",
			event:   TransitionEvent{Phone: "+1"},
			execErr: errors.New("connection refused"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := mock.ExpectExec("INSERT INTO conversation_events").
				WithArgs(sqlmock.AnyArg(), tt.event.Phone, tt.event.FromState, tt.event.ToState,
					tt.event.Inbound, tt.event.Reply, sqlmock.AnyArg(), sqlmock.AnyArg())
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(1, 1))
			}

			err := store.RecordTransition(context.Background(), tt.event)
			if tt.wantErr {
				assert.ErrorContains(t, err, "audit: record transition")
			} else {
				assert.NoError(t, err)
			}
		})
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListByPhone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 5, 14, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "phone", "from_state", "to_state", "inbound", "reply", "tags", "created_at"}).
		AddRow("e2", "+1", "proposing_appointment", "scheduled", "yes", "confirmed", []byte("{committed}"), now).
		AddRow("e1", "+1", "", "awaiting_schedule_confirmation", "", "", []byte("{}"), now.Add(-time.Hour))
	mock.ExpectQuery("SELECT (.+) FROM conversation_events").
		WithArgs("+1", sqlmock.AnyArg(), 10).
		WillReturnRows(rows)

	events, err := NewStore(db).ListByPhone(context.Background(), "+1", []string{"scheduled", "awaiting_schedule_confirmation"}, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, []string{"committed"}, events[0].Tags)
	assert.Equal(t, "scheduled", events[0].ToState)
	assert.Empty(t, events[1].Tags)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListByPhoneQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM conversation_events").WillReturnError(errors.New("timeout"))

	_, err = NewStore(db).ListByPhone(context.Background(), "+1", nil, 0)
	assert.ErrorContains(t, err, "audit: list transitions")
}
