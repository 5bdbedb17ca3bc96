package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// PgxPool is the subset of *pgxpool.Pool the store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists customers, technicians and appointments in Postgres.
type PostgresStore struct {
	pool   PgxPool
	tracer trace.Tracer
}

var (
	_ Store               = (*PostgresStore)(nil)
	_ AppointmentFilterer = (*PostgresStore)(nil)
)

func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		return nil
	}
	return &PostgresStore{
		pool:   pool,
		tracer: otel.Tracer("fieldservice.internal.records.postgres"),
	}
}

const customerColumns = `id, phone, name, service_type, service_description, address, dialogue_state, contacted`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Phone, &c.Name, &c.ServiceType, &c.ServiceDescription, &c.Address, &c.State, &c.Contacted)
	return c, err
}

func (s *PostgresStore) FindByPhone(ctx context.Context, phone string) (*Customer, error) {
	ctx, span := s.tracer.Start(ctx, "records.customers.find_by_phone")
	defer span.End()

	query := `SELECT ` + customerColumns + ` FROM customers WHERE phone = $1 LIMIT 1`
	c, err := scanCustomer(s.pool.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("records: find customer by phone: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) ListCustomers(ctx context.Context) ([]Customer, error) {
	ctx, span := s.tracer.Start(ctx, "records.customers.list")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at, id`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("records: list customers: %w", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("records: scan customer: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: list customers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateCustomer(ctx context.Context, id string, patch CustomerPatch) error {
	if patch.Empty() {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "records.customers.update")
	defer span.End()

	sets := make([]string, 0, 2)
	args := make([]any, 0, 3)
	args = append(args, id)
	if patch.State != nil {
		args = append(args, *patch.State)
		sets = append(sets, fmt.Sprintf("dialogue_state = $%d", len(args)))
	}
	if patch.Contacted != nil {
		args = append(args, *patch.Contacted)
		sets = append(sets, fmt.Sprintf("contacted = $%d", len(args)))
	}
	query := `UPDATE customers SET ` + strings.Join(sets, ", ") + `, updated_at = now() WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("records: update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (s *PostgresStore) ListTechnicians(ctx context.Context) ([]Technician, error) {
	ctx, span := s.tracer.Start(ctx, "records.technicians.list")
	defer span.End()

	rows, err := s.pool.Query(ctx, `
		SELECT name, capabilities, morning_hours, afternoon_hours, blocked_date
		FROM technicians
		ORDER BY position, name
	`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("records: list technicians: %w", err)
	}
	defer rows.Close()

	var out []Technician
	for rows.Next() {
		var (
			t   Technician
			raw []byte
		)
		if err := rows.Scan(&t.Name, &raw, &t.MorningHours, &t.AfternoonHours, &t.BlockedDate); err != nil {
			return nil, fmt.Errorf("records: scan technician: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &t.Capabilities); err != nil {
				return nil, fmt.Errorf("records: decode capabilities for %s: %w", t.Name, err)
			}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: list technicians: %w", err)
	}
	return out, nil
}

const appointmentColumns = `id, phone, customer_name, service_type, service_description, technician_name, slot, address, created_at`

func (s *PostgresStore) scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()
	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.Phone, &a.CustomerName, &a.ServiceType, &a.ServiceDescription,
			&a.TechnicianName, &a.Slot, &a.Address, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("records: scan appointment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: list appointments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListAppointments(ctx context.Context) ([]Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "records.appointments.list")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY created_at`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("records: list appointments: %w", err)
	}
	return s.scanAppointments(rows)
}

// ListAppointmentsFor returns the appointments of one technician on one date.
func (s *PostgresStore) ListAppointmentsFor(ctx context.Context, technician, date string) ([]Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "records.appointments.list_for")
	defer span.End()

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE technician_name = $1 AND slot LIKE $2 ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query, technician, date+" %")
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("records: list appointments for technician: %w", err)
	}
	return s.scanAppointments(rows)
}

func (s *PostgresStore) InsertAppointment(ctx context.Context, appt *Appointment) error {
	if err := validateAppointment(appt); err != nil {
		return err
	}
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	ctx, span := s.tracer.Start(ctx, "records.appointments.insert")
	defer span.End()

	query := `
		INSERT INTO appointments (id, phone, customer_name, service_type, service_description, technician_name, slot, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := s.pool.QueryRow(ctx, query, appt.ID, appt.Phone, appt.CustomerName, appt.ServiceType,
		appt.ServiceDescription, appt.TechnicianName, appt.Slot, appt.Address).Scan(&appt.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("records: insert appointment: %w", err)
	}
	return nil
}
