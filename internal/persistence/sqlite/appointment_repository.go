package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/medtracker/internal/persistence"
)

// AppointmentRepository implements persistence.AppointmentRepository using SQLite
type AppointmentRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAppointmentRepository creates a new SQLite appointment repository
func NewAppointmentRepository(pool *ConnectionPool) *AppointmentRepository {
	return &AppointmentRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const appointmentColumns = `id, profile_id, title, appointment_date, appointment_time, location, notes, reminded, created_at, updated_at`

// CreateAppointment inserts a new appointment
func (r *AppointmentRepository) CreateAppointment(ctx context.Context, appointment persistence.Appointment) error {
	if appointment.ID == "" || appointment.ProfileID == "" || strings.TrimSpace(appointment.Title) == "" {
		return persistence.ErrConstraintViolation
	}
	if appointment.Date.IsZero() {
		return persistence.ErrConstraintViolation
	}
	appointment.CreatedAt = stampOr(appointment.CreatedAt)
	appointment.UpdatedAt = stampOr(appointment.UpdatedAt)

	_, err := r.helper.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		appointment.ID,
		appointment.ProfileID,
		strings.TrimSpace(appointment.Title),
		appointment.Date.Format(dateLayout),
		nullString(appointment.Time),
		appointment.Location,
		nullString(appointment.Notes),
		appointment.Reminded,
		formatTimestamp(appointment.CreatedAt),
		formatTimestamp(appointment.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateAppointment rewrites the editable appointment fields
func (r *AppointmentRepository) UpdateAppointment(ctx context.Context, appointment persistence.Appointment) error {
	if appointment.ID == "" || strings.TrimSpace(appointment.Title) == "" || appointment.Date.IsZero() {
		return persistence.ErrConstraintViolation
	}
	appointment.UpdatedAt = stampOr(appointment.UpdatedAt)

	result, err := r.helper.Exec(ctx, `
		UPDATE appointments
		SET title = ?, appointment_date = ?, appointment_time = ?, location = ?, notes = ?,
			reminded = ?, updated_at = ?
		WHERE id = ?
	`,
		strings.TrimSpace(appointment.Title),
		appointment.Date.Format(dateLayout),
		nullString(appointment.Time),
		appointment.Location,
		nullString(appointment.Notes),
		appointment.Reminded,
		formatTimestamp(appointment.UpdatedAt),
		appointment.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetAppointment retrieves an appointment by ID
func (r *AppointmentRepository) GetAppointment(ctx context.Context, id string) (persistence.Appointment, error) {
	if id == "" {
		return persistence.Appointment{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	return r.scanAppointment(row)
}

// ListAppointments returns a profile's appointments by date then time.
// Appointments without a time sort first within their day.
func (r *AppointmentRepository) ListAppointments(ctx context.Context, profileID string) ([]persistence.Appointment, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE profile_id = ?
		ORDER BY appointment_date ASC, COALESCE(appointment_time, '') ASC, created_at ASC
	`, profileID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var appointments []persistence.Appointment
	for rows.Next() {
		appointment, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return appointments, nil
}

// DeleteAppointment removes an appointment
func (r *AppointmentRepository) DeleteAppointment(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *AppointmentRepository) scanAppointment(row rowScanner) (persistence.Appointment, error) {
	var (
		appointment          persistence.Appointment
		date                 string
		clock, notes         sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&appointment.ID,
		&appointment.ProfileID,
		&appointment.Title,
		&date,
		&clock,
		&appointment.Location,
		&notes,
		&appointment.Reminded,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Appointment{}, r.mapper.MapError(err)
	}

	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return persistence.Appointment{}, fmt.Errorf("failed to parse appointment_date: %w", err)
	}
	appointment.Date = parsed
	appointment.Time = stringPtr(clock)
	appointment.Notes = stringPtr(notes)

	if appointment.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.Appointment{}, err
	}
	if appointment.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.Appointment{}, err
	}
	return appointment, nil
}
