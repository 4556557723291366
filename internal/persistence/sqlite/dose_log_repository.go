package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/medtracker/internal/persistence"
)

// DoseLogRepository implements persistence.DoseLogRepository using SQLite
type DoseLogRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewDoseLogRepository creates a new SQLite dose log repository
func NewDoseLogRepository(pool *ConnectionPool) *DoseLogRepository {
	return &DoseLogRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const doseLogColumns = `id, medication_id, scheduled_time, meal_period, taken_at, missed_at, status, notes, created_at, updated_at`

// scheduledDay is the calendar date of the dose in the zone it was
// scheduled in. It keys the one-log-per-slot index.
func scheduledDay(t time.Time) string {
	return t.Format(dateLayout)
}

// ListDoseLogs returns logs for the given medications whose scheduled time
// falls within the inclusive filter window, oldest first.
func (r *DoseLogRepository) ListDoseLogs(ctx context.Context, filter persistence.DoseLogFilter) ([]persistence.DoseLog, error) {
	if len(filter.MedicationIDs) == 0 {
		return nil, nil
	}

	var (
		conditions []string
		args       []any
	)
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.MedicationIDs)), ",")
	conditions = append(conditions, "medication_id IN ("+placeholders+")")
	for _, id := range filter.MedicationIDs {
		args = append(args, id)
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "scheduled_time >= ?")
		args = append(args, formatTimestamp(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "scheduled_time <= ?")
		args = append(args, formatTimestamp(filter.To))
	}

	rows, err := r.helper.Query(ctx, `
		SELECT `+doseLogColumns+`
		FROM dose_logs
		WHERE `+strings.Join(conditions, " AND ")+`
		ORDER BY created_at ASC, id ASC
	`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var logs []persistence.DoseLog
	for rows.Next() {
		log, err := r.scanDoseLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return logs, nil
}

// CreateDoseLog inserts a log. A second log for the same medication,
// day and meal period fails with persistence.ErrDuplicate.
func (r *DoseLogRepository) CreateDoseLog(ctx context.Context, log persistence.DoseLog) error {
	if err := validateDoseLog(log); err != nil {
		return err
	}
	log.CreatedAt = stampOr(log.CreatedAt)
	log.UpdatedAt = stampOr(log.UpdatedAt)

	_, err := r.helper.Exec(ctx, `
		INSERT INTO dose_logs (id, medication_id, scheduled_time, scheduled_day, meal_period,
			taken_at, missed_at, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		log.ID,
		log.MedicationID,
		formatTimestamp(log.ScheduledTime),
		scheduledDay(log.ScheduledTime),
		log.MealPeriod,
		nullTimestamp(log.TakenAt),
		nullTimestamp(log.MissedAt),
		log.Status,
		nullString(log.Notes),
		formatTimestamp(log.CreatedAt),
		formatTimestamp(log.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpsertDoseLog inserts a log or, when the slot already has one, merges the
// new status into it. Existing timestamps survive when the incoming log
// leaves them unset. The stored row is returned.
func (r *DoseLogRepository) UpsertDoseLog(ctx context.Context, log persistence.DoseLog) (persistence.DoseLog, error) {
	if err := validateDoseLog(log); err != nil {
		return persistence.DoseLog{}, err
	}
	log.CreatedAt = stampOr(log.CreatedAt)
	log.UpdatedAt = stampOr(log.UpdatedAt)
	day := scheduledDay(log.ScheduledTime)

	var stored persistence.DoseLog
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dose_logs (id, medication_id, scheduled_time, scheduled_day, meal_period,
				taken_at, missed_at, status, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (medication_id, scheduled_day, meal_period) DO UPDATE SET
				status = excluded.status,
				taken_at = COALESCE(excluded.taken_at, dose_logs.taken_at),
				missed_at = COALESCE(excluded.missed_at, dose_logs.missed_at),
				notes = COALESCE(excluded.notes, dose_logs.notes),
				updated_at = excluded.updated_at
		`,
			log.ID,
			log.MedicationID,
			formatTimestamp(log.ScheduledTime),
			day,
			log.MealPeriod,
			nullTimestamp(log.TakenAt),
			nullTimestamp(log.MissedAt),
			log.Status,
			nullString(log.Notes),
			formatTimestamp(log.CreatedAt),
			formatTimestamp(log.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		row := tx.QueryRowContext(ctx, `
			SELECT `+doseLogColumns+`
			FROM dose_logs
			WHERE medication_id = ? AND scheduled_day = ? AND meal_period = ?
		`, log.MedicationID, day, log.MealPeriod)
		stored, err = r.scanDoseLog(row)
		return err
	})
	if err != nil {
		return persistence.DoseLog{}, err
	}
	return stored, nil
}

// UpdateDoseLog writes only the fields named in patch and returns the
// updated row.
func (r *DoseLogRepository) UpdateDoseLog(ctx context.Context, id string, patch persistence.DoseLogPatch, at time.Time) (persistence.DoseLog, error) {
	if id == "" {
		return persistence.DoseLog{}, persistence.ErrNotFound
	}

	var (
		assignments []string
		args        []any
	)
	if patch.Status != nil {
		assignments = append(assignments, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.TakenAt != nil {
		assignments = append(assignments, "taken_at = ?")
		args = append(args, formatTimestamp(*patch.TakenAt))
	}
	if patch.MissedAt != nil {
		assignments = append(assignments, "missed_at = ?")
		args = append(args, formatTimestamp(*patch.MissedAt))
	}
	assignments = append(assignments, "updated_at = ?")
	args = append(args, formatTimestamp(stampOr(at)), id)

	var updated persistence.DoseLog
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE dose_logs SET `+strings.Join(assignments, ", ")+` WHERE id = ?`,
			args...,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx, `SELECT `+doseLogColumns+` FROM dose_logs WHERE id = ?`, id)
		updated, err = r.scanDoseLog(row)
		return err
	})
	if err != nil {
		return persistence.DoseLog{}, err
	}
	return updated, nil
}

func (r *DoseLogRepository) scanDoseLog(row rowScanner) (persistence.DoseLog, error) {
	var (
		log                  persistence.DoseLog
		scheduledTime        string
		takenAt, missedAt    sql.NullString
		notes                sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&log.ID,
		&log.MedicationID,
		&scheduledTime,
		&log.MealPeriod,
		&takenAt,
		&missedAt,
		&log.Status,
		&notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.DoseLog{}, r.mapper.MapError(err)
	}

	log.Notes = stringPtr(notes)

	var err error
	if log.ScheduledTime, err = parseTimestamp("scheduled_time", scheduledTime); err != nil {
		return persistence.DoseLog{}, err
	}
	if log.TakenAt, err = parseNullTimestamp("taken_at", takenAt); err != nil {
		return persistence.DoseLog{}, err
	}
	if log.MissedAt, err = parseNullTimestamp("missed_at", missedAt); err != nil {
		return persistence.DoseLog{}, err
	}
	if log.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.DoseLog{}, err
	}
	if log.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.DoseLog{}, err
	}
	return log, nil
}

func validateDoseLog(log persistence.DoseLog) error {
	if log.ID == "" || log.MedicationID == "" || log.MealPeriod == "" || log.Status == "" {
		return persistence.ErrConstraintViolation
	}
	if log.ScheduledTime.IsZero() {
		return persistence.ErrConstraintViolation
	}
	return nil
}
