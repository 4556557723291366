package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/medtracker/internal/persistence"
)

// MedicationRepository implements persistence.MedicationRepository using SQLite
type MedicationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMedicationRepository creates a new SQLite medication repository
func NewMedicationRepository(pool *ConnectionPool) *MedicationRepository {
	return &MedicationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const medicationColumns = `id, profile_id, name, dosage, frequency, frequency_type, meal_times, custom_times, notes, active, created_at, updated_at`

// CreateMedication inserts a new medication
func (r *MedicationRepository) CreateMedication(ctx context.Context, medication persistence.Medication) error {
	if medication.ID == "" || medication.ProfileID == "" || strings.TrimSpace(medication.Name) == "" {
		return persistence.ErrConstraintViolation
	}
	if medication.FrequencyType == "" {
		medication.FrequencyType = "regular"
	}
	mealTimes, customTimes, err := encodeSchedule(medication)
	if err != nil {
		return err
	}
	medication.CreatedAt = stampOr(medication.CreatedAt)
	medication.UpdatedAt = stampOr(medication.UpdatedAt)

	_, err = r.helper.Exec(ctx, `
		INSERT INTO medications (`+medicationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		medication.ID,
		medication.ProfileID,
		strings.TrimSpace(medication.Name),
		medication.Dosage,
		medication.Frequency,
		medication.FrequencyType,
		mealTimes,
		customTimes,
		nullString(medication.Notes),
		medication.Active,
		formatTimestamp(medication.CreatedAt),
		formatTimestamp(medication.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateMedication rewrites the editable medication fields
func (r *MedicationRepository) UpdateMedication(ctx context.Context, medication persistence.Medication) error {
	if medication.ID == "" || strings.TrimSpace(medication.Name) == "" {
		return persistence.ErrConstraintViolation
	}
	if medication.FrequencyType == "" {
		medication.FrequencyType = "regular"
	}
	mealTimes, customTimes, err := encodeSchedule(medication)
	if err != nil {
		return err
	}
	medication.UpdatedAt = stampOr(medication.UpdatedAt)

	result, err := r.helper.Exec(ctx, `
		UPDATE medications
		SET name = ?, dosage = ?, frequency = ?, frequency_type = ?, meal_times = ?,
			custom_times = ?, notes = ?, active = ?, updated_at = ?
		WHERE id = ?
	`,
		strings.TrimSpace(medication.Name),
		medication.Dosage,
		medication.Frequency,
		medication.FrequencyType,
		mealTimes,
		customTimes,
		nullString(medication.Notes),
		medication.Active,
		formatTimestamp(medication.UpdatedAt),
		medication.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetMedication retrieves a medication by ID, active or not
func (r *MedicationRepository) GetMedication(ctx context.Context, id string) (persistence.Medication, error) {
	if id == "" {
		return persistence.Medication{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+medicationColumns+` FROM medications WHERE id = ?`, id)
	return r.scanMedication(row)
}

// ListMedications returns a profile's medications in creation order
func (r *MedicationRepository) ListMedications(ctx context.Context, filter persistence.MedicationFilter) ([]persistence.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE profile_id = ?`
	args := []any{filter.ProfileID}
	if filter.ActiveOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var medications []persistence.Medication
	for rows.Next() {
		medication, err := r.scanMedication(rows)
		if err != nil {
			return nil, err
		}
		medications = append(medications, medication)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return medications, nil
}

// SetMedicationActive flips the active flag. Deactivation keeps the row
// and its dose history.
func (r *MedicationRepository) SetMedicationActive(ctx context.Context, id string, active bool, at time.Time) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE medications SET active = ?, updated_at = ? WHERE id = ?
	`, active, formatTimestamp(stampOr(at)), id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *MedicationRepository) scanMedication(row rowScanner) (persistence.Medication, error) {
	var (
		medication             persistence.Medication
		mealTimes, customTimes string
		notes                  sql.NullString
		createdAt, updatedAt   string
	)
	if err := row.Scan(
		&medication.ID,
		&medication.ProfileID,
		&medication.Name,
		&medication.Dosage,
		&medication.Frequency,
		&medication.FrequencyType,
		&mealTimes,
		&customTimes,
		&notes,
		&medication.Active,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Medication{}, r.mapper.MapError(err)
	}

	if err := json.Unmarshal([]byte(mealTimes), &medication.MealTimes); err != nil {
		return persistence.Medication{}, fmt.Errorf("failed to decode meal_times: %w", err)
	}
	if err := json.Unmarshal([]byte(customTimes), &medication.CustomTimes); err != nil {
		return persistence.Medication{}, fmt.Errorf("failed to decode custom_times: %w", err)
	}
	medication.Notes = stringPtr(notes)

	var err error
	if medication.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.Medication{}, err
	}
	if medication.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.Medication{}, err
	}
	return medication, nil
}

func encodeSchedule(medication persistence.Medication) (string, string, error) {
	mealTimes := medication.MealTimes
	if mealTimes == nil {
		mealTimes = []string{}
	}
	customTimes := medication.CustomTimes
	if customTimes == nil {
		customTimes = map[string]string{}
	}
	encodedMeals, err := json.Marshal(mealTimes)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode meal_times: %w", err)
	}
	encodedCustom, err := json.Marshal(customTimes)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode custom_times: %w", err)
	}
	return string(encodedMeals), string(encodedCustom), nil
}
