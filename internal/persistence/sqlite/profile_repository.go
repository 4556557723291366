package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/medtracker/internal/persistence"
)

// ProfileRepository implements persistence.ProfileRepository using SQLite
type ProfileRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewProfileRepository creates a new SQLite profile repository
func NewProfileRepository(pool *ConnectionPool) *ProfileRepository {
	return &ProfileRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const profileColumns = `id, account_id, name, date_of_birth, is_primary, language, alarm_enabled, created_at, updated_at`

// CreateProfile inserts a new profile
func (r *ProfileRepository) CreateProfile(ctx context.Context, profile persistence.Profile) error {
	if profile.ID == "" || profile.AccountID == "" || strings.TrimSpace(profile.Name) == "" {
		return persistence.ErrConstraintViolation
	}
	if profile.Language == "" {
		profile.Language = "en"
	}
	profile.CreatedAt = stampOr(profile.CreatedAt)
	profile.UpdatedAt = stampOr(profile.UpdatedAt)

	_, err := r.helper.Exec(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		profile.ID,
		profile.AccountID,
		strings.TrimSpace(profile.Name),
		nullDate(profile.DateOfBirth),
		profile.IsPrimary,
		profile.Language,
		profile.AlarmEnabled,
		formatTimestamp(profile.CreatedAt),
		formatTimestamp(profile.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateProfile rewrites the editable profile fields
func (r *ProfileRepository) UpdateProfile(ctx context.Context, profile persistence.Profile) error {
	if profile.ID == "" || strings.TrimSpace(profile.Name) == "" {
		return persistence.ErrConstraintViolation
	}
	profile.UpdatedAt = stampOr(profile.UpdatedAt)

	result, err := r.helper.Exec(ctx, `
		UPDATE profiles
		SET name = ?, date_of_birth = ?, is_primary = ?, language = ?, alarm_enabled = ?, updated_at = ?
		WHERE id = ?
	`,
		strings.TrimSpace(profile.Name),
		nullDate(profile.DateOfBirth),
		profile.IsPrimary,
		profile.Language,
		profile.AlarmEnabled,
		formatTimestamp(profile.UpdatedAt),
		profile.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetProfile retrieves a profile by ID
func (r *ProfileRepository) GetProfile(ctx context.Context, id string) (persistence.Profile, error) {
	if id == "" {
		return persistence.Profile{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	return r.scanProfile(row)
}

// ListProfiles returns the account's profiles, primary first
func (r *ProfileRepository) ListProfiles(ctx context.Context, accountID string) ([]persistence.Profile, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE account_id = ?
		ORDER BY is_primary DESC, created_at ASC, id ASC
	`, accountID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var profiles []persistence.Profile
	for rows.Next() {
		profile, err := r.scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return profiles, nil
}

// DeleteProfile removes a profile and, by cascade, its medications,
// dose logs and appointments
func (r *ProfileRepository) DeleteProfile(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *ProfileRepository) scanProfile(row rowScanner) (persistence.Profile, error) {
	var (
		profile              persistence.Profile
		dateOfBirth          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&profile.ID,
		&profile.AccountID,
		&profile.Name,
		&dateOfBirth,
		&profile.IsPrimary,
		&profile.Language,
		&profile.AlarmEnabled,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Profile{}, r.mapper.MapError(err)
	}

	var err error
	if profile.DateOfBirth, err = parseNullDate("date_of_birth", dateOfBirth); err != nil {
		return persistence.Profile{}, err
	}
	if profile.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.Profile{}, err
	}
	if profile.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.Profile{}, err
	}
	return profile, nil
}
