package sqlite

import (
	"context"
	"strings"

	"github.com/example/medtracker/internal/persistence"
)

// AccountRepository implements persistence.AccountRepository using SQLite
type AccountRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAccountRepository creates a new SQLite account repository
func NewAccountRepository(pool *ConnectionPool) *AccountRepository {
	return &AccountRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const accountColumns = `id, email, display_name, password_hash, created_at, updated_at`

// CreateAccount inserts a new account. Emails are unique case-insensitively.
func (r *AccountRepository) CreateAccount(ctx context.Context, account persistence.Account) error {
	if account.ID == "" || strings.TrimSpace(account.PasswordHash) == "" {
		return persistence.ErrConstraintViolation
	}
	account.Email = normalizeEmail(account.Email)
	if account.Email == "" {
		return persistence.ErrConstraintViolation
	}
	account.CreatedAt = stampOr(account.CreatedAt)
	account.UpdatedAt = stampOr(account.UpdatedAt)

	_, err := r.helper.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		account.ID,
		account.Email,
		account.DisplayName,
		account.PasswordHash,
		formatTimestamp(account.CreatedAt),
		formatTimestamp(account.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetAccount retrieves an account by ID
func (r *AccountRepository) GetAccount(ctx context.Context, id string) (persistence.Account, error) {
	if id == "" {
		return persistence.Account{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return r.scanAccount(row)
}

// GetAccountByEmail retrieves an account by its normalized email
func (r *AccountRepository) GetAccountByEmail(ctx context.Context, email string) (persistence.Account, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return persistence.Account{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, normalized)
	return r.scanAccount(row)
}

func (r *AccountRepository) scanAccount(row rowScanner) (persistence.Account, error) {
	var (
		account            persistence.Account
		createdAt, updated string
	)
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&account.PasswordHash,
		&createdAt,
		&updated,
	); err != nil {
		return persistence.Account{}, r.mapper.MapError(err)
	}

	var err error
	if account.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.Account{}, err
	}
	if account.UpdatedAt, err = parseTimestamp("updated_at", updated); err != nil {
		return persistence.Account{}, err
	}
	return account, nil
}

// normalizeEmail normalizes email addresses for consistent storage and lookup
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
