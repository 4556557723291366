package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// AccountService coordinates registration, sign-in and session lifecycle.
type AccountService struct {
	accounts       AccountRepository
	profiles       ProfileRepository
	sessions       SessionRepository
	reminders      *ReminderSessions
	hashPassword   PasswordHasher
	verifyPassword PasswordVerifier
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// AccountServiceOptions carries the optional collaborators of an AccountService.
type AccountServiceOptions struct {
	Reminders      *ReminderSessions
	HashPassword   PasswordHasher
	VerifyPassword PasswordVerifier
	IDGenerator    func() string
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAccountService constructs an AccountService with the provided dependencies.
func NewAccountService(accounts AccountRepository, profiles ProfileRepository, sessions SessionRepository, opts AccountServiceOptions) *AccountService {
	if opts.HashPassword == nil {
		opts.HashPassword = Argon2idHasher(DefaultArgon2idParams)
	}
	if opts.VerifyPassword == nil {
		opts.VerifyPassword = VerifyPassword
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = func() string { return "" }
	}
	if opts.TokenGenerator == nil {
		opts.TokenGenerator = opts.IDGenerator
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	return &AccountService{
		accounts:       accounts,
		profiles:       profiles,
		sessions:       sessions,
		reminders:      opts.Reminders,
		hashPassword:   opts.HashPassword,
		verifyPassword: opts.VerifyPassword,
		idGenerator:    opts.IDGenerator,
		tokenGenerator: opts.TokenGenerator,
		now:            opts.Now,
		sessionTTL:     opts.SessionTTL,
		logger:         defaultLogger(opts.Logger),
	}
}

func (s *AccountService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AccountService", operation, attrs...)
}

// Register opens an account together with its primary profile.
func (s *AccountService) Register(ctx context.Context, params RegisterParams) (result RegisterResult, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}
	if s.accounts == nil || s.profiles == nil {
		err = fmt.Errorf("account repositories not configured")
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Register", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"account_id", result.Account.ID,
			"profile_id", result.Profile.ID,
		).InfoContext(ctx, "account registered")
	}()

	vErr := validateRegistration(email, params)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		err = fmt.Errorf("failed to hash password: %w", err)
		return
	}

	now := s.now()
	displayName := strings.TrimSpace(params.DisplayName)
	account := Account{
		ID:          s.idGenerator(),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	account, err = s.accounts.CreateAccount(ctx, AccountCredentials{Account: account, PasswordHash: hash})
	if err != nil {
		err = mapRepoError(err, StoreWrite)
		return
	}

	profileName := strings.TrimSpace(params.ProfileName)
	if profileName == "" {
		profileName = displayName
	}
	profile := Profile{
		ID:           s.idGenerator(),
		AccountID:    account.ID,
		Name:         profileName,
		IsPrimary:    true,
		Language:     LanguageEnglish,
		AlarmEnabled: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile, err = s.profiles.CreateProfile(ctx, profile)
	if err != nil {
		err = mapRepoError(err, StoreWrite)
		return
	}

	result = RegisterResult{Account: account, Profile: profile}
	return
}

// Authenticate validates credentials and issues a new session token.
func (s *AccountService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}
	if s.accounts == nil || s.sessions == nil {
		err = fmt.Errorf("account repositories not configured")
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"account_id", result.Account.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds AccountCredentials
	creds, err = s.accounts.GetAccountCredentialsByEmail(ctx, email)
	if err != nil {
		err = mapRepoError(err, StoreRead)
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if err = s.verifyPassword(creds.PasswordHash, params.Password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	if err = s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		err = mapRepoError(err, StoreWrite)
		return
	}

	session := Session{
		ID:        s.idGenerator(),
		AccountID: creds.Account.ID,
		Token:     s.tokenGenerator(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if session.Token == "" {
		session.Token = session.ID
	}
	session, err = s.sessions.CreateSession(ctx, session)
	if err != nil {
		err = mapRepoError(err, StoreWrite)
		return
	}

	result = AuthenticateResult{Account: creds.Account, Session: session}
	return
}

// ValidateSession resolves a token to the principal it was issued for.
func (s *AccountService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "session validated", "account_id", principal.AccountID)
	}()

	if trimmed == "" {
		err = ErrUnauthorized
		return
	}

	var session Session
	session, err = s.sessions.GetSession(ctx, trimmed)
	if err != nil {
		err = mapRepoError(err, StoreRead)
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}
	if err = checkSessionUsable(session, s.now()); err != nil {
		return
	}

	principal = Principal{
		AccountID: session.AccountID,
		SessionID: session.ID,
		Token:     session.Token,
	}
	if session.ActiveProfileID != nil {
		principal.ActiveProfileID = *session.ActiveProfileID
	}
	return
}

// RevokeSession signs a session out and stops its reminders.
func (s *AccountService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AccountService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrInvalidCredentials
	}
	logger := s.loggerWith(ctx, "RevokeSession")

	session, err := s.sessions.RevokeSession(ctx, trimmed, s.now())
	if err != nil {
		err = mapRepoError(err, StoreWrite)
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	s.reminders.Disarm(session.ID)

	if err := s.sessions.DeleteExpiredSessions(ctx, s.now()); err != nil {
		logger.WarnContext(ctx, "failed to prune expired sessions", "error", err)
	}
	logger.InfoContext(ctx, "session revoked", "session_id", session.ID)
	return nil
}

func checkSessionUsable(session Session, now time.Time) error {
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		return ErrSessionRevoked
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		return ErrSessionExpired
	}
	return nil
}

func validateRegistration(email string, params RegisterParams) *ValidationError {
	vErr := &ValidationError{}
	if email == "" {
		vErr.add("email", "email is required")
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		vErr.add("email", "email is invalid")
	}
	if len(params.Password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if strings.TrimSpace(params.DisplayName) == "" {
		vErr.add("display_name", "display name is required")
	}
	return vErr
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
