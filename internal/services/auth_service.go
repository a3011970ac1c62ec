package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bolsya/internal/auth"
	"bolsya/internal/core"
	"bolsya/internal/storage"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
)

var ErrPasswordTooLong = errors.New("password too long")

// Session is the result of a successful registration or login.
type Session struct {
	User      core.User
	Token     string
	ExpiresAt time.Time
}

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	storage *storage.SQLiteRepository
	issuer  *auth.Issuer
	cost    int
}

func NewAuthService(storage *storage.SQLiteRepository, issuer *auth.Issuer) *AuthService {
	return &AuthService{storage: storage, issuer: issuer, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost; values outside bcrypt's range
// are ignored.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		s.cost = cost
	}
	return s
}

// Register creates the user together with the default categories and logs
// them in. A taken email yields core.ErrDuplicateEmail.
func (s *AuthService) Register(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.storage.CreateUser(ctx, email, string(hash))
	if err != nil {
		return Session{}, fmt.Errorf("register: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", user.ID)
	return s.session(user)
}

// Login checks the credentials. Unknown emails and wrong passwords both
// yield core.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, core.ErrInvalidCredentials
	}

	user, err := s.storage.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		// Spend the same time as a real comparison.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		slog.WarnContext(ctx, "Login failed", "reason", "unknown email")
		return Session{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "Login failed", "reason", "wrong password", "user_id", user.ID)
		return Session{}, core.ErrInvalidCredentials
	}

	slog.InfoContext(ctx, "User logged in", "user_id", user.ID)
	return s.session(user)
}

// Me returns the user behind an authenticated request.
func (s *AuthService) Me(ctx context.Context, userID int64) (core.User, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, fmt.Errorf("current user: %w", err)
	}
	return user, nil
}

func (s *AuthService) session(user core.User) (Session, error) {
	token, expires, err := s.issuer.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token, ExpiresAt: expires}, nil
}

func validateCredentials(email, password string) error {
	if email == "" {
		return core.Invalid("email", core.ErrEmptyEmail)
	}
	if at := strings.IndexByte(email, '@'); at < 1 || at == len(email)-1 {
		return core.Invalid("email", errors.New("malformed email"))
	}
	if len(password) < minPasswordLength {
		return core.Invalid("password", fmt.Errorf("%w (min %d characters)", core.ErrWeakPassword, minPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		return core.Invalid("password", ErrPasswordTooLong)
	}
	return nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("bolsya-placeholder"), bcrypt.DefaultCost)
