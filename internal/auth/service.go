package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	applog "pfms/internal/log"
	"pfms/internal/storage"
)

var (
	// ErrInvalidCredentials is returned when the username is unknown or
	// the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidSession is returned for missing, unknown or expired
	// session tokens.
	ErrInvalidSession = errors.New("invalid session")
)

// Store is the slice of the repository the auth service needs.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (storage.User, error)
	InsertSession(ctx context.Context, token string, userID int64, expiresAt time.Time) (storage.Session, error)
	GetSessionByToken(ctx context.Context, token string) (storage.Session, error)
	DeleteSessionByToken(ctx context.Context, token string) (int64, error)
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// Service issues and validates bearer-token sessions backed by the
// sessions table.
type Service struct {
	store      Store
	sessionTTL time.Duration
}

func NewService(store Store, sessionTTL time.Duration) *Service {
	return &Service{store: store, sessionTTL: sessionTTL}
}

// HashPassword produces a bcrypt hash at the default cost, suitable for
// storage in users.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login checks the credentials and, on success, creates a session and
// returns its token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		// Burn a comparison so unknown usernames take the same time as
		// wrong passwords.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("login lookup: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := uuid.NewString()
	if _, err := s.store.InsertSession(ctx, token, user.ID, time.Now().Add(s.sessionTTL)); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	slog.InfoContext(ctx, "User logged in",
		applog.FieldOperation, applog.OpLogin,
		applog.FieldUserID, user.ID)
	return token, nil
}

// Validate resolves a token to its session. Expired sessions are deleted
// on sight and reported as invalid.
func (s *Service) Validate(ctx context.Context, token string) (storage.Session, error) {
	if token == "" {
		return storage.Session{}, ErrInvalidSession
	}
	sess, err := s.store.GetSessionByToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Session{}, ErrInvalidSession
	}
	if err != nil {
		return storage.Session{}, fmt.Errorf("session lookup: %w", err)
	}
	if time.Now().After(sess.ExpiresAt) {
		_, _ = s.store.DeleteSessionByToken(ctx, token)
		return storage.Session{}, ErrInvalidSession
	}
	return sess, nil
}

// Logout deletes the session. An unknown token reports ErrInvalidSession
// so the caller can distinguish a no-op logout.
func (s *Service) Logout(ctx context.Context, token string) error {
	n, err := s.store.DeleteSessionByToken(ctx, token)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if n == 0 {
		return ErrInvalidSession
	}
	return nil
}

// SweepExpired removes expired sessions and returns how many were
// deleted. Intended for a periodic background sweep.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx)
}
