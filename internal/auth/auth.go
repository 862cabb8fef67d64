// Package auth handles operator login, sessions and login throttling.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
	"github.com/Jobin06/EV-Fleet-MVP/internal/fleet"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

var (
	// ErrInvalidCredentials is returned for an unknown user or wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRateLimited is returned when a client exceeds its login attempts
	ErrRateLimited = errors.New("too many login attempts")
)

const (
	fallbackUsername = "admin"
	fallbackPassword = "admin"
)

// Service authenticates operators and manages their sessions
// ⭐ SSOT: credential checks happen here only
type Service struct {
	users    contracts.UserRepository
	sessions SessionStore
	limiter  LoginLimiter
	ttl      time.Duration
	logger   *logger.Logger
}

// NewService creates an auth service
func NewService(users contracts.UserRepository, sessions SessionStore, limiter LoginLimiter, ttl time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		users:    users,
		sessions: sessions,
		limiter:  limiter,
		ttl:      ttl,
		logger:   log.WithComponent("auth"),
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Authenticate checks credentials against the user table, falling back to
// the built-in admin account (user id 0).
func (s *Service) Authenticate(ctx context.Context, username, password string) (*contracts.UserAccount, error) {
	user, err := s.users.GetUserByName(ctx, username)
	switch {
	case err == nil:
		if equal(user.PasswordHash, password) {
			return user, nil
		}
	case !errors.Is(err, fleet.ErrNotFound):
		return nil, err
	}

	if equal(username, fallbackUsername) && equal(password, fallbackPassword) {
		return &contracts.UserAccount{ID: 0, Username: fallbackUsername, IsAdmin: true}, nil
	}
	return nil, ErrInvalidCredentials
}

// Login throttles, authenticates and opens a session
func (s *Service) Login(ctx context.Context, clientID, username, password string) (*Session, error) {
	allowed, err := s.limiter.Allow(ctx, clientID)
	if err != nil {
		s.logger.WithError(err).Warn("Login limiter unavailable")
	} else if !allowed {
		s.logger.WithField("client", clientID).Warn("Login rate limited")
		return nil, ErrRateLimited
	}

	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.WithField("username", username).Info("Login rejected")
		}
		return nil, err
	}

	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	session := &Session{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}
	if err := s.sessions.Save(ctx, session, s.ttl); err != nil {
		return nil, err
	}

	if err := s.limiter.Reset(ctx, clientID); err != nil {
		s.logger.WithError(err).Warn("Failed to reset login limiter")
	}

	s.logger.WithField("username", user.Username).Info("Login succeeded")
	return session, nil
}

// Session resolves a token
func (s *Service) Session(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	return s.sessions.Get(ctx, token)
}

// Logout ends a session
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

type sweeper interface {
	Sweep() int
}

// Sweep drops expired in-memory sessions and idle login buckets.
// Redis-backed stores expire on their own and are skipped.
func (s *Service) Sweep() int {
	removed := 0
	if sw, ok := s.sessions.(sweeper); ok {
		removed += sw.Sweep()
	}
	if sw, ok := s.limiter.(sweeper); ok {
		removed += sw.Sweep()
	}
	return removed
}

// TTL returns the session lifetime
func (s *Service) TTL() time.Duration {
	return s.ttl
}
