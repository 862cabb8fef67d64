package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Jobin06/EV-Fleet-MVP/pkg/redis"
)

// ErrSessionNotFound is returned for unknown or expired tokens
var ErrSessionNotFound = errors.New("session not found")

// Session is a logged-in operator
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore keeps sessions by token
type SessionStore interface {
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

// NewToken returns a random 32-byte hex token
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore creates an in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Save implements SessionStore
func (m *MemoryStore) Save(ctx context.Context, s *Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	cp.ExpiresAt = m.now().Add(ttl)
	s.ExpiresAt = cp.ExpiresAt
	m.sessions[s.Token] = &cp
	return nil
}

// Get implements SessionStore, evicting expired sessions
func (m *MemoryStore) Get(ctx context.Context, token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !m.now().Before(s.ExpiresAt) {
		delete(m.sessions, token)
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// Delete implements SessionStore
func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, token)
	return nil
}

// Sweep drops expired sessions and returns how many went
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for token, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

// RedisStore keeps sessions in Redis through the shared cache
type RedisStore struct {
	cache *redis.Cache
}

// NewRedisStore creates a Redis-backed session store
func NewRedisStore(cache *redis.Cache) *RedisStore {
	return &RedisStore{cache: cache}
}

// Save implements SessionStore
func (r *RedisStore) Save(ctx context.Context, s *Session, ttl time.Duration) error {
	s.ExpiresAt = time.Now().Add(ttl)
	if err := r.cache.Set(ctx, redis.SessionKey(s.Token), s, ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get implements SessionStore
func (r *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	var s Session
	found, err := r.cache.Get(ctx, redis.SessionKey(token), &s)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// Delete implements SessionStore
func (r *RedisStore) Delete(ctx context.Context, token string) error {
	return r.cache.Delete(ctx, redis.SessionKey(token))
}

// NewSessionStore picks Redis when the cache is live and memory otherwise
func NewSessionStore(cache *redis.Cache) SessionStore {
	if cache != nil && cache.Enabled() {
		return NewRedisStore(cache)
	}
	return NewMemoryStore()
}
