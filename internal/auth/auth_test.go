package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
	"github.com/Jobin06/EV-Fleet-MVP/internal/fleet/fleettest"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/config"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/redis"
)

func newTestService(t *testing.T, attempts int) (*Service, *fleettest.MemoryStore) {
	t.Helper()

	users := fleettest.NewMemoryStore()
	_, err := users.CreateUser(context.Background(), &contracts.UserAccount{Username: "dispatch", PasswordHash: "s3cret"})
	require.NoError(t, err)

	svc := NewService(users, NewMemoryStore(), NewLocalLimiter(attempts, time.Minute), time.Hour, nil)
	return svc, users
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantID   int64
		wantErr  error
	}{
		{name: "db user", username: "dispatch", password: "s3cret", wantID: 1},
		{name: "wrong password", username: "dispatch", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "unknown user", username: "ghost", password: "x", wantErr: ErrInvalidCredentials},
		{name: "fallback admin", username: "admin", password: "admin", wantID: 0},
		{name: "fallback admin wrong password", username: "admin", password: "root", wantErr: ErrInvalidCredentials},
		{name: "empty", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Authenticate(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, user.ID)
			assert.Equal(t, tt.username, user.Username)
		})
	}
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	svc, users := newTestService(t, 10)
	users.Err = errors.New("db down")

	_, err := svc.Authenticate(context.Background(), "admin", "admin")
	assert.EqualError(t, err, "db down")
}

func TestLoginLogout(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	session, err := svc.Login(ctx, "203.0.113.7", "admin", "admin")
	require.NoError(t, err)
	assert.Len(t, session.Token, 64)
	assert.Equal(t, int64(0), session.UserID)
	assert.True(t, session.IsAdmin)

	got, err := svc.Session(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Username)

	require.NoError(t, svc.Logout(ctx, session.Token))
	_, err = svc.Session(ctx, session.Token)
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	_, err = svc.Session(ctx, "")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestLogin_RateLimited(t *testing.T) {
	svc, _ := newTestService(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, "198.51.100.1", "admin", "bad")
		assert.True(t, errors.Is(err, ErrInvalidCredentials))
	}

	_, err := svc.Login(ctx, "198.51.100.1", "admin", "admin")
	assert.True(t, errors.Is(err, ErrRateLimited))

	_, err = svc.Login(ctx, "198.51.100.2", "admin", "admin")
	assert.NoError(t, err, "other clients are unaffected")
}

func TestLocalLimiter_Reset(t *testing.T) {
	l := NewLocalLimiter(1, time.Hour)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Allow(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, l.Reset(ctx, "a"))
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok)
}

func TestLocalLimiter_Sweep(t *testing.T) {
	l := NewLocalLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		ok, err := l.Allow(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 0, l.Sweep(), "partly drained buckets stay")
	assert.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Minute)
	ok, _ := l.Allow(ctx, "b")
	assert.True(t, ok)

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}

func TestLocalLimiter_BoundedBuckets(t *testing.T) {
	l := NewLocalLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < maxLocalBuckets; i++ {
		_, err := l.Allow(ctx, fmt.Sprintf("client-%d", i))
		require.NoError(t, err)
	}
	require.Equal(t, maxLocalBuckets, l.Len())

	now = now.Add(2 * time.Minute)
	ok, err := l.Allow(ctx, "newcomer")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, l.Len())
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{Token: "short"}, time.Minute))
	require.NoError(t, store.Save(ctx, &Session{Token: "long"}, time.Hour))

	now = now.Add(time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	_, err := store.Get(ctx, "long")
	assert.NoError(t, err)
}

func TestService_Sweep(t *testing.T) {
	sessions := NewMemoryStore()
	limiter := NewLocalLimiter(1, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sessions.now = func() time.Time { return now }
	limiter.now = func() time.Time { return now }

	svc := NewService(fleettest.NewMemoryStore(), sessions, limiter, time.Minute, nil)
	ctx := context.Background()

	_, err := svc.Login(ctx, "198.51.100.1", "admin", "admin")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "198.51.100.2", "admin", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 0, svc.Sweep())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, svc.Sweep())
	assert.Equal(t, 0, sessions.Len())
	assert.Equal(t, 0, limiter.Len())
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{Token: "t", Username: "admin"}, time.Minute))

	_, err := store.Get(ctx, "t")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = store.Get(ctx, "t")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestFactories_WithoutRedis(t *testing.T) {
	client, err := redis.New(context.Background(), &config.Config{})
	require.NoError(t, err)

	assert.IsType(t, &MemoryStore{}, NewSessionStore(redis.NewCache(client, "fleet")))
	assert.IsType(t, &MemoryStore{}, NewSessionStore(nil))
	assert.IsType(t, &LocalLimiter{}, NewLoginLimiter(client, 5, time.Minute))
}

func TestNewToken_Unique(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
