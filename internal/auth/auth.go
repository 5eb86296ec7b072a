// Package auth resolves opaque session tokens to user ids. Tokens are issued
// and expired by the login flow; the API only reads them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix is prepended to a token to form its store key.
const KeyPrefix = "auth_"

// SessionTTL is how long an issued token stays valid.
const SessionTTL = 24 * time.Hour

// ErrNoSession reports a missing, empty or unknown token.
var ErrNoSession = errors.New("no session for token")

// Store is the read side of the ephemeral key-value store. Get returns
// ok=false when the key does not exist.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
}

// Authority turns tokens into user ids.
type Authority struct {
	store Store
}

// NewAuthority constructs an Authority over store.
func NewAuthority(store Store) *Authority {
	return &Authority{store: store}
}

// Resolve returns the user id bound to token, ErrNoSession when there is
// none, or a wrapped store error.
func (a *Authority) Resolve(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoSession
	}
	userID, ok, err := a.store.Get(ctx, KeyPrefix+token)
	if err != nil {
		return "", fmt.Errorf("resolve token: %w", err)
	}
	if !ok || userID == "" {
		return "", ErrNoSession
	}
	return userID, nil
}

// RedisStore reads session keys from Redis.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps a connected Redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Issue creates a fresh token for userID that expires after ttl. The API never
// calls it; it backs the development CLI.
func (s *RedisStore) Issue(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}
	token := uuid.NewString()
	if err := s.client.Set(ctx, KeyPrefix+token, userID, ttl).Err(); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

// MemoryStore is an in-process Store for tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Put binds token to userID, the way the login flow would.
func (m *MemoryStore) Put(token, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[KeyPrefix+token] = userID
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}
