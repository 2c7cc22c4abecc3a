package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/finance-tracker/pkg/keygen"
	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned when a reset token is unknown or expired
var ErrTokenNotFound = errors.New("token not found")

// RedisTokenStore keeps revoked JWT ids and password reset tokens in redis
type RedisTokenStore struct {
	rdb *redis.Client
}

// NewRedisTokenStore creates a RedisTokenStore
func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb}
}

func revokedKey(jti string) string {
	return "auth:revoked:" + jti
}

func resetKey(token string) string {
	return "auth:reset:" + keygen.Fingerprint(token)
}

// Revoke denies a JWT id until ttl elapses
func (s *RedisTokenStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, revokedKey(jti), 1, ttl).Err()
}

// IsRevoked reports whether a JWT id has been revoked
func (s *RedisTokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveResetToken stores a reset token for a user
func (s *RedisTokenStore) SaveResetToken(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	return s.rdb.Set(ctx, resetKey(token), strconv.FormatUint(uint64(userID), 10), ttl).Err()
}

// ConsumeResetToken returns the owner of a reset token and deletes it
func (s *RedisTokenStore) ConsumeResetToken(ctx context.Context, token string) (uint, error) {
	id, err := s.rdb.GetDel(ctx, resetKey(token)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrTokenNotFound
	}
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// MemoryTokenStore is the single-instance TokenStore used when redis is disabled
type MemoryTokenStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	resets  map[string]resetEntry
	now     func() time.Time
}

type resetEntry struct {
	userID    uint
	expiresAt time.Time
}

// NewMemoryTokenStore creates an empty MemoryTokenStore
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		revoked: make(map[string]time.Time),
		resets:  make(map[string]resetEntry),
		now:     time.Now,
	}
}

func (s *MemoryTokenStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = s.now().Add(ttl)
	return nil
}

func (s *MemoryTokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.revoked[jti]
	if !ok {
		return false, nil
	}
	if !s.now().Before(expiresAt) {
		delete(s.revoked, jti)
		return false, nil
	}
	return true, nil
}

func (s *MemoryTokenStore) SaveResetToken(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets[keygen.Fingerprint(token)] = resetEntry{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryTokenStore) ConsumeResetToken(ctx context.Context, token string) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keygen.Fingerprint(token)
	entry, ok := s.resets[key]
	if !ok {
		return 0, ErrTokenNotFound
	}
	delete(s.resets, key)
	if !s.now().Before(entry.expiresAt) {
		return 0, ErrTokenNotFound
	}
	return entry.userID, nil
}
