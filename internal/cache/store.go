package cache

import (
	"context"
	"errors"
	"time"

	"threadpulse/internal/observability"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned by Acquire when another holder owns the lock.
var ErrLockHeld = errors.New("lock already held")

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Store wraps a Redis client. A Store with a nil client is valid: reads miss,
// writes are dropped and locks are granted, so Redis stays optional.
type Store struct {
	rdb *redis.Client
}

// NewStore returns a Store backed by rdb (which may be nil).
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.rdb != nil
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first; on a miss (or a Redis failure) it calls fetch, which
// must populate dest, then stores dest with ttl on a best-effort basis.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := s.GetJSON(ctx, key, dest)
	if err == nil && found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	_ = s.SetJSON(ctx, key, dest, ttl)
	return nil
}

// Invalidate deletes keys, ignoring errors.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if !s.Enabled() || len(keys) == 0 {
		return
	}
	s.rdb.Del(ctx, keys...)
}

// Lock is a held Redis lock.
type Lock struct {
	store *Store
	key   string
	token string
}

// Acquire takes the lock at key for ttl. It returns ErrLockHeld when someone
// else holds it. When Redis is disabled or unreachable the lock is granted
// unguarded.
func (s *Store) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	lock := &Lock{store: s, key: key, token: uuid.NewString()}
	if !s.Enabled() {
		return lock, nil
	}

	ctx, span := observability.GetTraceLayer().TraceRedisOperation(ctx, "lock.acquire")
	defer span.End()

	ok, err := s.rdb.SetNX(ctx, key, lock.token, ttl).Result()
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		lock.store = nil
		return lock, nil
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return lock, nil
}

// Release gives the lock back if we still own it.
func (l *Lock) Release(ctx context.Context) {
	if l == nil || !l.store.Enabled() {
		return
	}
	_ = releaseScript.Run(ctx, l.store.rdb, []string{l.key}, l.token).Err()
}

// Ping checks Redis availability.
func (s *Store) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return errors.New("redis not configured")
	}
	return s.rdb.Ping(ctx).Err()
}
