package infra

// lock.go: single-writer locks for long-running batch passes.
// RedisLocker works across processes (SET NX PX + compare-and-delete release);
// LocalLocker covers single-process deployments and unit tests.

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrLockOcupado is returned when another holder owns the lock.
var ErrLockOcupado = errors.New("lock ocupado")

// Locker acquires a named exclusive lock. The returned release func is safe
// to call more than once.
type Locker interface {
	Adquirir(ctx context.Context, clave string) (liberar func(), err error)
}

// releaseScript deletes the key only if it still holds our token, so a run
// that outlived its TTL cannot release a lock now owned by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker implements Locker on top of a single Redis instance.
type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

func (l *RedisLocker) Adquirir(ctx context.Context, clave string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, clave, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", clave, err)
	}
	if !ok {
		return nil, ErrLockOcupado
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release with a fresh context: the caller's may already be cancelled.
			relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(relCtx, l.rdb, []string{clave}, token).Err(); err != nil {
				// The key stays held until its TTL expires.
				log.Warn().Err(err).Str("key", clave).Msg("lock release failed")
			}
		})
	}, nil
}

// LocalLocker implements Locker with in-process mutexes.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) Adquirir(_ context.Context, clave string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[clave]
	if !ok {
		m = &sync.Mutex{}
		l.locks[clave] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, ErrLockOcupado
	}
	var once sync.Once
	return func() { once.Do(m.Unlock) }, nil
}

// NewLocker picks RedisLocker when a client is available.
func NewLocker(rdb *redis.Client, ttl time.Duration) Locker {
	if rdb == nil {
		return NewLocalLocker()
	}
	return NewRedisLocker(rdb, ttl)
}
