package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
)

// StageLocker gives one caller at a time exclusive use of a generation for
// the duration of a stage. Acquire fails fast with errs.ErrConflict when the
// generation is already held; it never waits.
type StageLocker interface {
	Acquire(ctx context.Context, generationID uint) (release func(), err error)
}

type memoryStageLocker struct {
	mu   sync.Mutex
	held map[uint]struct{}
}

func NewMemoryStageLocker() StageLocker {
	return &memoryStageLocker{held: map[uint]struct{}{}}
}

func (l *memoryStageLocker) Acquire(_ context.Context, generationID uint) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[generationID]; busy {
		return nil, fmt.Errorf("generation %d: %w", generationID, errs.ErrConflict)
	}
	l.held[generationID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, generationID)
			l.mu.Unlock()
		})
	}, nil
}

// redisLockClient is the subset of go-redis the lock needs.
type redisLockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *goredis.Cmd
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another instance is left alone.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

type redisStageLocker struct {
	rdb    redisLockClient
	prefix string
	ttl    time.Duration
}

// NewRedisStageLocker shares stage locks across instances. ttl bounds how long
// a crashed holder can block a generation and must exceed the slowest stage.
func NewRedisStageLocker(rdb redisLockClient, prefix string, ttl time.Duration) StageLocker {
	if prefix == "" {
		prefix = "govgen:stage_lock"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisStageLocker{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (l *redisStageLocker) key(generationID uint) string {
	return fmt.Sprintf("%s:%d", l.prefix, generationID)
}

func (l *redisStageLocker) Acquire(ctx context.Context, generationID uint) (func(), error) {
	key := l.key(generationID)
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire stage lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("generation %d: %w", generationID, errs.ErrConflict)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must run even when the request context was cancelled.
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = l.rdb.Eval(rctx, releaseScript, []string{key}, token).Err()
		})
	}, nil
}
