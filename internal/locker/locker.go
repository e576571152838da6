// Package locker предоставляет необязательную сериализацию записей по счёту.
package locker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained возвращается, если блокировку не удалось получить за отведённое время.
var ErrNotObtained = errors.New("lock not obtained")

// Unlock освобождает полученную блокировку.
type Unlock func()

// Locker сериализует операции над одним ключом.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// Noop ничего не блокирует: проверка остатка и запись идут без сериализации.
type Noop struct{}

// Lock сразу возвращает пустую разблокировку.
func (Noop) Lock(context.Context, string) (Unlock, error) {
	return func() {}, nil
}

// Local сериализует операции внутри одного процесса.
type Local struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// NewLocal создаёт блокировщик в памяти процесса.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*localLock)}
}

// Lock ждёт освобождения ключа или отмены ctx.
func (l *Local) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, lk, false)
		return nil, fmt.Errorf("%w: %s: %w", ErrNotObtained, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, lk, true) })
	}, nil
}

func (l *Local) release(key string, lk *localLock, held bool) {
	if held {
		<-lk.ch
	}
	l.mu.Lock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// Redis сериализует операции между экземплярами сервиса через redislock.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	retry  time.Duration
	prefix string
}

// NewRedis создаёт распределённый блокировщик поверх клиента go-redis.
func NewRedis(rdb redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  100 * time.Millisecond,
		prefix: "acquisitions:lock:",
	}
}

// Lock берёт блокировку в Redis с повторами до истечения ctx.
func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	lock, err := r.client.Obtain(ctx, r.prefix+key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(r.retry),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
		}
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func() {
		// Контекст запроса к этому моменту может быть отменён.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}, nil
}

// LockAll берёт блокировки по всем ключам в переданном порядке.
// При ошибке уже взятые блокировки освобождаются.
func LockAll(ctx context.Context, l Locker, keys []string) (Unlock, error) {
	unlocks := make([]Unlock, 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}

	for _, k := range keys {
		u, err := l.Lock(ctx, k)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, u)
	}
	return release, nil
}
