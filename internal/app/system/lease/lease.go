// internal/app/system/lease/lease.go
//
// Package lease provides per-key mutual exclusion with a time-to-live. The
// Redis locker spans processes; the local locker covers a single process and
// tests.
package lease

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned by Acquire when another holder owns the key.
var ErrHeld = errors.New("lease is held by another holder")

// Release gives a lease back. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker acquires leases.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Redis                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// releaseScript deletes the key only if it still holds our token, so an
// expired lease re-acquired by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis acquires leases with SET NX PX.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis locker. Keys are stored as prefix+key.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (l *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	full := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %q: %w", full, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	var once sync.Once
	return func(ctx context.Context) error {
		var rerr error
		once.Do(func() {
			rerr = releaseScript.Run(ctx, l.client, []string{full}, token).Err()
		})
		return rerr
	}, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Local                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// Local is an in-process Locker.
type Local struct {
	mu   sync.Mutex
	now  func() time.Time
	next uint64
	held map[string]localEntry
}

type localEntry struct {
	token   uint64
	expires time.Time
}

func NewLocal() *Local {
	return &Local{now: time.Now, held: make(map[string]localEntry)}
}

func (l *Local) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, ErrHeld
	}

	l.next++
	token := l.next

	l.held[key] = localEntry{token: token, expires: now.Add(ttl)}
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.held[key]; ok && e.token == token {
			delete(l.held, key)
		}
		return nil
	}, nil
}
