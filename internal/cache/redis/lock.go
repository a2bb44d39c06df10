package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"order-gateway/internal/interfaces"
	"order-gateway/internal/types"
)

// unlockLua deletes a lock key only if it still holds the caller's token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// retryInterval is the pause between acquisition attempts.
const retryInterval = 50 * time.Millisecond

// Locker serializes reconciliation across gateway processes with SET NX
// and a TTL. A holder that dies releases the key when the TTL expires.
type Locker struct {
	rdb      *redis.Client
	unlockSc *redis.Script
	ttl      time.Duration
	wait     time.Duration
}

var _ interfaces.Locker = (*Locker)(nil)

// NewLocker returns a lock whose keys live for ttl and whose Lock gives up
// after wait.
func NewLocker(c *Client, ttl, wait time.Duration) *Locker {
	return &Locker{
		rdb:      c.Underlying(),
		unlockSc: redis.NewScript(unlockLua),
		ttl:      ttl,
		wait:     wait,
	}
}

func lockKey(key string) string {
	return "lock:" + key
}

// Lock retries until the key is free, ctx is done or the wait elapses.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	lk := lockKey(key)

	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, lk, token, l.ttl).Result()
		if err == nil && ok {
			break
		}
		if err != nil && ctx.Err() == nil {
			return nil, types.TransportError("redis.Lock", fmt.Errorf("acquire lock %s: %w", key, err))
		}
		select {
		case <-ctx.Done():
			return nil, &types.Error{Kind: types.KindTransport, Op: "redis.Lock", Message: "timed out waiting for " + key, Err: types.ErrLockTimeout}
		case <-ticker.C:
		}
	}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			// The caller's ctx may already be done.
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = l.unlockSc.Run(unlockCtx, l.rdb, []string{lk}, token).Err()
		})
	}
	return unlock, nil
}
