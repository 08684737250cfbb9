// Package lock 串行化"刷新数据集再调用推荐进程"的临界区。
// 单实例部署使用进程内锁，多副本共享快照目录时使用 Redis 锁。
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired 在上下文结束前未能获得锁
var ErrNotAcquired = errors.New("lock: not acquired")

// Locker 获取锁，返回的 release 必须恰好调用一次
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// =====================
// 进程内锁
// =====================

// Local 进程内按 key 的互斥锁，等待时响应 ctx 取消
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
	}
}

// =====================
// Redis 锁
// =====================

// unlockScript 只删除自己持有的锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis 基于 SET NX PX 的分布式锁。TTL 需大于临界区的最长执行时间。
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, retry: 200 * time.Millisecond}
}

func (l *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotAcquired, err)
		}
		if ok {
			var once sync.Once
			release := func() {
				once.Do(func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					unlockScript.Run(ctx, l.client, []string{key}, token)
				})
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}
