// Package lock 提供以家庭為範圍的互斥鎖，用於序列化煮食交易
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kitchen-api/internal/infrastructure/config"
	"kitchen-api/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

// Locker 取得指定鍵的互斥鎖，回傳的 unlock 必須呼叫且只會生效一次
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// HouseholdKey 家庭鎖的鍵
func HouseholdKey(householdID string) string {
	return "household:" + householdID
}

// New 依設定建立鎖；redis 後端需要傳入已連線的 client
func New(cfg config.LockConfig, client *redis.Client) (Locker, error) {
	switch cfg.Backend {
	case "", config.LockLocal:
		return NewLocalLocker(cfg.Wait), nil
	case config.LockRedis:
		if client == nil {
			return nil, fmt.Errorf("redis lock backend requires a redis client")
		}
		return NewRedisLocker(client, cfg), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}

type slot struct {
	ch   chan struct{}
	refs int
}

// LocalLocker 單一行程內的每鍵互斥鎖
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

// NewLocalLocker 創建本地鎖；wait <= 0 表示僅受 ctx 限制
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		slots: make(map[string]*slot),
		wait:  wait,
	}
}

// Lock 等待取得鍵的鎖，逾時或 ctx 取消時回傳 ErrHouseholdBusy
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, common.Wrap(common.ErrHouseholdBusy, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
	}, nil
}

func (l *LocalLocker) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
