package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kitchen-api/internal/infrastructure/config"
	"kitchen-api/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const keyPrefix = "kitchen:lock:"

// 僅在 token 相符時刪除，避免釋放到他人重新取得的鎖
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// 僅在 token 相符時延長 TTL
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// NewRedisClient 建立並測試 Redis 連線
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisLocker 跨行程的分散式鎖（SET NX PX + token 釋放）
//
// 持有期間每 ttl/3 續期一次，直到 unlock 被呼叫。
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedisLocker 創建 Redis 鎖
func NewRedisLocker(client *redis.Client, cfg config.LockConfig) *RedisLocker {
	l := &RedisLocker{
		client: client,
		ttl:    cfg.TTL,
		wait:   cfg.Wait,
		retry:  cfg.Retry,
	}
	if l.ttl <= 0 {
		l.ttl = 10 * time.Second
	}
	if l.retry <= 0 {
		l.retry = 50 * time.Millisecond
	}
	return l
}

// Lock 輪詢直到取得鎖或等待逾時
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := common.GenerateUUID()

	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, common.Wrap(common.ErrHouseholdBusy, ctx.Err())
			}
			return nil, common.Wrap(common.ErrServiceUnavailable, fmt.Errorf("acquire lock %s: %w", key, err))
		}
		if ok {
			stop := make(chan struct{})
			go l.keepAlive(redisKey, token, stop)
			return l.unlocker(redisKey, token, stop), nil
		}

		select {
		case <-ctx.Done():
			return nil, common.Wrap(common.ErrHouseholdBusy, ctx.Err())
		case <-ticker.C:
		}
	}
}

// keepAlive 定期延長鎖的 TTL；鎖已不屬於自己時停止
func (l *RedisLocker) keepAlive(redisKey, token string, stop <-chan struct{}) {
	interval := l.ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			n, err := renewScript.Run(ctx, l.client, []string{redisKey}, token, l.ttl.Milliseconds()).Int64()
			cancel()
			if err != nil {
				common.LogWarn("Redis 鎖續期失敗",
					zap.String("key", redisKey),
					zap.Error(err),
				)
				continue
			}
			if n == 0 {
				common.LogError("Redis 鎖已遺失", zap.String("key", redisKey))
				return
			}
		}
	}
}

func (l *RedisLocker) unlocker(redisKey, token string, stop chan struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)

			// 請求 ctx 可能已取消，釋放改用獨立 ctx
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil && err != redis.Nil {
				common.LogWarn("釋放 Redis 鎖失敗",
					zap.String("key", redisKey),
					zap.Error(err),
				)
			}
		})
	}
}
