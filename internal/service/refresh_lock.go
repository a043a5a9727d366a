package service

import (
	"context"
	"fmt"
	"ranking_engine/internal/util"
	"ranking_engine/pkg/logger"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const refreshLockKey = "ranking:leaderboard:refresh:lock"

// 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RefreshLock 保证同一时刻只有一个刷新周期在执行。
// 进程内用互斥锁，配置了 Redis 时再加一层跨进程锁。
type RefreshLock struct {
	mu    sync.Mutex
	Redis *redis.Client
	TTL   time.Duration
}

func NewRefreshLock(rdb *redis.Client, ttl time.Duration) *RefreshLock {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RefreshLock{Redis: rdb, TTL: ttl}
}

// Acquire 锁已被占用时返回 util.ErrRefreshInProgress
func (l *RefreshLock) Acquire(ctx context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, util.ErrRefreshInProgress
	}
	if l.Redis == nil {
		return l.mu.Unlock, nil
	}

	token := uuid.NewString()
	ok, err := l.Redis.SetNX(ctx, refreshLockKey, token, l.TTL).Result()
	if err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("acquire refresh lock: %w", err)
	}
	if !ok {
		l.mu.Unlock()
		return nil, util.ErrRefreshInProgress
	}

	return func() {
		// 刷新上下文可能已经超时，释放锁使用独立的上下文
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.Redis, []string{refreshLockKey}, token).Err(); err != nil {
			logger.Log.Warn("Failed to release refresh lock", zap.Error(err))
		}
		l.mu.Unlock()
	}, nil
}
