package service

import (
	"context"
	"errors"
	"ranking_engine/internal/util"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestRefreshLockLocalContention(t *testing.T) {
	lock := NewRefreshLock(nil, time.Minute)
	ctx := context.Background()

	release, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := lock.Acquire(ctx); !errors.Is(err, util.ErrRefreshInProgress) {
		t.Fatalf("second acquire err = %v, want ErrRefreshInProgress", err)
	}

	release()
	release2, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	release2()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRefreshLockAcrossProcesses(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	// 两个实例模拟两个进程
	a := NewRefreshLock(rdb, time.Minute)
	b := NewRefreshLock(rdb, time.Minute)

	release, err := a.Acquire(ctx)
	if err != nil {
		t.Fatalf("a acquire: %v", err)
	}
	if !mr.Exists(refreshLockKey) {
		t.Fatal("lock key not set in redis")
	}
	if _, err := b.Acquire(ctx); !errors.Is(err, util.ErrRefreshInProgress) {
		t.Fatalf("b acquire err = %v, want ErrRefreshInProgress", err)
	}

	release()
	if mr.Exists(refreshLockKey) {
		t.Fatal("lock key should be deleted on release")
	}
	releaseB, err := b.Acquire(ctx)
	if err != nil {
		t.Fatalf("b acquire after release: %v", err)
	}
	releaseB()
}

func TestRefreshLockDoesNotReleaseForeignToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	lock := NewRefreshLock(rdb, time.Second)
	release, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// 锁过期后被其他进程拿到
	mr.FastForward(2 * time.Second)
	if err := mr.Set(refreshLockKey, "other-owner"); err != nil {
		t.Fatal(err)
	}

	release()
	if got, _ := mr.Get(refreshLockKey); got != "other-owner" {
		t.Errorf("foreign lock removed, value = %q", got)
	}
}
