package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"travelblogr-realtime-service/backend/internal/kvstore"
)

func newTestLimiter() (*Limiter, *kvstore.FakeClock) {
	clock := kvstore.NewFakeClock(time.Unix(1700000000, 0))
	store := kvstore.NewMemoryStoreWithClock(clock.Now)
	l := NewLimiter(store)
	l.now = clock.Now
	return l, clock
}

func TestFixedWindow(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter()

	// limit=3：前三次放行，remaining 依次 2,1,0
	for i, wantRemaining := range []int{2, 1, 0} {
		res := l.Check(ctx, "comment", "u1", 3, time.Minute)
		if !res.Allowed {
			t.Fatalf("call %d should be allowed", i+1)
		}
		if res.Remaining != wantRemaining {
			t.Fatalf("call %d: expected remaining %d, got %d", i+1, wantRemaining, res.Remaining)
		}
	}

	// 第四次拒绝
	res := l.Check(ctx, "comment", "u1", 3, time.Minute)
	if res.Allowed {
		t.Fatalf("call 4 should be denied")
	}
	if res.Remaining != 0 {
		t.Fatalf("denied call: expected remaining 0, got %d", res.Remaining)
	}
	if res.ResetAt <= clock.Now().UnixMilli() {
		t.Fatalf("resetAt should be in the future")
	}

	// 窗口过去后计数重置，重新从 1 开始
	clock.Advance(time.Minute + time.Second)
	res = l.Check(ctx, "comment", "u1", 3, time.Minute)
	if !res.Allowed {
		t.Fatalf("fresh window should allow")
	}
	if res.Remaining != 2 {
		t.Fatalf("fresh window: expected remaining 2, got %d", res.Remaining)
	}
}

// 不同 (action, identifier) 互不影响
func TestWindowsAreIndependent(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter()

	for i := 0; i < 3; i++ {
		l.Check(ctx, "comment", "u1", 3, time.Minute)
	}
	if res := l.Check(ctx, "comment", "u2", 3, time.Minute); !res.Allowed || res.Remaining != 2 {
		t.Fatalf("u2 should have a fresh window: %+v", res)
	}
	if res := l.Check(ctx, "upload", "u1", 3, time.Minute); !res.Allowed || res.Remaining != 2 {
		t.Fatalf("upload action should have a fresh window: %+v", res)
	}
}

// 存储挂了必须 fail open，不能拦正常流量
type failingStore struct {
	kvstore.Store
}

func (failingStore) Incr(ctx context.Context, key string) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestFailOpen(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(failingStore{})

	res := l.Check(ctx, "comment", "u1", 3, time.Minute)
	if !res.Allowed {
		t.Fatalf("store error must fail open")
	}
	if res.Remaining != 3 {
		t.Fatalf("fail open: expected remaining=limit, got %d", res.Remaining)
	}
}

// 未配置存储同样放行
func TestNoopStoreFailsOpen(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(kvstore.NewNoopStore())

	for i := 0; i < 10; i++ {
		res := l.Check(ctx, "comment", "u1", 3, time.Minute)
		if !res.Allowed || res.Remaining != 3 {
			t.Fatalf("noop store must always allow: %+v", res)
		}
	}
}
