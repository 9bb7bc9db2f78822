// Package ratelimit 实现固定窗口限流（fixed window counter）。
// 不是滑动窗口也不是令牌桶：窗口是离散的，计数器靠 Redis 的 INCR
// 原子性保证并发正确。
package ratelimit

import (
	"context"
	"errors"
	"log"
	"time"

	"travelblogr-realtime-service/backend/internal/cache"
	"travelblogr-realtime-service/backend/internal/kvstore"
)

type Limiter struct {
	store kvstore.Store
	now   func() time.Time
}

func NewLimiter(store kvstore.Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Result 是一次限流判定的结果。
type Result struct {
	Allowed   bool
	Remaining int
	// ResetAt：窗口重置时刻（Unix 毫秒）
	ResetAt int64
}

// Check 对 (action, identifier) 做一次固定窗口判定。
//
// 顺序是正确性关键：先 INCR，返回值恰好为 1 说明本次调用创建了窗口，
// 由本次调用负责设置过期时间。顺序反过来（先 EXPIRE 再 INCR）会导致
// 窗口键可能永不过期。
//
// 任何存储错误都 fail open：返回 Allowed=true、Remaining=limit，
// 缓存层不可用不能挡住正常流量。
func (l *Limiter) Check(ctx context.Context, action, identifier string, limit int, window time.Duration) Result {
	key := cache.RateKey(action, identifier)
	failOpen := Result{
		Allowed:   true,
		Remaining: limit,
		ResetAt:   l.now().Add(window).UnixMilli(),
	}

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		// 未配置存储是预期降级，不刷日志；其余错误记一笔再放行
		if !errors.Is(err, kvstore.ErrNoStore) {
			log.Printf("ratelimit: incr %q failed, fail open: %v", key, err)
		}
		return failOpen
	}

	// 窗口刚被创建（0→1），设置过期；只有这一次会设置
	if count == 1 {
		if err := l.store.Expire(ctx, key, window); err != nil {
			log.Printf("ratelimit: expire %q failed: %v", key, err)
		}
	}

	resetAt := l.now().Add(window).UnixMilli()
	if ttl, err := l.store.TTL(ctx, key); err == nil && ttl > 0 {
		resetAt = l.now().Add(ttl).UnixMilli()
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(limit),
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
