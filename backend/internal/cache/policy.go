package cache

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"
)

const (
	countBaseTTL     = 24 * time.Hour   // 计数缓存基础过期时间
	countTTLJitter   = 60 * time.Minute // 随机抖动范围
	emptyCacheMarker = -1               // 空值标记
	emptyCacheTTL    = 5 * time.Minute
)

// 获取随机TTL，防止缓存雪崩
func randomCountTTL() time.Duration {
	return countBaseTTL + time.Duration(rand.Int63n(int64(countTTLJitter)))
}

func (m *Manager) readCount(ctx context.Context, key string) (uint64, bool, error) {
	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	// 不能用 ParseUint，遇到空值标记 -1 会报 invalid syntax
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	if v == emptyCacheMarker {
		return 0, false, nil
	}
	if v < 0 {
		v = 0
	}
	return uint64(v), true, nil
}

func (m *Manager) writeCount(ctx context.Context, key string, val uint64) error {
	return m.store.Set(ctx, key, strconv.FormatUint(val, 10), randomCountTTL())
}

// 标记空值缓存，防止缓存穿透
func (m *Manager) writeNullCount(ctx context.Context, key string) error {
	return m.store.Set(ctx, key, strconv.Itoa(emptyCacheMarker), emptyCacheTTL)
}

// GetOrSetCountProtected：带防击穿的计数读取。
// Singleflight 保证同一个 key 的并发回源只有一个真正落到数据库，
// 空值缓存防止不存在的资源被反复穿透查询。
// fetchDB 返回 (值, 是否存在, 错误)；不存在时写入短 TTL 的空值标记。
//
// 这是 GetOrSet 并发回源竞态的显式改进版，只用在互动计数这类
// 回源代价高的读路径上。
func (m *Manager) GetOrSetCountProtected(
	ctx context.Context,
	key string,
	fetchDB func() (uint64, bool, error),
) (uint64, error) {
	val, err, _ := m.sf.Do(key, func() (interface{}, error) {
		v, hit, err := m.readCount(ctx, key)
		if err != nil {
			// 缓存读失败不挡回源，降级直接查库
			hit = false
		}
		if hit {
			return v, nil
		}

		count, exists, err := fetchDB()
		if err != nil {
			return uint64(0), err
		}
		if !exists {
			_ = m.writeNullCount(ctx, key)
			return uint64(0), nil
		}
		_ = m.writeCount(ctx, key, count)
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	// 断言兜底，避免 panic
	if v, ok := val.(uint64); ok {
		return v, nil
	}
	return 0, errors.New("internal type error")
}
