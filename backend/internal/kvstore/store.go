package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNoStore：没有配置外部存储。写操作用它告知调用方“没写进去”，
// 各组件按自己的降级策略静默处理，不当成需要告警的错误刷日志。
var ErrNoStore = errors.New("kv store not configured")

// Store 是所有上层组件（cache / ratelimit / channel / presence）共享的
// KV 存储契约。实现只依赖单 key 的原子性，不假设更强的一致性。
//
// 约定：
// - Get 未命中返回 ("", false, nil)，不算错误
// - MGet 未命中的位置返回 nil
// - ZAdd 返回本次新增的成员数（已存在只更新 score 时为 0）
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)

	MGet(ctx context.Context, keys ...string) ([]*string, error)
	MSet(ctx context.Context, pairs map[string]string) error

	ZAdd(ctx context.Context, key string, score float64, member string) (int64, error)
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)
	ZRem(ctx context.Context, key string, member string) error

	LPush(ctx context.Context, key string, value string) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// noopStore：没有配置 Redis 时的兜底实现。
// 读操作永远返回未命中（nil 错误），写操作返回 ErrNoStore。
// 上层组件据此降级：缓存 set→false、限流 fail open、事件静默丢弃。
type noopStore struct{}

// NewNoopStore 返回空操作实现。
func NewNoopStore() Store { return noopStore{} }

var _ Store = noopStore{}

func (noopStore) Get(ctx context.Context, key string) (string, bool, error) { return "", false, nil }
func (noopStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return ErrNoStore
}
func (noopStore) Del(ctx context.Context, keys ...string) error        { return ErrNoStore }
func (noopStore) Exists(ctx context.Context, key string) (bool, error) { return false, nil }
func (noopStore) Incr(ctx context.Context, key string) (int64, error)  { return 0, ErrNoStore }
func (noopStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return ErrNoStore
}
func (noopStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return -2 * time.Second, nil
}
func (noopStore) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	return make([]*string, len(keys)), nil
}
func (noopStore) MSet(ctx context.Context, pairs map[string]string) error { return ErrNoStore }
func (noopStore) ZAdd(ctx context.Context, key string, score float64, member string) (int64, error) {
	return 0, ErrNoStore
}
func (noopStore) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	return nil, nil
}
func (noopStore) ZRem(ctx context.Context, key, member string) error { return ErrNoStore }
func (noopStore) LPush(ctx context.Context, key, value string) error { return ErrNoStore }
func (noopStore) LTrim(ctx context.Context, key string, start, stop int64) error { return ErrNoStore }
func (noopStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return nil, nil
}
