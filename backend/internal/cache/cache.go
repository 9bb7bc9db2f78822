package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"travelblogr-realtime-service/backend/internal/kvstore"
)

// Manager 是旁路缓存（cache-aside）的统一入口。
// 这一层只是优化，不是数据源：任何存储/序列化错误都降级为
// 未命中 / 返回 false，只打日志，绝不向调用方抛错。
// store 传 kvstore.NewNoopStore() 时所有操作自动变成永久空操作。
type Manager struct {
	store kvstore.Store
	sf    singleflight.Group
}

func NewManager(store kvstore.Store) *Manager {
	return &Manager{store: store}
}

// GetRaw 取原始字符串。未命中或出错都返回 ("", false)。
func (m *Manager) GetRaw(ctx context.Context, key string) (string, bool) {
	val, ok, err := m.store.Get(ctx, key)
	if err != nil {
		log.Printf("cache: get %q failed: %v", key, err)
		return "", false
	}
	return val, ok
}

// SetRaw 写原始字符串。ttl<=0 时用默认 1 小时。
func (m *Manager) SetRaw(ctx context.Context, key, value string, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = TTLDefault
	}
	if err := m.store.Set(ctx, key, value, ttl); err != nil {
		// 未配置存储是预期的降级，不刷日志
		if !errors.Is(err, kvstore.ErrNoStore) {
			log.Printf("cache: set %q failed: %v", key, err)
		}
		return false
	}
	return true
}

func (m *Manager) Delete(ctx context.Context, key string) bool {
	if err := m.store.Del(ctx, key); err != nil {
		if !errors.Is(err, kvstore.ErrNoStore) {
			log.Printf("cache: del %q failed: %v", key, err)
		}
		return false
	}
	return true
}

func (m *Manager) Exists(ctx context.Context, key string) bool {
	ok, err := m.store.Exists(ctx, key)
	if err != nil {
		log.Printf("cache: exists %q failed: %v", key, err)
		return false
	}
	return ok
}

// Get 取值并按 JSON 反序列化成 T。
// 未命中、存储错误、反序列化错误一律视为未命中。
func Get[T any](ctx context.Context, m *Manager, key string) (T, bool) {
	var zero T
	raw, ok := m.GetRaw(ctx, key)
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		// 反序列化失败按未命中处理，旧格式数据会在下次写入时被覆盖
		log.Printf("cache: unmarshal %q failed: %v", key, err)
		return zero, false
	}
	return v, true
}

// Set 按 JSON 序列化后写入，返回是否成功。
func Set[T any](ctx context.Context, m *Manager, key string, value T, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache: marshal %q failed: %v", key, err)
		return false
	}
	return m.SetRaw(ctx, key, string(data), ttl)
}

// GetOrSet：旁路缓存主流程。命中直接返回；未命中调用 fetch 回源，
// 成功后回填缓存再返回。
//
// 注意：并发的未命中不做去重 —— 同一个冷 key 上的两个并发调用会各自
// 回源、各自回填，后写的覆盖先写的。这是有意的取舍（简单优先）；
// 需要防击穿的读路径用 GetOrSetCountProtected。
//
// fetch 的错误原样返回给调用方：回源方是权威数据源，不属于本层的
// “降级为未命中”范畴。存储侧的错误仍然只打日志。
func GetOrSet[T any](ctx context.Context, m *Manager, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := Get[T](ctx, m, key); ok {
		return v, nil
	}
	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	Set(ctx, m, key, v, ttl)
	return v, nil
}

// BatchGet 批量取值，返回切片与 keys 一一对应，未命中的位置为 nil。
// 单个 key 的反序列化失败不影响其他 key。
func BatchGet[T any](ctx context.Context, m *Manager, keys []string) []*T {
	out := make([]*T, len(keys))
	if len(keys) == 0 {
		return out
	}
	vals, err := m.store.MGet(ctx, keys...)
	if err != nil {
		log.Printf("cache: mget failed: %v", err)
		return out
	}
	for i, raw := range vals {
		if raw == nil {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(*raw), &v); err != nil {
			log.Printf("cache: unmarshal %q failed: %v", keys[i], err)
			continue
		}
		out[i] = &v
	}
	return out
}

// BatchSet 批量写入。MSET 本身带不了 TTL，所以写完后逐 key 补 EXPIRE，
// 单个 key 失败不影响其他 key（尽力而为）。
func BatchSet[T any](ctx context.Context, m *Manager, entries map[string]T, ttl time.Duration) bool {
	if len(entries) == 0 {
		return true
	}
	if ttl <= 0 {
		ttl = TTLDefault
	}
	pairs := make(map[string]string, len(entries))
	for k, v := range entries {
		data, err := json.Marshal(v)
		if err != nil {
			log.Printf("cache: marshal %q failed: %v", k, err)
			continue
		}
		pairs[k] = string(data)
	}
	if len(pairs) == 0 {
		return false
	}
	if err := m.store.MSet(ctx, pairs); err != nil {
		if !errors.Is(err, kvstore.ErrNoStore) {
			log.Printf("cache: mset failed: %v", err)
		}
		return false
	}
	ok := true
	for k := range pairs {
		if err := m.store.Expire(ctx, k, ttl); err != nil {
			log.Printf("cache: expire %q failed: %v", k, err)
			ok = false
		}
	}
	return ok
}
