package kvstore

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MemoryStore：进程内实现，行为对齐 redisStore。
// 测试和本地无 Redis 开发用，时钟可注入以便模拟 TTL/窗口流逝。
type MemoryStore struct {
	mu        sync.RWMutex
	now       func() time.Time
	strs      map[string]string
	zsets     map[string]map[string]float64
	lists     map[string][]string
	deadlines map[string]time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		now:       now,
		strs:      make(map[string]string),
		zsets:     make(map[string]map[string]float64),
		lists:     make(map[string][]string),
		deadlines: make(map[string]time.Time),
	}
}

// FakeClock：测试用可拨动时钟。
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFakeClock(t time.Time) *FakeClock { return &FakeClock{t: t} }

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// 惰性过期：访问时发现 deadline 已过就整键删除。需要持写锁调用。
func (m *MemoryStore) expireIfDue(key string) {
	dl, ok := m.deadlines[key]
	if !ok {
		return
	}
	if m.now().After(dl) || m.now().Equal(dl) {
		delete(m.strs, key)
		delete(m.zsets, key)
		delete(m.lists, key)
		delete(m.deadlines, key)
	}
}

func (m *MemoryStore) keyExists(key string) bool {
	if _, ok := m.strs[key]; ok {
		return true
	}
	if _, ok := m.zsets[key]; ok {
		return true
	}
	if _, ok := m.lists[key]; ok {
		return true
	}
	return false
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireIfDue(key)
	v, ok := m.strs[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strs[key] = value
	if ttl > 0 {
		m.deadlines[key] = m.now().Add(ttl)
	} else {
		delete(m.deadlines, key)
	}
	return nil
}

func (m *MemoryStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.strs, key)
		delete(m.zsets, key)
		delete(m.lists, key)
		delete(m.deadlines, key)
	}
	return nil
}

func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireIfDue(key)
	return m.keyExists(key), nil
}

func (m *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireIfDue(key)
	var n int64
	if cur, ok := m.strs[key]; ok {
		parsed, err := strconv.ParseInt(cur, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	m.strs[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireIfDue(key)
	if !m.keyExists(key) {
		return nil
	}
	m.deadlines[key] = m.now().Add(ttl)
	return nil
}

func (m *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireIfDue(key)
	if !m.keyExists(key) {
		return -2 * time.Second, nil // 对齐 redis：键不存在返回 -2
	}
	dl, ok := m.deadlines[key]
	if !ok {
		return -1 * time.Second, nil // 键存在但没有 TTL
	}
	return dl.Sub(m.now()), nil
}

func (m *MemoryStore) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*string, len(keys))
	for i, key := range keys {
		m.expireIfDue(key)
		if v, ok := m.strs[key]; ok {
			val := v
			out[i] = &val
		}
	}
	return out, nil
}

func (m *MemoryStore) MSet(ctx context.Context, pairs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range pairs {
		m.strs[k] = v
		delete(m.deadlines, k)
	}
	return nil
}

func (m *MemoryStore) ZAdd(ctx context.Context, key string, score float64, member string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireIfDue(key)
	zs, ok := m.zsets[key]
	if !ok {
		zs = make(map[string]float64)
		m.zsets[key] = zs
	}
	_, existed := zs[member]
	zs[member] = score
	if existed {
		return 0, nil
	}
	return 1, nil
}

func (m *MemoryStore) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireIfDue(key)
	zs, ok := m.zsets[key]
	if !ok {
		return nil, nil
	}
	type pair struct {
		member string
		score  float64
	}
	matched := make([]pair, 0, len(zs))
	for member, score := range zs {
		if score >= min && score <= max {
			matched = append(matched, pair{member, score})
		}
	}
	// score 升序，和 ZRANGEBYSCORE 一致
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score == matched[j].score {
			return matched[i].member < matched[j].member
		}
		return matched[i].score < matched[j].score
	})
	out := make([]string, len(matched))
	for i, p := range matched {
		out[i] = p.member
	}
	return out, nil
}

func (m *MemoryStore) ZRem(ctx context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireIfDue(key)
	if zs, ok := m.zsets[key]; ok {
		delete(zs, member)
		if len(zs) == 0 {
			delete(m.zsets, key)
			delete(m.deadlines, key)
		}
	}
	return nil
}

func (m *MemoryStore) LPush(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireIfDue(key)
	m.lists[key] = append([]string{value}, m.lists[key]...)
	return nil
}

func (m *MemoryStore) LTrim(ctx context.Context, key string, start, stop int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireIfDue(key)
	list, ok := m.lists[key]
	if !ok {
		return nil
	}
	n := int64(len(list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		delete(m.lists, key)
		delete(m.deadlines, key)
		return nil
	}
	m.lists[key] = list[start : stop+1]
	return nil
}

func (m *MemoryStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireIfDue(key)
	list, ok := m.lists[key]
	if !ok {
		return nil, nil
	}
	n := int64(len(list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}
