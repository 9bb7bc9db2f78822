package kvstore

import (
	"context"
	"testing"
	"time"
)

func newClockedStore() (*MemoryStore, *FakeClock) {
	clock := NewFakeClock(time.Unix(1700000000, 0))
	return NewMemoryStoreWithClock(clock.Now), clock
}

func TestStringTTL(t *testing.T) {
	ctx := context.Background()
	s, clock := newClockedStore()

	if err := s.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, _ := s.Get(ctx, "k"); !ok || v != "v" {
		t.Fatalf("expected hit v, got %q ok=%v", v, ok)
	}
	if ttl, _ := s.TTL(ctx, "k"); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %v", ttl)
	}

	clock.Advance(time.Minute)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after ttl")
	}
	// 键没了：TTL 返回 -2，对齐 redis
	if ttl, _ := s.TTL(ctx, "k"); ttl != -2*time.Second {
		t.Fatalf("expected -2s for absent key, got %v", ttl)
	}
}

func TestTTLNoDeadline(t *testing.T) {
	ctx := context.Background()
	s, _ := newClockedStore()

	s.Set(ctx, "k", "v", 0)
	if ttl, _ := s.TTL(ctx, "k"); ttl != -1*time.Second {
		t.Fatalf("expected -1s for key without ttl, got %v", ttl)
	}
}

func TestIncrAndExpire(t *testing.T) {
	ctx := context.Background()
	s, clock := newClockedStore()

	// INCR 对不存在的键从 0 起步
	for want := int64(1); want <= 3; want++ {
		n, err := s.Incr(ctx, "counter")
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if n != want {
			t.Fatalf("expected %d, got %d", want, n)
		}
	}

	if err := s.Expire(ctx, "counter", time.Minute); err != nil {
		t.Fatalf("expire: %v", err)
	}
	clock.Advance(time.Minute)
	if n, _ := s.Incr(ctx, "counter"); n != 1 {
		t.Fatalf("expired counter should restart at 1, got %d", n)
	}

	// 对不存在的键 EXPIRE 是空操作
	if err := s.Expire(ctx, "ghost", time.Minute); err != nil {
		t.Fatalf("expire absent key: %v", err)
	}
	if ok, _ := s.Exists(ctx, "ghost"); ok {
		t.Fatalf("expire must not create keys")
	}
}

func TestMGetMSet(t *testing.T) {
	ctx := context.Background()
	s, _ := newClockedStore()

	s.MSet(ctx, map[string]string{"a": "1", "b": "2"})
	out, err := s.MGet(ctx, "a", "missing", "b")
	if err != nil {
		t.Fatalf("mget: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(out))
	}
	if out[0] == nil || *out[0] != "1" {
		t.Fatalf("slot 0 wrong")
	}
	if out[1] != nil {
		t.Fatalf("slot 1 should be nil")
	}
	if out[2] == nil || *out[2] != "2" {
		t.Fatalf("slot 2 wrong")
	}
}

func TestZSetOrderingAndRange(t *testing.T) {
	ctx := context.Background()
	s, _ := newClockedStore()

	// 新成员返回 1，更新 score 返回 0
	if n, _ := s.ZAdd(ctx, "z", 30, "c"); n != 1 {
		t.Fatalf("new member should return 1, got %d", n)
	}
	s.ZAdd(ctx, "z", 10, "a")
	s.ZAdd(ctx, "z", 20, "b")
	if n, _ := s.ZAdd(ctx, "z", 15, "a"); n != 0 {
		t.Fatalf("score update should return 0, got %d", n)
	}

	members, _ := s.ZRangeByScore(ctx, "z", 0, 100)
	if len(members) != 3 || members[0] != "a" || members[1] != "b" || members[2] != "c" {
		t.Fatalf("expected score-ascending [a b c], got %v", members)
	}

	// 区间是闭的
	members, _ = s.ZRangeByScore(ctx, "z", 15, 20)
	if len(members) != 2 || members[0] != "a" || members[1] != "b" {
		t.Fatalf("expected [a b], got %v", members)
	}

	s.ZRem(ctx, "z", "b")
	members, _ = s.ZRangeByScore(ctx, "z", 0, 100)
	if len(members) != 2 {
		t.Fatalf("expected 2 after zrem, got %v", members)
	}
}

func TestListPushTrimRange(t *testing.T) {
	ctx := context.Background()
	s, _ := newClockedStore()

	// LPUSH 后最新的在表头
	s.LPush(ctx, "l", "first")
	s.LPush(ctx, "l", "second")
	s.LPush(ctx, "l", "third")

	out, _ := s.LRange(ctx, "l", 0, -1)
	if len(out) != 3 || out[0] != "third" || out[2] != "first" {
		t.Fatalf("expected newest-first [third second first], got %v", out)
	}

	if err := s.LTrim(ctx, "l", 0, 1); err != nil {
		t.Fatalf("ltrim: %v", err)
	}
	out, _ = s.LRange(ctx, "l", 0, -1)
	if len(out) != 2 || out[0] != "third" || out[1] != "second" {
		t.Fatalf("expected [third second] after trim, got %v", out)
	}

	// 区间超界截到实际长度
	out, _ = s.LRange(ctx, "l", 0, 99)
	if len(out) != 2 {
		t.Fatalf("expected 2, got %v", out)
	}
}

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	s := NewNoopStore()

	if err := s.Set(ctx, "k", "v", time.Minute); err == nil {
		t.Fatalf("noop set should report ErrNoStore")
	}
	if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("noop get should be a clean miss")
	}
	if _, err := s.Incr(ctx, "k"); err == nil {
		t.Fatalf("noop incr should report ErrNoStore")
	}
	if out, err := s.MGet(ctx, "a", "b"); err != nil || len(out) != 2 || out[0] != nil {
		t.Fatalf("noop mget should be all-nil slots: %v %v", out, err)
	}
}
