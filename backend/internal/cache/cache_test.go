package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"travelblogr-realtime-service/backend/internal/kvstore"
)

type tripSummary struct {
	TripID string `json:"tripId"`
	Title  string `json:"title"`
}

func newTestManager() (*Manager, *kvstore.FakeClock) {
	clock := kvstore.NewFakeClock(time.Unix(1700000000, 0))
	store := kvstore.NewMemoryStoreWithClock(clock.Now)
	return NewManager(store), clock
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager()

	want := tripSummary{TripID: "t1", Title: "环岛骑行"}
	if !Set(ctx, m, TripKey("t1"), want, TTLShort) {
		t.Fatalf("Set failed")
	}
	got, ok := Get[tripSummary](ctx, m, TripKey("t1"))
	if !ok {
		t.Fatalf("expected hit")
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	// TTL 到期后变成未命中
	clock.Advance(TTLShort + time.Second)
	if _, ok := Get[tripSummary](ctx, m, TripKey("t1")); ok {
		t.Fatalf("expected miss after ttl elapsed")
	}
}

func TestDeleteAndExists(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	Set(ctx, m, ProfileKey("u1"), "hello", TTLProfile)
	if !m.Exists(ctx, ProfileKey("u1")) {
		t.Fatalf("expected key to exist")
	}
	if !m.Delete(ctx, ProfileKey("u1")) {
		t.Fatalf("Delete failed")
	}
	if m.Exists(ctx, ProfileKey("u1")) {
		t.Fatalf("expected key gone after delete")
	}
}

func TestGetOrSetFetcherCalls(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	calls := 0
	fetch := func(ctx context.Context) (tripSummary, error) {
		calls++
		return tripSummary{TripID: "t2", Title: "高原徒步"}, nil
	}

	// 第一次：未命中，回源一次并回填
	v, err := GetOrSet(ctx, m, TripKey("t2"), TTLMedium, fetch)
	if err != nil {
		t.Fatalf("GetOrSet error: %v", err)
	}
	if v.Title != "高原徒步" {
		t.Fatalf("unexpected value: %+v", v)
	}
	if calls != 1 {
		t.Fatalf("expected 1 fetch call, got %d", calls)
	}

	// 第二次：命中，不回源
	if _, err := GetOrSet(ctx, m, TripKey("t2"), TTLMedium, fetch); err != nil {
		t.Fatalf("GetOrSet error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected fetch not called on hit, got %d calls", calls)
	}
}

func TestGetOrSetFetcherError(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	wantErr := errors.New("db down")
	_, err := GetOrSet(ctx, m, TripKey("t3"), TTLMedium, func(ctx context.Context) (tripSummary, error) {
		return tripSummary{}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected fetcher error to propagate, got %v", err)
	}
	// 失败的回源不能写缓存
	if m.Exists(ctx, TripKey("t3")) {
		t.Fatalf("failed fetch must not populate cache")
	}
}

func TestBatchGetSet(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	entries := map[string]tripSummary{
		TripKey("a"): {TripID: "a", Title: "A"},
		TripKey("b"): {TripID: "b", Title: "B"},
	}
	if !BatchSet(ctx, m, entries, TTLMedium) {
		t.Fatalf("BatchSet failed")
	}

	got := BatchGet[tripSummary](ctx, m, []string{TripKey("a"), TripKey("missing"), TripKey("b")})
	if len(got) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(got))
	}
	if got[0] == nil || got[0].Title != "A" {
		t.Fatalf("slot 0 wrong: %+v", got[0])
	}
	if got[1] != nil {
		t.Fatalf("slot 1 should be absent")
	}
	if got[2] == nil || got[2].Title != "B" {
		t.Fatalf("slot 2 wrong: %+v", got[2])
	}
}

// 未配置存储时所有操作都是安全的空操作：get→absent、set→false、exists→false
func TestNoopDegradation(t *testing.T) {
	ctx := context.Background()
	m := NewManager(kvstore.NewNoopStore())

	if m.SetRaw(ctx, TripKey("x"), "v", TTLShort) {
		t.Fatalf("noop set must report false")
	}
	if m.Delete(ctx, TripKey("x")) {
		t.Fatalf("noop delete must report false")
	}
	if _, ok := Get[string](ctx, m, TripKey("x")); ok {
		t.Fatalf("noop store must never hit")
	}
	if m.Exists(ctx, TripKey("x")) {
		t.Fatalf("noop exists must be false")
	}
	got := BatchGet[string](ctx, m, []string{"a", "b"})
	for i, v := range got {
		if v != nil {
			t.Fatalf("noop batchget slot %d not absent", i)
		}
	}
}

func TestGetOrSetCountProtected(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	calls := 0
	fetch := func() (uint64, bool, error) {
		calls++
		return 7, true, nil
	}

	v, err := m.GetOrSetCountProtected(ctx, GetLikeCountKey("t1"), fetch)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
	if calls != 1 {
		t.Fatalf("expected 1 db call, got %d", calls)
	}

	// 第二次命中缓存
	if _, err := m.GetOrSetCountProtected(ctx, GetLikeCountKey("t1"), fetch); err != nil {
		t.Fatalf("error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected cache hit, got %d db calls", calls)
	}
}

// 不存在的资源写空值缓存，不反复穿透回源
func TestCountProtectedNullCache(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()

	calls := 0
	fetch := func() (uint64, bool, error) {
		calls++
		return 0, false, nil
	}

	for i := 0; i < 3; i++ {
		v, err := m.GetOrSetCountProtected(ctx, GetLikeCountKey("ghost"), fetch)
		if err != nil {
			t.Fatalf("error: %v", err)
		}
		if v != 0 {
			t.Fatalf("expected 0 for missing trip, got %d", v)
		}
	}
	if calls != 1 {
		t.Fatalf("null cache should stop repeat fetches, got %d calls", calls)
	}
}
