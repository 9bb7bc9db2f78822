// Package presence 跟踪“谁正在看某个资源”，不依赖每个浏览者的长连接。
//
// 每个资源一个 ZSet：member=viewerID，score=最近一次心跳的 Unix 毫秒。
// “活跃”永远是查询时刻往前推 5 分钟窗口内的成员 —— 过期成员不会被
// 逐个删除，只是落到窗口外，直到被新心跳覆盖或显式移除。整个 ZSet
// 自身也带 5 分钟 TTL，资源 5 分钟没有任何心跳就整键回收。
package presence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"travelblogr-realtime-service/backend/internal/channel"
	"travelblogr-realtime-service/backend/internal/kvstore"
)

const (
	// ActiveWindow 同时是活跃判定窗口和整个 ZSet 的 TTL
	ActiveWindow = 5 * time.Minute
	// viewer_update 事件里最多带多少个 viewerID（前端头像展示用）
	maxViewersInEvent = 10
)

const keyViewersFmt = "presence:%s:%s" // presence:<kind>:<id>

func viewersKey(resourceKind, resourceID string) string {
	return fmt.Sprintf(keyViewersFmt, resourceKind, resourceID)
}

// Tracker 的所有方法都是尽力而为：存储错误打日志后降级为
// 空名单/零计数，绝不向调用方抛错。
type Tracker struct {
	store    kvstore.Store
	emulator *channel.Emulator
	now      func() time.Time
}

func NewTracker(store kvstore.Store, emulator *channel.Emulator) *Tracker {
	return &Tracker{store: store, emulator: emulator, now: time.Now}
}

// NewTrackerWithClock：测试用，注入时钟模拟窗口流逝。
func NewTrackerWithClock(store kvstore.Store, emulator *channel.Emulator, now func() time.Time) *Tracker {
	return &Tracker{store: store, emulator: emulator, now: now}
}

// TrackViewer 记录一次心跳并返回当前活跃人数：
// ZADD score=now → 整键续 5 分钟 TTL → 窗口内 ZRANGEBYSCORE 拿名单 →
// 发 viewer_update 事件（人数 + 前 10 个 viewerID）。
// ZADD 确实新增了成员时（第一次心跳）额外发一条 viewer_joined。
func (t *Tracker) TrackViewer(ctx context.Context, resourceKind, resourceID, viewerID string) int {
	key := viewersKey(resourceKind, resourceID)
	now := t.now()

	added, err := t.store.ZAdd(ctx, key, float64(now.UnixMilli()), viewerID)
	if err != nil {
		// 未配置存储时在线人数安静地退化为 0
		if !errors.Is(err, kvstore.ErrNoStore) {
			log.Printf("presence: zadd %q failed: %v", key, err)
		}
		return 0
	}
	if err := t.store.Expire(ctx, key, ActiveWindow); err != nil && !errors.Is(err, kvstore.ErrNoStore) {
		log.Printf("presence: expire %q failed: %v", key, err)
	}

	viewers := t.activeViewers(ctx, key, now)
	if added > 0 {
		t.emulator.Publish(ctx, resourceKind, resourceID, channel.TopicPresence,
			channel.ActionViewerJoined, map[string]any{"viewerId": viewerID})
	}
	t.publishRoster(ctx, resourceKind, resourceID, channel.ActionViewerUpdate, viewers)
	return len(viewers)
}

// GetActiveViewers 只做窗口查询，不发事件。
func (t *Tracker) GetActiveViewers(ctx context.Context, resourceKind, resourceID string) []string {
	return t.activeViewers(ctx, viewersKey(resourceKind, resourceID), t.now())
}

// RemoveViewer 把浏览者移出名单（显式离开），重算名单后发 viewer_left。
func (t *Tracker) RemoveViewer(ctx context.Context, resourceKind, resourceID, viewerID string) {
	key := viewersKey(resourceKind, resourceID)
	if err := t.store.ZRem(ctx, key, viewerID); err != nil {
		if !errors.Is(err, kvstore.ErrNoStore) {
			log.Printf("presence: zrem %q failed: %v", key, err)
		}
		return
	}
	viewers := t.activeViewers(ctx, key, t.now())
	payload := rosterPayload(viewers)
	payload["viewerId"] = viewerID
	t.emulator.Publish(ctx, resourceKind, resourceID, channel.TopicPresence,
		channel.ActionViewerLeft, payload)
}

// 窗口查询：[now-5min, now]，score 在窗口外的成员视为已离开
func (t *Tracker) activeViewers(ctx context.Context, key string, now time.Time) []string {
	min := float64(now.Add(-ActiveWindow).UnixMilli())
	max := float64(now.UnixMilli())
	viewers, err := t.store.ZRangeByScore(ctx, key, min, max)
	if err != nil {
		log.Printf("presence: zrangebyscore %q failed: %v", key, err)
		return nil
	}
	return viewers
}

func (t *Tracker) publishRoster(ctx context.Context, resourceKind, resourceID, action string, viewers []string) {
	t.emulator.Publish(ctx, resourceKind, resourceID, channel.TopicPresence, action, rosterPayload(viewers))
}

func rosterPayload(viewers []string) map[string]any {
	head := viewers
	if len(head) > maxViewersInEvent {
		head = head[:maxViewersInEvent]
	}
	return map[string]any{
		"count":   len(viewers),
		"viewers": head,
	}
}
