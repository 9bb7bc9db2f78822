package channel

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"travelblogr-realtime-service/backend/internal/kvstore"
)

// 整个列表的 TTL，发布时刷新
const channelTTL = 1 * time.Hour

// Message 是频道里的一条消息。Payload 的字段按主题各异，
// Timestamp 是发布时刻的 Unix 毫秒，读方用它做去重水位。
type Message struct {
	Action    string         `json:"action"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// Emulator 是所有主题共用的发布/轮询入口。
type Emulator struct {
	store kvstore.Store
	now   func() time.Time
}

func NewEmulator(store kvstore.Store) *Emulator {
	return &Emulator{store: store, now: time.Now}
}

// NewEmulatorWithClock：测试用，注入时钟控制消息时间戳。
func NewEmulatorWithClock(store kvstore.Store, now func() time.Time) *Emulator {
	return &Emulator{store: store, now: now}
}

// Publish 向频道追加一条消息：LPUSH 到表头 → LTRIM 留最新 100 条 →
// 整表续 1 小时 TTL。
//
// 通知只是状态变更操作的副作用，不参与事务：所有错误打日志后吞掉，
// Publish 永远不会让触发它的写操作失败，所以没有返回值。
func (e *Emulator) Publish(ctx context.Context, resourceKind, resourceID, topic, action string, payload map[string]any) {
	key := Key(resourceKind, resourceID, topic)
	msg := Message{
		Action:    action,
		Payload:   payload,
		Timestamp: e.now().UnixMilli(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("channel: marshal message for %q failed: %v", key, err)
		return
	}
	if err := e.store.LPush(ctx, key, string(data)); err != nil {
		// 未配置存储时事件静默丢弃，不刷日志
		if !errors.Is(err, kvstore.ErrNoStore) {
			log.Printf("channel: lpush %q failed: %v", key, err)
		}
		return
	}
	if err := e.store.LTrim(ctx, key, 0, MaxMessages-1); err != nil {
		log.Printf("channel: ltrim %q failed: %v", key, err)
	}
	if err := e.store.Expire(ctx, key, channelTTL); err != nil {
		log.Printf("channel: expire %q failed: %v", key, err)
	}
}

// Poll 读取频道里时间戳晚于 since（Unix 毫秒）的消息，最新的在前。
// since 传 0 取整个列表。出错降级为空结果，只打日志。
// 解析失败的单条消息跳过，不影响其余消息。
func (e *Emulator) Poll(ctx context.Context, resourceKind, resourceID, topic string, since int64) []Message {
	key := Key(resourceKind, resourceID, topic)
	raws, err := e.store.LRange(ctx, key, 0, MaxMessages-1)
	if err != nil {
		log.Printf("channel: lrange %q failed: %v", key, err)
		return nil
	}
	msgs := make([]Message, 0, len(raws))
	for _, raw := range raws {
		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			log.Printf("channel: unmarshal message from %q failed: %v", key, err)
			continue
		}
		// 列表是最新在前的，碰到不晚于水位的消息后面只会更旧
		if since > 0 && msg.Timestamp <= since {
			break
		}
		msgs = append(msgs, msg)
	}
	return msgs
}
