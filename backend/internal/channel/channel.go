// Package channel 用“定长列表 + 轮询”模拟发布/订阅。
//
// 托管 Redis 不适合长连接 SUBSCRIBE，所以每个 (资源类型, 资源ID, 主题)
// 对应一个定长列表：发布 = LPUSH 到表头，LTRIM 只留最新 100 条，再给
// 整个列表续 1 小时 TTL（闲置频道自清理）。读方按自己的节奏 LRANGE
// 轮询，用最后消费的时间戳去重。
//
// 有损设计是接受的：轮询慢于 100 条被挤掉的读方会静默丢最旧的消息；
// 需要完整历史的调用方应该去查权威存储，不是这个频道。
package channel

import "fmt"

// 每个频道保留的最大消息数
const MaxMessages = 100

// 主题：一个 (kind, id, topic) 元组对应一个物理列表
const (
	TopicComments = "comments"
	TopicRating   = "rating"
	TopicLikes    = "likes"
	TopicSaves    = "saves"
	TopicPresence = "presence"
	TopicImages   = "images"
)

// 动作词表，按主题固定
const (
	// comments
	ActionNewComment    = "new_comment"
	ActionDeleteComment = "delete_comment"
	ActionEditComment   = "edit_comment"
	// rating
	ActionRatingChanged = "rating_changed"
	// likes
	ActionLike   = "like"
	ActionUnlike = "unlike"
	// saves
	ActionSave   = "save"
	ActionUnsave = "unsave"
	// presence
	ActionViewerJoined = "viewer_joined"
	ActionViewerLeft   = "viewer_left"
	ActionViewerUpdate = "viewer_update"
	// images
	ActionImageAdded      = "image_added"
	ActionImageDeleted    = "image_deleted"
	ActionFeaturedChanged = "featured_changed"
)

const keyChannelFmt = "channel:%s:%s:%s" // channel:<kind>:<id>:<topic>

// Key 是频道名 builder：纯函数，同一个元组永远落在同一个列表上。
func Key(resourceKind, resourceID, topic string) string {
	return fmt.Sprintf(keyChannelFmt, resourceKind, resourceID, topic)
}
