package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"travelblogr-realtime-service/backend/internal/channel"
	"travelblogr-realtime-service/backend/internal/repo"
)

// 键名
// Like / Save: 行程的计数 string
// LikedUser / SavedUser: 点过赞/收藏过的用户ID set（幂等去重用）

const (
	// 用{}包住 tripID：Redis Cluster 只对{}内部做 CRC16 哈希，
	// 保证同一个行程的计数键和去重集合落在同一个槽上，Lua 脚本才能同时操作
	LikeCountKey = "Like:{tripID:%s}"
	SaveCountKey = "Save:{tripID:%s}"

	LikedUserKey = "LikedUser:{tripID:%s}"
	SavedUserKey = "SavedUser:{tripID:%s}"
)

func GetLikeCountKey(tripID string) string { return fmt.Sprintf(LikeCountKey, tripID) }
func GetSaveCountKey(tripID string) string { return fmt.Sprintf(SaveCountKey, tripID) }
func GetLikedUserKey(tripID string) string { return fmt.Sprintf(LikedUserKey, tripID) }
func GetSavedUserKey(tripID string) string { return fmt.Sprintf(SavedUserKey, tripID) }

// ErrInteractionUnavailable：没配 Redis 时互动写入不可用。
// 计数是要落账的，不能像只读缓存那样静默丢弃。
var ErrInteractionUnavailable = errors.New("interaction store unavailable")

// incrScript：SADD 去重 + INCR 计数一个脚本内完成。
// added 为 1 表示用户第一次操作，0 表示重复操作（幂等，不再加计数）。
const incrScript = `
local added = redis.call("SADD", KEYS[1], ARGV[1])
if added == 1 then
	local cnt = redis.call("INCR", KEYS[2])
	return {1, cnt}
end
local v = redis.call("GET", KEYS[2])
if not v then v = 0 else v = tonumber(v) end
return {0, v}
`

// decrScript：SREM + DECR，计数兜底不为负（外部异常调用也能兜住）。
const decrScript = `
local removed = redis.call("SREM", KEYS[1], ARGV[1])
if removed == 1 then
	local cnt = redis.call("DECR", KEYS[2])
	if cnt < 0 then
		redis.call("SET", KEYS[2], 0)
		cnt = 0
	end
	return {1, cnt}
end
local v = redis.call("GET", KEYS[2])
if not v then v = 0 else v = tonumber(v) end
return {0, v}
`

type redisInteraction struct {
	rdb           *redis.Client
	manager       *Manager
	emulator      *channel.Emulator
	tripStatsRepo repo.TripStatsRepo
}

// 确保 redisInteraction 实现了 repo.InteractionRepo 接口
var _ repo.InteractionRepo = (*redisInteraction)(nil)

// NewRedisInteraction：rdb 可以为 nil（未配置 Redis），此时写操作返回
// ErrInteractionUnavailable，读操作走空值缓存兜底。
func NewRedisInteraction(rdb *redis.Client, manager *Manager, emulator *channel.Emulator, tripStatsRepo repo.TripStatsRepo) repo.InteractionRepo {
	return &redisInteraction{
		rdb:           rdb,
		manager:       manager,
		emulator:      emulator,
		tripStatsRepo: tripStatsRepo,
	}
}

// 将 any 类型转换为 int64 类型，无法转换返回错误
func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type: %T", v)
	}
}

// 解析 Lua 脚本的返回值 {changed, cnt}：
// changed 是 1 表示本次确实发生了变化，cnt 是最新计数
func evalChangedCount(res any) (changed bool, cnt uint64, err error) {
	arr, ok := res.([]interface{})
	if !ok || len(arr) != 2 {
		return false, 0, errors.New("invalid result")
	}
	ch, err := toInt64(arr[0])
	if err != nil {
		return false, 0, errors.New("invalid result")
	}
	c, err := toInt64(arr[1])
	if err != nil {
		return false, 0, errors.New("invalid result")
	}
	if c < 0 {
		c = 0
	}
	return ch == 1, uint64(c), nil
}

func (r *redisInteraction) mutate(ctx context.Context, script, setKey, countKey string, userID uint64) (changed bool, cnt uint64, err error) {
	if r.rdb == nil {
		return false, 0, ErrInteractionUnavailable
	}
	res, err := r.rdb.Eval(ctx, script, []string{setKey, countKey}, userID).Result()
	if err != nil {
		return false, 0, err
	}
	return evalChangedCount(res)
}

// 互动成功后通知其他在看的客户端。事件是副作用，Publish 自己吞错。
func (r *redisInteraction) notify(ctx context.Context, tripID, topic, action string, userID, cnt uint64) {
	r.emulator.Publish(ctx, "trip", tripID, topic, action, map[string]any{
		"userId": userID,
		"count":  cnt,
	})
}

func (r *redisInteraction) IncrLike(ctx context.Context, tripID string, userID uint64) (uint64, error) {
	changed, cnt, err := r.mutate(ctx, incrScript, GetLikedUserKey(tripID), GetLikeCountKey(tripID), userID)
	if err != nil {
		return 0, err
	}
	if changed {
		r.notify(ctx, tripID, channel.TopicLikes, channel.ActionLike, userID, cnt)
	}
	return cnt, nil
}

func (r *redisInteraction) DecrLike(ctx context.Context, tripID string, userID uint64) (uint64, error) {
	changed, cnt, err := r.mutate(ctx, decrScript, GetLikedUserKey(tripID), GetLikeCountKey(tripID), userID)
	if err != nil {
		return 0, err
	}
	if changed {
		r.notify(ctx, tripID, channel.TopicLikes, channel.ActionUnlike, userID, cnt)
	}
	return cnt, nil
}

func (r *redisInteraction) IncrSave(ctx context.Context, tripID string, userID uint64) (uint64, error) {
	changed, cnt, err := r.mutate(ctx, incrScript, GetSavedUserKey(tripID), GetSaveCountKey(tripID), userID)
	if err != nil {
		return 0, err
	}
	if changed {
		r.notify(ctx, tripID, channel.TopicSaves, channel.ActionSave, userID, cnt)
	}
	return cnt, nil
}

func (r *redisInteraction) DecrSave(ctx context.Context, tripID string, userID uint64) (uint64, error) {
	changed, cnt, err := r.mutate(ctx, decrScript, GetSavedUserKey(tripID), GetSaveCountKey(tripID), userID)
	if err != nil {
		return 0, err
	}
	if changed {
		r.notify(ctx, tripID, channel.TopicSaves, channel.ActionUnsave, userID, cnt)
	}
	return cnt, nil
}

// 读路径走带防击穿的旁路缓存，未命中回源 MySQL 的 trip_stats
func (r *redisInteraction) GetLike(ctx context.Context, tripID string) (uint64, error) {
	return r.manager.GetOrSetCountProtected(ctx, GetLikeCountKey(tripID), func() (uint64, bool, error) {
		stats, err := r.tripStatsRepo.GetTripStats(ctx, tripID)
		if err != nil {
			return 0, false, err
		}
		// 触发空值缓存
		if stats == nil {
			return 0, false, nil
		}
		return stats.LikeCount, true, nil
	})
}

func (r *redisInteraction) GetSave(ctx context.Context, tripID string) (uint64, error) {
	return r.manager.GetOrSetCountProtected(ctx, GetSaveCountKey(tripID), func() (uint64, bool, error) {
		stats, err := r.tripStatsRepo.GetTripStats(ctx, tripID)
		if err != nil {
			return 0, false, err
		}
		// 触发空值缓存
		if stats == nil {
			return 0, false, nil
		}
		return stats.SaveCount, true, nil
	})
}
