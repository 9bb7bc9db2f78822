package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"travelblogr-realtime-service/backend/internal/channel"
	"travelblogr-realtime-service/backend/internal/presence"
)

// 资源类型目前只有行程详情页在用在线人数，kind 固定 trip；
// 其他资源接入时从路由层传进来即可
const resourceKindTrip = "trip"

type PresenceHandler struct {
	tracker  *presence.Tracker
	emulator *channel.Emulator
}

func NewPresenceHandler(tracker *presence.Tracker, emulator *channel.Emulator) *PresenceHandler {
	return &PresenceHandler{tracker: tracker, emulator: emulator}
}

// 兼容多种前端传参方式：JSON body 的 tripId / query 的 trip_id / header
func tripIDFromPost(c *gin.Context) string {
	var req struct {
		TripID string `json:"tripId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	if req.TripID != "" {
		return req.TripID
	}
	if id := c.Query("trip_id"); id != "" {
		return id
	}
	return c.GetHeader("tripid")
}

func tripIDFromQuery(c *gin.Context) string {
	if id := c.Query("trip_id"); id != "" {
		return id
	}
	if id := c.Query("tripId"); id != "" {
		return id
	}
	return c.GetHeader("tripid")
}

func viewerIDFrom(c *gin.Context) (string, bool) {
	v, ok := c.Get("userId")
	if !ok {
		return "", false
	}
	userID, ok := v.(uint64)
	if !ok {
		return "", false
	}
	return strconv.FormatUint(userID, 10), true
}

// Heartbeat：浏览者心跳。返回当前活跃人数。
func (h *PresenceHandler) Heartbeat() gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID := tripIDFromPost(c)
		if tripID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing trip_id"})
			return
		}
		viewerID, ok := viewerIDFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		count := h.tracker.TrackViewer(c.Request.Context(), resourceKindTrip, tripID, viewerID)
		c.JSON(http.StatusOK, gin.H{"count": count})
	}
}

// Viewers：只读查询当前活跃名单，不发事件。
func (h *PresenceHandler) Viewers() gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID := tripIDFromQuery(c)
		if tripID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing trip_id"})
			return
		}
		viewers := h.tracker.GetActiveViewers(c.Request.Context(), resourceKindTrip, tripID)
		if viewers == nil {
			viewers = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"count": len(viewers), "viewers": viewers})
	}
}

// Leave：显式离开（页面关闭时前端 beacon 调用）。
func (h *PresenceHandler) Leave() gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID := tripIDFromPost(c)
		if tripID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing trip_id"})
			return
		}
		viewerID, ok := viewerIDFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		h.tracker.RemoveViewer(c.Request.Context(), resourceKindTrip, tripID, viewerID)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// Events：客户端轮询事件频道。
// ?trip_id=&topic=&since=<上次消费到的时间戳毫秒>
func (h *PresenceHandler) Events() gin.HandlerFunc {
	valid := map[string]bool{
		channel.TopicComments: true,
		channel.TopicRating:   true,
		channel.TopicLikes:    true,
		channel.TopicSaves:    true,
		channel.TopicPresence: true,
		channel.TopicImages:   true,
	}
	return func(c *gin.Context) {
		tripID := tripIDFromQuery(c)
		if tripID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing trip_id"})
			return
		}
		topic := c.Query("topic")
		if !valid[topic] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown topic"})
			return
		}
		since, _ := strconv.ParseInt(c.Query("since"), 10, 64)
		msgs := h.emulator.Poll(c.Request.Context(), resourceKindTrip, tripID, topic, since)
		if msgs == nil {
			msgs = []channel.Message{}
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}
