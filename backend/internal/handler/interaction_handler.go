package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"travelblogr-realtime-service/backend/internal/cache"
	"travelblogr-realtime-service/backend/internal/repo"
)

type InteractionHandler struct {
	repo repo.InteractionRepo
}

func NewInteractionHandler(r repo.InteractionRepo) *InteractionHandler {
	return &InteractionHandler{repo: r}
}

// 工厂函数
// 输入：InteractionRepo 接口定义的增减函数
// 输出：gin.HandlerFunc，用于处理请求
// POST 的参数走请求体（兼容 query/header，见 tripIDFromPost）
func (h *InteractionHandler) makeMutateHandler(
	fn func(context.Context, string, uint64) (uint64, error),
) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID := tripIDFromPost(c)
		if tripID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing trip_id"})
			return
		}
		v, ok := c.Get("userId")
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		userID, ok := v.(uint64)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		val, err := fn(c.Request.Context(), tripID, userID)
		if err != nil {
			if errors.Is(err, cache.ErrInteractionUnavailable) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"value": val})
	}
}

// GET 请求的参数通过 URL 传递
func (h *InteractionHandler) makeValueHandler(
	fn func(context.Context, string) (uint64, error),
) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID := tripIDFromQuery(c)
		if tripID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing trip_id"})
			return
		}
		val, err := fn(c.Request.Context(), tripID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"value": val})
	}
}

func (h *InteractionHandler) IncrLike() gin.HandlerFunc { return h.makeMutateHandler(h.repo.IncrLike) }
func (h *InteractionHandler) DecrLike() gin.HandlerFunc { return h.makeMutateHandler(h.repo.DecrLike) }
func (h *InteractionHandler) IncrSave() gin.HandlerFunc { return h.makeMutateHandler(h.repo.IncrSave) }
func (h *InteractionHandler) DecrSave() gin.HandlerFunc { return h.makeMutateHandler(h.repo.DecrSave) }

func (h *InteractionHandler) GetLike() gin.HandlerFunc { return h.makeValueHandler(h.repo.GetLike) }
func (h *InteractionHandler) GetSave() gin.HandlerFunc { return h.makeValueHandler(h.repo.GetSave) }
