package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"travelblogr-realtime-service/backend/internal/ratelimit"
)

// RateLimitMiddleware 在敏感/高开销操作前做固定窗口限流。
// 身份优先用登录用户ID，匿名请求退化为客户端IP。
// 限流层自身出错时 Check 会 fail open，这里不用再兜。
func RateLimitMiddleware(limiter *ratelimit.Limiter, action string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := c.ClientIP()
		if v, ok := c.Get("userId"); ok {
			if userID, ok := v.(uint64); ok {
				identifier = strconv.FormatUint(userID, 10)
			}
		}

		res := limiter.Check(c.Request.Context(), action, identifier, limit, window)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt, 10))

		if !res.Allowed {
			c.AbortWithStatusJSON(429, gin.H{
				"code":    "RATE_LIMITED",
				"message": "too many requests",
			})
			return
		}
		c.Next()
	}
}
