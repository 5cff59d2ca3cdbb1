package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"anonmail/backend/internal/monitoring"
	"anonmail/backend/internal/storage"
)

// RateLimiter 基于存储后端的 IP 限流中间件。
//
// 计数窗口由存储层维护（Redis INCR+EXPIRE 或内存计数器），
// 多实例部署时共享同一份计数。存储不可用时放行，
// 限流是保护措施，不能成为单点。
type RateLimiter struct {
	store   storage.RateLimitRepository
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewRateLimiter 创建限流中间件
func NewRateLimiter(store storage.RateLimitRepository, metrics *monitoring.Metrics, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		store:   store,
		metrics: metrics,
		log:     log,
	}
}

// Limit 对指定范围按客户端 IP 限流。
//
// 参数:
//   - scope: 限流范围名称，同时作为计数键前缀
//   - max: 窗口内允许的最大请求数
//   - window: 计数窗口
func (rl *RateLimiter) Limit(scope string, max int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", scope, c.ClientIP())

		count, err := rl.store.IncrementRateLimit(key, window)
		if err != nil {
			rl.log.Warn("限流计数失败，放行请求",
				zap.String("scope", scope),
				zap.Error(err))
			c.Next()
			return
		}

		if count > max {
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitBlock(scope)
			}
			rl.log.Warn("请求被限流",
				zap.String("scope", scope),
				zap.String("ip", c.ClientIP()),
				zap.Int64("count", count))
			c.Header("Retry-After", fmt.Sprintf("%.0f", window.Seconds()))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
