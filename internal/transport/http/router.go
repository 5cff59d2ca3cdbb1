package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	jwtpkg "anonmail/backend/internal/auth/jwt"
	"anonmail/backend/internal/config"
	"anonmail/backend/internal/health"
	"anonmail/backend/internal/middleware"
	"anonmail/backend/internal/monitoring"
	"anonmail/backend/internal/service"
	"anonmail/backend/internal/storage"
	"anonmail/backend/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config          *config.Config
	IdentityService *service.IdentityService
	MessageService  *service.MessageService
	JWTManager      *jwtpkg.Manager
	Store           storage.Store
	Metrics         *monitoring.Metrics
	Health          *health.Handler
	WebSocketHub    *websocket.Hub
	Logger          *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	if deps.Metrics != nil {
		router.Use(middleware.HTTPMetrics(deps.Metrics))
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Access-Key"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	identityHandler := NewIdentityHandler(deps.IdentityService, deps.JWTManager, deps.Metrics, deps.Logger)
	inboxHandler := NewInboxHandler(deps.MessageService, deps.Logger)

	// 创建中间件
	inboxAuth := middleware.NewInboxAuth(deps.IdentityService, deps.JWTManager, deps.Logger)
	rateLimiter := middleware.NewRateLimiter(deps.Store, deps.Metrics, deps.Logger)

	rl := deps.Config.RateLimit
	generateLimit := rateLimiter.Limit("generate", int64(rl.GenerateMax), rl.GenerateWindow)
	accessLimit := rateLimiter.Limit("access", int64(rl.AccessMax), rl.AccessWindow)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Health != nil {
		router.GET("/live", gin.WrapF(deps.Health.LiveEndpoint))
		router.GET("/ready", gin.WrapF(deps.Health.ReadyEndpoint))
	}

	// Prometheus 指标
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Identity Routes ==========
		identityRoutes := v1.Group("/identity")
		{
			identityRoutes.POST("", generateLimit, identityHandler.Generate)
			identityRoutes.POST("/verify", accessLimit, identityHandler.Verify)
		}

		// ========== Inbox Routes ==========
		inboxRoutes := v1.Group("/inbox/:address")
		inboxRoutes.Use(inboxAuth.RequireInboxAccess())
		{
			inboxRoutes.GET("/messages", inboxHandler.ListMessages)
			inboxRoutes.GET("/messages/:messageId", inboxHandler.GetMessage)
			inboxRoutes.POST("/messages/:messageId/read", inboxHandler.MarkMessageRead)
		}

		// ========== WebSocket Routes ==========
		if deps.WebSocketHub != nil {
			v1.GET("/ws", websocket.HandleWebSocket(deps.WebSocketHub))
		}
	}

	return router
}
