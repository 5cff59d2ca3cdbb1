package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"anonmail/backend/internal/auth/jwt"
	"anonmail/backend/internal/service"
)

// InboxAuth 收件箱访问认证中间件
//
// 两种凭据择一：访问密钥（12 词或 64 位十六进制摘要），
// 或此前校验密钥时换取的会话令牌。所有失败路径返回同一个
// 401 应答，不泄露地址是否存在。
type InboxAuth struct {
	identities *service.IdentityService
	tokens     *jwt.Manager
	log        *zap.Logger
}

// NewInboxAuth 创建收件箱认证中间件
func NewInboxAuth(identities *service.IdentityService, tokens *jwt.Manager, log *zap.Logger) *InboxAuth {
	return &InboxAuth{
		identities: identities,
		tokens:     tokens,
		log:        log,
	}
}

// RequireInboxAccess 要求收件箱访问凭据
func (ia *InboxAuth) RequireInboxAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		address := strings.ToLower(strings.TrimSpace(c.Param("address")))
		if address == "" {
			ia.reject(c)
			return
		}

		// 1. 会话令牌
		if token := ia.extractBearer(c); token != "" {
			claims, err := ia.tokens.ValidateToken(token)
			if err == nil && claims.Address == address {
				c.Set("address", address)
				c.Next()
				return
			}
			ia.reject(c)
			return
		}

		// 2. 访问密钥
		accessKey := ia.extractAccessKey(c)
		if accessKey == "" {
			ia.reject(c)
			return
		}

		if _, err := ia.identities.Verify(address, accessKey, c.ClientIP()); err != nil {
			ia.reject(c)
			return
		}

		c.Set("address", address)
		c.Next()
	}
}

// reject 以统一的应答拒绝请求。
func (ia *InboxAuth) reject(c *gin.Context) {
	ia.log.Warn("收件箱认证失败",
		zap.String("path", c.Request.URL.Path),
		zap.String("ip", c.ClientIP()))
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "invalid credentials",
	})
	c.Abort()
}

// extractBearer 从 Authorization 头提取会话令牌
func (ia *InboxAuth) extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// extractAccessKey 从请求头或查询参数提取访问密钥
func (ia *InboxAuth) extractAccessKey(c *gin.Context) string {
	if key := c.GetHeader("X-Access-Key"); key != "" {
		return key
	}
	return c.Query("access_key")
}
