package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"anonmail/backend/internal/auth/jwt"
	"anonmail/backend/internal/monitoring"
	"anonmail/backend/internal/service"
)

// IdentityHandler 身份相关的 HTTP 处理器
type IdentityHandler struct {
	identities *service.IdentityService
	tokens     *jwt.Manager
	metrics    *monitoring.Metrics
	log        *zap.Logger
}

// NewIdentityHandler 创建身份处理器
func NewIdentityHandler(identities *service.IdentityService, tokens *jwt.Manager, metrics *monitoring.Metrics, log *zap.Logger) *IdentityHandler {
	return &IdentityHandler{
		identities: identities,
		tokens:     tokens,
		metrics:    metrics,
		log:        log,
	}
}

// verifyRequest 验证请求体
type verifyRequest struct {
	Address   string `json:"emailAddress" binding:"required"`
	AccessKey string `json:"accessKey" binding:"required"`
}

// verifyResponse 验证成功的响应体
type verifyResponse struct {
	Address        string    `json:"emailAddress"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	Session        *jwt.SessionToken `json:"session,omitempty"`
}

// Generate 生成一个新的匿名邮箱身份
//
// POST /v1/identity
func (h *IdentityHandler) Generate(c *gin.Context) {
	result, err := h.identities.Generate(c.ClientIP())
	if err != nil {
		h.log.Error("生成身份失败", zap.Error(err))
		InternalError(c, MsgIdentityCreateFailed)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordIdentityGenerated()
	}

	Created(c, result)
}

// Verify 校验地址与访问密钥，成功时签发会话令牌
//
// POST /v1/identity/verify
func (h *IdentityHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	mailbox, err := h.identities.Verify(req.Address, req.AccessKey, c.ClientIP())
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordVerifyAttempt("failure")
		}
		if errors.Is(err, service.ErrVerifyFailed) {
			Unauthorized(c, MsgInvalidCredentials)
			return
		}
		h.log.Error("验证身份失败", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordVerifyAttempt("success")
	}

	resp := verifyResponse{
		Address:        mailbox.Address,
		CreatedAt:      mailbox.CreatedAt,
		LastAccessedAt: mailbox.LastAccessedAt,
	}

	session, err := h.tokens.IssueSessionToken(mailbox.Address)
	if err != nil {
		// 令牌签发失败不影响本次验证结果，后续请求仍可携带密钥
		h.log.Error("签发会话令牌失败", zap.Error(err))
	} else {
		resp.Session = session
	}

	Success(c, resp)
}
