package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"anonmail/backend/internal/service"
	"anonmail/backend/internal/storage"
)

// InboxHandler 收件箱相关的 HTTP 处理器
//
// 所有路由都挂在 InboxAuth 中间件之后，进入处理器时
// 上下文中的地址已通过凭据校验。
type InboxHandler struct {
	messages *service.MessageService
	log      *zap.Logger
}

// NewInboxHandler 创建收件箱处理器
func NewInboxHandler(messages *service.MessageService, log *zap.Logger) *InboxHandler {
	return &InboxHandler{
		messages: messages,
		log:      log,
	}
}

// ListMessages 列出收件箱中的邮件，按接收时间倒序
//
// GET /v1/inbox/:address/messages
func (h *InboxHandler) ListMessages(c *gin.Context) {
	address := c.GetString("address")

	msgs, err := h.messages.List(address)
	if err != nil {
		h.log.Error("获取邮件列表失败",
			zap.String("address", address),
			zap.Error(err))
		InternalError(c, MsgMessageListFailed)
		return
	}

	Success(c, gin.H{
		"messages": msgs,
		"total":    len(msgs),
	})
}

// GetMessage 获取单封邮件详情
//
// GET /v1/inbox/:address/messages/:messageId
func (h *InboxHandler) GetMessage(c *gin.Context) {
	address := c.GetString("address")
	messageID := c.Param("messageId")

	msg, err := h.messages.Get(address, messageID)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			NotFound(c, MsgMessageNotFound)
			return
		}
		h.log.Error("获取邮件详情失败",
			zap.String("address", address),
			zap.String("message_id", messageID),
			zap.Error(err))
		InternalError(c, MsgMessageGetFailed)
		return
	}

	Success(c, msg)
}

// MarkMessageRead 将邮件标记为已读
//
// POST /v1/inbox/:address/messages/:messageId/read
func (h *InboxHandler) MarkMessageRead(c *gin.Context) {
	address := c.GetString("address")
	messageID := c.Param("messageId")

	if err := h.messages.MarkRead(address, messageID); err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			NotFound(c, MsgMessageNotFound)
			return
		}
		h.log.Error("标记已读失败",
			zap.String("address", address),
			zap.String("message_id", messageID),
			zap.Error(err))
		InternalError(c, MsgMessageMarkReadFailed)
		return
	}

	Success(c, nil)
}
