package httptransport

import (
	"anonmail/backend/internal/service"
	"anonmail/backend/internal/storage"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// 身份错误。地址不存在与密钥错误映射到同一条消息，
	// 应答内容不能比 ErrVerifyFailed 本身泄露更多信息。
	service.ErrVerifyFailed: "邮箱地址或访问密钥错误",

	// 邮件错误
	storage.ErrMessageNotFound: "邮件不存在",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest = "请求参数格式错误"

	// 认证相关
	MsgInvalidCredentials = "邮箱地址或访问密钥错误"

	// 身份相关
	MsgIdentityCreateFailed = "生成邮箱身份失败"

	// 邮件相关
	MsgMessageNotFound       = "邮件不存在"
	MsgMessageListFailed     = "获取邮件列表失败"
	MsgMessageGetFailed      = "获取邮件详情失败"
	MsgMessageMarkReadFailed = "标记已读失败"

	// 服务器错误
	MsgInternalError = "服务器内部错误，请稍后重试"
)
