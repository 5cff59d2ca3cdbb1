package storage

import (
	"errors"
	"time"

	"anonmail/backend/internal/domain"
)

var (
	// ErrMailboxNotFound 邮箱不存在
	ErrMailboxNotFound = errors.New("mailbox not found")
	// ErrMessageNotFound 邮件不存在
	ErrMessageNotFound = errors.New("message not found")
	// ErrAddressTaken 地址已被占用（唯一约束冲突，调用方可重试）
	ErrAddressTaken = errors.New("address already taken")
)

// MailboxRepository 定义邮箱数据存取操作。
type MailboxRepository interface {
	SaveMailbox(mailbox *domain.Mailbox) error
	GetMailboxByAddress(address string) (*domain.Mailbox, error)
	TouchLastAccessed(address string) error
}

// MessageRepository 定义邮件数据存取操作。
//
// SaveMessage 必须在单个事务内确认所属邮箱存在后再写入，
// 邮箱不存在时返回 ErrMailboxNotFound，不允许悬挂引用。
type MessageRepository interface {
	SaveMessage(message *domain.Message) error
	ListMessages(address string) ([]domain.Message, error)
	GetMessage(address, messageID string) (*domain.Message, error)
	MarkMessageRead(address, messageID string) error
}

// AccessLogRepository 定义访问审计记录的追加操作。
type AccessLogRepository interface {
	AppendAccessLog(log *domain.AccessLog) error
}

// RateLimitRepository 定义限流计数操作。
type RateLimitRepository interface {
	IncrementRateLimit(key string, window time.Duration) (int64, error)
}

// Store 定义完整的存储接口。
type Store interface {
	MailboxRepository
	MessageRepository
	AccessLogRepository
	RateLimitRepository

	Close() error
	Health() error
}
