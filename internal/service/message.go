package service

import (
	"time"

	"github.com/google/uuid"

	"anonmail/backend/internal/domain"
	"anonmail/backend/internal/storage"
)

// Notifier 新邮件通知接口，由 WebSocket Hub 实现。
type Notifier interface {
	NotifyNewMail(address string, message *domain.Message)
}

// MessageService 封装邮件处理逻辑。
type MessageService struct {
	repo     storage.MessageRepository
	notifier Notifier
}

// NewMessageService 创建邮件业务服务。
func NewMessageService(repo storage.MessageRepository) *MessageService {
	return &MessageService{repo: repo}
}

// SetNotifier 设置新邮件通知器（可选）。
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

// CommitMessageInput 定义提交一封邮件的输入。
type CommitMessageInput struct {
	Address  string
	Sender   string
	Subject  string
	Body     string
	Received time.Time
}

// Commit 持久化一封入站邮件。
//
// 这是 SMTP 提交路径的落库步骤：存储层在单个事务内
// 确认邮箱存在后写入；邮箱不存在时返回 ErrMailboxNotFound，
// 由调用方决定静默丢弃。
func (s *MessageService) Commit(input CommitMessageInput) (*domain.Message, error) {
	now := time.Now().UTC()
	if input.Received.IsZero() {
		input.Received = now
	}

	message := &domain.Message{
		ID:         uuid.NewString(),
		Address:    input.Address,
		Sender:     input.Sender,
		Subject:    input.Subject,
		Body:       input.Body,
		ReceivedAt: input.Received,
		IsRead:     false,
		CreatedAt:  now,
	}

	if err := s.repo.SaveMessage(message); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMail(message.Address, message)
	}

	return message, nil
}

// List 列出指定邮箱下的邮件，按接收时间倒序。
func (s *MessageService) List(address string) ([]domain.Message, error) {
	return s.repo.ListMessages(address)
}

// Get 获取单封邮件详情。
func (s *MessageService) Get(address, messageID string) (*domain.Message, error) {
	return s.repo.GetMessage(address, messageID)
}

// MarkRead 将邮件标记为已读。
func (s *MessageService) MarkRead(address, messageID string) error {
	return s.repo.MarkMessageRead(address, messageID)
}
