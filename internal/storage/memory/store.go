package memory

import (
	"sort"
	"sync"
	"time"

	"anonmail/backend/internal/domain"
	"anonmail/backend/internal/storage"
)

// Store 使用内存保存邮箱、邮件与审计数据，主要用于开发验证与测试。
type Store struct {
	mu         sync.RWMutex
	mailboxes  map[string]*domain.Mailbox            // address -> mailbox
	messages   map[string]map[string]*domain.Message // address -> messageID -> message
	accessLogs []*domain.AccessLog

	rateLimits map[string]*rateLimitEntry
}

// rateLimitEntry 速率限制条目
type rateLimitEntry struct {
	Count     int64
	ExpiresAt time.Time
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		mailboxes:  make(map[string]*domain.Mailbox),
		messages:   make(map[string]map[string]*domain.Message),
		accessLogs: make([]*domain.AccessLog, 0),
		rateLimits: make(map[string]*rateLimitEntry),
	}
}

// SaveMailbox 保存邮箱信息。地址重复时返回 ErrAddressTaken。
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.mailboxes[mailbox.Address]; exists {
		return storage.ErrAddressTaken
	}
	clone := *mailbox
	s.mailboxes[mailbox.Address] = &clone
	return nil
}

// GetMailboxByAddress 根据完整地址获取邮箱。
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mailbox, ok := s.mailboxes[address]
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}
	clone := *mailbox
	return &clone, nil
}

// TouchLastAccessed 刷新邮箱的最近访问时间。
func (s *Store) TouchLastAccessed(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mailbox, ok := s.mailboxes[address]
	if !ok {
		return storage.ErrMailboxNotFound
	}
	mailbox.LastAccessedAt = time.Now().UTC()
	return nil
}

// SaveMessage 保存一封邮件。
//
// 邮箱存在性检查与写入在同一把锁内完成，保证不会产生悬挂引用。
func (s *Store) SaveMessage(message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mailboxes[message.Address]; !ok {
		return storage.ErrMailboxNotFound
	}

	box, ok := s.messages[message.Address]
	if !ok {
		box = make(map[string]*domain.Message)
		s.messages[message.Address] = box
	}
	clone := *message
	box[message.ID] = &clone
	return nil
}

// ListMessages 列出指定邮箱的全部邮件，按接收时间倒序。
func (s *Store) ListMessages(address string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.mailboxes[address]; !ok {
		return nil, storage.ErrMailboxNotFound
	}

	box := s.messages[address]
	result := make([]domain.Message, 0, len(box))
	for _, msg := range box {
		result = append(result, *msg)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})
	return result, nil
}

// GetMessage 获取单封邮件。
func (s *Store) GetMessage(address, messageID string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	box, ok := s.messages[address]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	msg, ok := box[messageID]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	clone := *msg
	return &clone, nil
}

// MarkMessageRead 将邮件标记为已读。
func (s *Store) MarkMessageRead(address, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	box, ok := s.messages[address]
	if !ok {
		return storage.ErrMessageNotFound
	}
	msg, ok := box[messageID]
	if !ok {
		return storage.ErrMessageNotFound
	}
	msg.IsRead = true
	return nil
}

// AppendAccessLog 追加一条访问审计记录。
func (s *Store) AppendAccessLog(log *domain.AccessLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *log
	s.accessLogs = append(s.accessLogs, &clone)
	return nil
}

// ListAccessLogs 返回全部审计记录的快照，供测试使用。
func (s *Store) ListAccessLogs() []domain.AccessLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AccessLog, 0, len(s.accessLogs))
	for _, log := range s.accessLogs {
		result = append(result, *log)
	}
	return result
}

// IncrementRateLimit 递增限流计数，窗口过期后重新计数。
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	entry, ok := s.rateLimits[key]
	if !ok || now.After(entry.ExpiresAt) {
		entry = &rateLimitEntry{ExpiresAt: now.Add(window)}
		s.rateLimits[key] = entry
	}
	entry.Count++
	return entry.Count, nil
}

// Close 关闭存储（内存实现为空操作）。
func (s *Store) Close() error {
	return nil
}

// Health 健康检查（内存实现始终健康）。
func (s *Store) Health() error {
	return nil
}
