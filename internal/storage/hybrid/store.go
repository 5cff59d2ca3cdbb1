package hybrid

import (
	"fmt"
	"time"

	"anonmail/backend/internal/domain"
	"anonmail/backend/internal/storage"
	"anonmail/backend/internal/storage/memory"
	"anonmail/backend/internal/storage/postgres"
	"anonmail/backend/internal/storage/redis"
)

// mailboxCacheTTL 邮箱热点缓存的过期时间。
//
// SMTP 收件路径对同一地址的查询非常集中，短缓存即可
// 明显降低数据库压力；邮箱记录本身几乎不变。
const mailboxCacheTTL = 10 * time.Minute

// Store 混合存储实现，结合 SQL 与 Redis。
//
// SQL 是唯一权威数据源；Redis 只做旁路缓存、限流计数与
// 事件发布。Redis 未配置时退化为纯 SQL 模式，限流计数
// 落到进程内计数器（多实例部署时各实例独立计数）。
type Store struct {
	sql   storage.Store
	redis *redis.Cache // 可为 nil
	local storage.RateLimitRepository
}

// NewStoreWithType 创建混合存储实例（指定数据库类型）。
//
// redisAddr 为空时不接入 Redis；配置了地址但连不上仍视为
// 部署错误，直接失败。
func NewStoreWithType(dbType, dsn, redisAddr, redisPassword string, redisDB int) (*Store, error) {
	var dbStore *postgres.Store
	var err error

	switch dbType {
	case "mysql":
		dbStore, err = postgres.NewMySQLStore(dsn)
	case "postgres", "postgresql":
		dbStore, err = postgres.NewStore(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: mysql, postgres)", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var redisCache *redis.Cache
	if redisAddr != "" {
		redisCache, err = redis.NewCache(redisAddr, redisPassword, redisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
	}

	return &Store{
		sql:   dbStore,
		redis: redisCache,
		local: memory.NewStore(),
	}, nil
}

// SaveMailbox 保存邮箱并写入缓存。
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	if err := s.sql.SaveMailbox(mailbox); err != nil {
		return err
	}
	if s.redis != nil {
		s.redis.CacheMailbox(mailbox, mailboxCacheTTL)
	}
	return nil
}

// GetMailboxByAddress 根据地址获取邮箱，优先命中缓存。
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	if s.redis != nil {
		if mailbox, err := s.redis.GetCachedMailbox(address); err == nil {
			return mailbox, nil
		}
	}

	mailbox, err := s.sql.GetMailboxByAddress(address)
	if err != nil {
		return nil, err
	}
	if s.redis != nil {
		s.redis.CacheMailbox(mailbox, mailboxCacheTTL)
	}
	return mailbox, nil
}

// TouchLastAccessed 刷新最近访问时间并使缓存失效。
func (s *Store) TouchLastAccessed(address string) error {
	if err := s.sql.TouchLastAccessed(address); err != nil {
		return err
	}
	if s.redis != nil {
		s.redis.DeleteCachedMailbox(address)
	}
	return nil
}

// SaveMessage 保存邮件并发布新邮件事件。
func (s *Store) SaveMessage(message *domain.Message) error {
	if err := s.sql.SaveMessage(message); err != nil {
		return err
	}
	if s.redis != nil {
		s.redis.PublishNewMail(message.Address, message)
	}
	return nil
}

// ListMessages 列出邮件（列表查询不缓存）。
func (s *Store) ListMessages(address string) ([]domain.Message, error) {
	return s.sql.ListMessages(address)
}

// GetMessage 获取单封邮件。
func (s *Store) GetMessage(address, messageID string) (*domain.Message, error) {
	return s.sql.GetMessage(address, messageID)
}

// MarkMessageRead 标记邮件已读。
func (s *Store) MarkMessageRead(address, messageID string) error {
	return s.sql.MarkMessageRead(address, messageID)
}

// AppendAccessLog 追加审计记录。
func (s *Store) AppendAccessLog(log *domain.AccessLog) error {
	return s.sql.AppendAccessLog(log)
}

// IncrementRateLimit 限流计数优先走 Redis，未配置时用本地计数。
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	if s.redis != nil {
		return s.redis.IncrementRateLimit(key, window)
	}
	return s.local.IncrementRateLimit(key, window)
}

// Close 关闭底层连接。
func (s *Store) Close() error {
	if err := s.sql.Close(); err != nil {
		return err
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

// Health 依次检查 SQL 与 Redis。
func (s *Store) Health() error {
	if err := s.sql.Health(); err != nil {
		return err
	}
	if s.redis != nil {
		return s.redis.Ping()
	}
	return nil
}
