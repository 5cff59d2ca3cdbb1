package postgres

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"anonmail/backend/internal/domain"
	"anonmail/backend/internal/storage"
)

// Store 基于 GORM 的 SQL 存储实现，支持 PostgreSQL 与 MySQL。
type Store struct {
	db *gorm.DB
}

// NewStore 创建 PostgreSQL 存储实例。
func NewStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn))
}

// NewMySQLStore 创建 MySQL 存储实例。
func NewMySQLStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn))
}

// NewStoreWithDialector 使用指定的 GORM dialector 创建存储实例。
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Migrate 自动迁移数据库表结构。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Mailbox{},
		&domain.Message{},
		&domain.AccessLog{},
	)
}

func (s *Store) migrate() error {
	return Migrate(s.db)
}

// SaveMailbox 保存邮箱信息。
//
// 地址唯一约束冲突映射为 ErrAddressTaken，调用方据此重试。
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	err := s.db.Create(mailbox).Error
	if err != nil && isDuplicateKey(err) {
		return storage.ErrAddressTaken
	}
	return err
}

// GetMailboxByAddress 根据完整地址获取邮箱。
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	err := s.db.Where("address = ?", address).First(&mailbox).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMailboxNotFound
		}
		return nil, err
	}
	return &mailbox, nil
}

// TouchLastAccessed 刷新邮箱的最近访问时间。
func (s *Store) TouchLastAccessed(address string) error {
	result := s.db.Model(&domain.Mailbox{}).
		Where("address = ?", address).
		Update("last_accessed_at", time.Now().UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrMailboxNotFound
	}
	return nil
}

// SaveMessage 保存一封邮件。
//
// 在单个事务内确认所属邮箱存在后写入，保证引用完整性
// 由提交路径保证而非延迟约束检查。
func (s *Store) SaveMessage(message *domain.Message) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Mailbox{}).
			Where("address = ?", message.Address).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return storage.ErrMailboxNotFound
		}
		return tx.Create(message).Error
	})
}

// ListMessages 列出指定邮箱的全部邮件，按接收时间倒序。
func (s *Store) ListMessages(address string) ([]domain.Message, error) {
	var count int64
	if err := s.db.Model(&domain.Mailbox{}).
		Where("address = ?", address).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, storage.ErrMailboxNotFound
	}

	var messages []domain.Message
	err := s.db.Where("address = ?", address).
		Order("received_at DESC").
		Find(&messages).Error
	return messages, err
}

// GetMessage 获取单封邮件。
func (s *Store) GetMessage(address, messageID string) (*domain.Message, error) {
	var message domain.Message
	err := s.db.Where("address = ? AND id = ?", address, messageID).
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// MarkMessageRead 将邮件标记为已读。
func (s *Store) MarkMessageRead(address, messageID string) error {
	result := s.db.Model(&domain.Message{}).
		Where("address = ? AND id = ?", address, messageID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrMessageNotFound
	}
	return nil
}

// AppendAccessLog 追加一条访问审计记录。
func (s *Store) AppendAccessLog(log *domain.AccessLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	return s.db.Create(log).Error
}

// IncrementRateLimit SQL 存储不承担限流计数，由 Redis 或内存层负责。
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	return 0, fmt.Errorf("rate limiting not supported by sql store")
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库连接。
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// isDuplicateKey 识别跨数据库的唯一约束冲突。
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
