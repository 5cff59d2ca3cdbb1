package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"anonmail/backend/internal/config"
	"anonmail/backend/internal/domain"
	"anonmail/backend/internal/identity"
	"anonmail/backend/internal/pool"
	"anonmail/backend/internal/storage"
)

var (
	// ErrVerifyFailed 地址或访问密钥不正确。
	// 对外不区分地址不存在与密钥错误，避免成为存在性探测接口。
	ErrVerifyFailed = errors.New("address or access key incorrect")
)

// createRetries 地址唯一约束冲突时的重试次数。
// 128 bit 熵下冲突概率接近于零，重试一次纯属兜底。
const createRetries = 1

// IdentityService 封装身份生成与验证的业务操作。
type IdentityService struct {
	store     storage.Store
	generator *identity.Generator
	auditPool *pool.WorkerPool
	log       *zap.Logger
}

// NewIdentityService 创建身份业务服务。
func NewIdentityService(store storage.Store, cfg *config.Config, auditPool *pool.WorkerPool, log *zap.Logger) *IdentityService {
	if log == nil {
		log = zap.NewNop()
	}
	return &IdentityService{
		store:     store,
		generator: identity.NewGenerator(cfg.Mail.Domain),
		auditPool: auditPool,
		log:       log,
	}
}

// GeneratedIdentity 表示一次生成调用的结果。
//
// AccessKey 是明文密钥唯一一次出现的地方，之后系统只保存摘要。
type GeneratedIdentity struct {
	Address   string    `json:"emailAddress"`
	AccessKey string    `json:"accessKey"`
	CreatedAt time.Time `json:"createdAt"`
}

// Generate 生成一个新的匿名邮箱身份并持久化。
//
// 唯一约束冲突（天文数字级小概率）作为可重试失败处理，重试一次。
func (s *IdentityService) Generate(ipSource string) (*GeneratedIdentity, error) {
	var lastErr error
	for attempt := 0; attempt <= createRetries; attempt++ {
		pair, err := s.generator.GeneratePair()
		if err != nil {
			return nil, err
		}

		mailbox := &domain.Mailbox{
			ID:             uuid.NewString(),
			Address:        pair.Address,
			AccessKeyHash:  identity.HashAccessKey(pair.AccessKey),
			CreatedAt:      pair.CreatedAt,
			LastAccessedAt: pair.CreatedAt,
		}

		err = s.store.SaveMailbox(mailbox)
		if err == nil {
			s.audit(pair.Address, ipSource, domain.ActionGenerateIdentity, true)
			return &GeneratedIdentity{
				Address:   pair.Address,
				AccessKey: pair.AccessKey,
				CreatedAt: pair.CreatedAt,
			}, nil
		}
		if !errors.Is(err, storage.ErrAddressTaken) {
			s.audit(pair.Address, ipSource, domain.ActionGenerateIdentity, false)
			return nil, err
		}
		s.log.Warn("generated address collided, retrying",
			zap.String("address", pair.Address),
		)
		lastErr = err
	}
	return nil, lastErr
}

// Verify 校验地址与访问密钥。
//
// 格式快速拒绝在任何存储访问之前执行；验证成功时刷新
// 最近访问时间。审计日志区分"地址不存在"与"密钥错误"，
// 但两种失败对调用方都表现为 ErrVerifyFailed。
func (s *IdentityService) Verify(address, accessKey, ipSource string) (*domain.Mailbox, error) {
	if !identity.IsWellFormedAddress(address) || !identity.IsWellFormedAccessKey(accessKey) {
		s.audit(address, ipSource, domain.ActionCheckAccess, false)
		return nil, ErrVerifyFailed
	}

	mailbox, err := s.store.GetMailboxByAddress(address)
	if err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			s.log.Debug("verify failed: unknown address", zap.String("address", address))
			s.audit(address, ipSource, domain.ActionCheckAccess, false)
			return nil, ErrVerifyFailed
		}
		return nil, err
	}

	if !identity.VerifyAccessKey(accessKey, mailbox.AccessKeyHash) {
		s.log.Debug("verify failed: wrong access key", zap.String("address", address))
		s.audit(address, ipSource, domain.ActionCheckAccess, false)
		return nil, ErrVerifyFailed
	}

	if err := s.store.TouchLastAccessed(address); err != nil {
		s.log.Warn("failed to touch last accessed", zap.String("address", address), zap.Error(err))
	}
	s.audit(address, ipSource, domain.ActionCheckAccess, true)

	mailbox.LastAccessedAt = time.Now().UTC()
	return mailbox, nil
}

// audit 异步追加一条审计记录。
//
// 队列满时降级为同步写入，审计记录不允许丢失。
func (s *IdentityService) audit(address, ipSource, action string, success bool) {
	log := &domain.AccessLog{
		ID:        uuid.NewString(),
		Address:   address,
		IPAddress: ipSource,
		Action:    action,
		Success:   success,
		CreatedAt: time.Now().UTC(),
	}

	write := func() {
		if err := s.store.AppendAccessLog(log); err != nil {
			s.log.Error("failed to append access log",
				zap.String("action", action),
				zap.Error(err),
			)
		}
	}

	if s.auditPool == nil || !s.auditPool.TrySubmit(write) {
		write()
	}
}
