package smtp

import (
	"errors"
	"io"
	"strings"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"anonmail/backend/internal/identity"
	"anonmail/backend/internal/monitoring"
	"anonmail/backend/internal/service"
	"anonmail/backend/internal/storage"
)

// errTransientFailure 持久化失败时返回给投递方的临时错误，
// 提示对方稍后重试而不是判定地址不可达。
var errTransientFailure = &gosmtp.SMTPError{
	Code:         451,
	EnhancedCode: gosmtp.EnhancedCode{4, 3, 0},
	Message:      "Temporary server error, please try again later",
}

// Backend 实现 go-smtp 的后端接口，为每个连接创建会话。
type Backend struct {
	messages      *service.MessageService
	maxRecipients int
	metrics       *monitoring.Metrics
	log           *zap.Logger
}

// NewBackend 创建 SMTP 后端。metrics 可以为 nil。
func NewBackend(messages *service.MessageService, maxRecipients int, metrics *monitoring.Metrics, log *zap.Logger) *Backend {
	if maxRecipients <= 0 {
		maxRecipients = 50
	}
	return &Backend{
		messages:      messages,
		maxRecipients: maxRecipients,
		metrics:       metrics,
		log:           log,
	}
}

// NewSession 为新连接创建会话
func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	remote := ""
	if c != nil && c.Conn() != nil {
		remote = c.Conn().RemoteAddr().String()
	}

	b.log.Debug("SMTP会话建立", zap.String("remote", remote))
	if b.metrics != nil {
		b.metrics.SMTPSessionsTotal.Inc()
	}

	return &session{backend: b, remote: remote}, nil
}

// session 保存单个 SMTP 会话的信封状态。
//
// 会话阶段不做任何收件人存在性检查：无论目标邮箱是否存在，
// RCPT 一律接受，真正的解析与落库推迟到 DATA 提交时进行，
// 避免把本服务变成地址探测的预言机。
type session struct {
	backend     *Backend
	remote      string
	fromAddress string
	recipients  []string
}

// Mail 记录信封发件人。值不可信，原样保留供展示。
func (s *session) Mail(from string, opts *gosmtp.MailOptions) error {
	s.fromAddress = strings.TrimSpace(from)
	return nil
}

// Rcpt 记录一个信封收件人。
func (s *session) Rcpt(to string, opts *gosmtp.RcptOptions) error {
	if len(s.recipients) >= s.backend.maxRecipients {
		return &gosmtp.SMTPError{
			Code:         452,
			EnhancedCode: gosmtp.EnhancedCode{4, 5, 3},
			Message:      "Too many recipients",
		}
	}
	s.recipients = append(s.recipients, strings.ToLower(strings.TrimSpace(to)))
	return nil
}

// Data 接收邮件内容并提交。
//
// 只处理第一个声明的收件人。收件人畸形或对应邮箱不存在时
// 静默丢弃：向投递方返回成功，不留下任何可区分的信号。
// 只有持久化失败才返回 451 临时错误。
func (s *session) Data(r io.Reader) error {
	rawEmail, err := io.ReadAll(r)
	if err != nil {
		// 超过大小上限等读取错误由库翻译成对应的 SMTP 应答
		if s.backend.metrics != nil {
			s.backend.metrics.MessagesDroppedTotal.WithLabelValues("read_error").Inc()
		}
		return err
	}

	if len(s.recipients) == 0 {
		return s.drop("no_recipient", "")
	}

	envelope, err := ExtractEnvelope(rawEmail)
	if err != nil {
		s.backend.log.Warn("邮件解析失败，丢弃",
			zap.String("remote", s.remote),
			zap.String("from", s.fromAddress),
			zap.Error(err))
		return s.drop("parse_error", "")
	}

	// 提交路径只取第一个信封收件人
	address := identity.ExtractAddress(s.recipients[0])
	if address == "" {
		return s.drop("malformed_recipient", s.recipients[0])
	}

	sender := envelope.From
	if sender == "" {
		sender = s.fromAddress
	}
	if sender == "" {
		sender = "unknown@unknown.invalid"
	}

	msg, err := s.backend.messages.Commit(service.CommitMessageInput{
		Address:  address,
		Sender:   sender,
		Subject:  envelope.Subject,
		Body:     envelope.Body(),
		Received: time.Now(),
	})
	if errors.Is(err, storage.ErrMailboxNotFound) {
		return s.drop("unknown_mailbox", address)
	}
	if err != nil {
		s.backend.log.Error("邮件落库失败",
			zap.String("address", address),
			zap.Error(err))
		if s.backend.metrics != nil {
			s.backend.metrics.MessagesDroppedTotal.WithLabelValues("store_error").Inc()
		}
		return errTransientFailure
	}

	if len(envelope.Attachments) > 0 {
		// 附件只记日志，不落库
		names := make([]string, 0, len(envelope.Attachments))
		for _, a := range envelope.Attachments {
			names = append(names, a.Filename)
		}
		s.backend.log.Info("附件已忽略",
			zap.String("address", address),
			zap.Int("count", len(envelope.Attachments)),
			zap.Strings("filenames", names))
	}

	s.backend.log.Info("邮件已接收",
		zap.String("message_id", msg.ID),
		zap.String("address", address),
		zap.String("from", sender),
		zap.Int("size", len(rawEmail)))
	if s.backend.metrics != nil {
		s.backend.metrics.MessagesCommittedTotal.Inc()
	}

	return nil
}

// drop 静默丢弃本次投递：记录审计日志后向投递方返回成功。
func (s *session) drop(reason, address string) error {
	s.backend.log.Info("邮件静默丢弃",
		zap.String("remote", s.remote),
		zap.String("from", s.fromAddress),
		zap.String("address", address),
		zap.String("reason", reason))
	if s.backend.metrics != nil {
		s.backend.metrics.MessagesDroppedTotal.WithLabelValues(reason).Inc()
	}
	return nil
}

// Reset 清空信封状态，保留连接。
func (s *session) Reset() {
	s.fromAddress = ""
	s.recipients = nil
}

// Logout 会话结束
func (s *session) Logout() error {
	s.backend.log.Debug("SMTP会话结束", zap.String("remote", s.remote))
	return nil
}
