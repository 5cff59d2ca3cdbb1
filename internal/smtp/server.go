package smtp

import (
	"errors"
	"net"
	"sync"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"anonmail/backend/internal/config"
)

// Server 封装 SMTP 接收服务。
type Server struct {
	inner   *gosmtp.Server
	limiter *ConnectionLimiter
	log     *zap.Logger
	addr    string
}

// NewServer 创建 SMTP 服务器。
//
// 消息体大小上限由底层库在 DATA 读取阶段强制执行，
// 超限会以 552 应答拒绝。并发连接数由限流 listener 控制。
func NewServer(cfg config.SMTPConfig, backend *Backend, log *zap.Logger) *Server {
	inner := gosmtp.NewServer(backend)
	inner.Addr = cfg.BindAddr
	inner.Domain = cfg.Domain
	inner.ReadTimeout = cfg.ReadTimeout
	inner.WriteTimeout = cfg.WriteTimeout
	inner.MaxMessageBytes = cfg.MaxMessageBytes
	inner.MaxRecipients = cfg.MaxRecipients
	inner.AllowInsecureAuth = !cfg.TLSRequired

	return &Server{
		inner:   inner,
		limiter: NewConnectionLimiter(cfg.MaxConnections, cfg.MaxAcceptRate),
		log:     log,
		addr:    cfg.BindAddr,
	}
}

// ListenAndServe 启动服务并阻塞，直到 Close 被调用或发生致命错误。
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve 在给定 listener 上提供服务。
//
// Close 触发的正常退出返回 nil，只有真正的服务故障才返回错误。
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("SMTP服务启动",
		zap.String("addr", ln.Addr().String()),
		zap.String("domain", s.inner.Domain),
		zap.Int64("max_message_bytes", s.inner.MaxMessageBytes))

	err := s.inner.Serve(&limitedListener{
		Listener: ln,
		limiter:  s.limiter,
		log:      s.log,
	})
	if errors.Is(err, gosmtp.ErrServerClosed) {
		return nil
	}
	return err
}

// Close 关闭服务器，停止接受新连接。
func (s *Server) Close() error {
	return s.inner.Close()
}

// limitedListener 在 accept 阶段执行连接限流。
type limitedListener struct {
	net.Listener
	limiter *ConnectionLimiter
	log     *zap.Logger
}

func (l *limitedListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		if !l.limiter.Acquire() {
			l.log.Warn("SMTP连接被限流拒绝",
				zap.String("remote", conn.RemoteAddr().String()),
				zap.Int("current", l.limiter.Current()))
			conn.Close()
			continue
		}

		return &limitedConn{Conn: conn, release: l.limiter.Release}, nil
	}
}

// limitedConn 在连接关闭时归还限流许可。
type limitedConn struct {
	net.Conn
	once    sync.Once
	release func()
}

func (c *limitedConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(c.release)
	return err
}
