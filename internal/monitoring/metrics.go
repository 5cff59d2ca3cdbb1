package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 身份指标
	IdentitiesGeneratedTotal prometheus.Counter
	VerifyAttemptsTotal      *prometheus.CounterVec

	// SMTP 指标
	SMTPSessionsTotal      prometheus.Counter
	MessagesCommittedTotal prometheus.Counter
	MessagesDroppedTotal   *prometheus.CounterVec

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		// HTTP 请求指标
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anonmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "anonmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		// 身份指标
		IdentitiesGeneratedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "anonmail_identities_generated_total",
				Help: "Total number of mailbox identities generated",
			},
		),

		VerifyAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anonmail_verify_attempts_total",
				Help: "Total number of access verification attempts",
			},
			[]string{"result"},
		),

		// SMTP 指标
		SMTPSessionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "anonmail_smtp_sessions_total",
				Help: "Total number of SMTP sessions accepted",
			},
		),

		MessagesCommittedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "anonmail_messages_committed_total",
				Help: "Total number of messages durably committed",
			},
		),

		MessagesDroppedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anonmail_messages_dropped_total",
				Help: "Total number of messages dropped",
			},
			[]string{"reason"},
		),

		// 限流指标
		RateLimitBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anonmail_rate_limit_blocks_total",
				Help: "Total number of requests blocked by rate limiting",
			},
			[]string{"scope"},
		),

		// 错误指标
		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anonmail_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "anonmail_panics_total",
				Help: "Total number of panics",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordIdentityGenerated 记录身份生成
func (m *Metrics) RecordIdentityGenerated() {
	m.IdentitiesGeneratedTotal.Inc()
}

// RecordVerifyAttempt 记录校验尝试
func (m *Metrics) RecordVerifyAttempt(result string) {
	m.VerifyAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(scope string) {
	m.RateLimitBlocks.WithLabelValues(scope).Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
