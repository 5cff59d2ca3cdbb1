package health

import (
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"

	"anonmail/backend/internal/storage"
)

// Handler 暴露 /live 与 /ready 两个健康检查端点。
//
// liveness 只看进程自身（goroutine 数量），readiness 额外要求
// 存储后端可用：存储不可用时摘除流量，但进程不重启。
type Handler struct {
	inner healthcheck.Handler
}

// New 创建健康检查处理器。
func New(store storage.Store) *Handler {
	h := healthcheck.NewHandler()

	h.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(1000))

	h.AddReadinessCheck("store", func() error {
		return store.Health()
	})

	// 存储卡死也要能在超时内给出答案
	h.AddReadinessCheck("store-timeout", healthcheck.Timeout(func() error {
		return store.Health()
	}, 2*time.Second))

	return &Handler{inner: h}
}

// LiveEndpoint 处理 liveness 探针请求。
func (h *Handler) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	h.inner.LiveEndpoint(w, r)
}

// ReadyEndpoint 处理 readiness 探针请求。
func (h *Handler) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	h.inner.ReadyEndpoint(w, r)
}
