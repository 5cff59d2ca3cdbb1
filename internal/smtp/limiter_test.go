package smtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionLimiter(t *testing.T) {
	t.Run("并发上限", func(t *testing.T) {
		limiter := NewConnectionLimiter(2, 100)

		assert.True(t, limiter.Acquire())
		assert.True(t, limiter.Acquire())
		assert.False(t, limiter.Acquire())
		assert.Equal(t, 2, limiter.Current())
	})

	t.Run("释放后可再次获取", func(t *testing.T) {
		limiter := NewConnectionLimiter(1, 100)

		assert.True(t, limiter.Acquire())
		assert.False(t, limiter.Acquire())

		limiter.Release()
		assert.Equal(t, 0, limiter.Current())
		assert.True(t, limiter.Acquire())
	})

	t.Run("速率限制", func(t *testing.T) {
		// 并发上限宽松，速率桶只有 2 个令牌
		limiter := NewConnectionLimiter(100, 2)

		assert.True(t, limiter.Acquire())
		assert.True(t, limiter.Acquire())
		assert.False(t, limiter.Acquire())
	})

	t.Run("非法参数回退到默认值", func(t *testing.T) {
		limiter := NewConnectionLimiter(0, 0)

		assert.True(t, limiter.Acquire())
		assert.True(t, limiter.Acquire())
	})

	t.Run("空闲时释放不会使计数为负", func(t *testing.T) {
		limiter := NewConnectionLimiter(1, 100)

		limiter.Release()
		assert.Equal(t, 0, limiter.Current())
	})
}
