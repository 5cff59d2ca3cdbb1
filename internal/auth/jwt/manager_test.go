package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-with-enough-length-123456"

func TestManager_IssueAndValidate(t *testing.T) {
	manager := NewManager(testSecret, "anonmail", time.Hour)

	t.Run("签发并验证令牌", func(t *testing.T) {
		token, err := manager.IssueSessionToken("a1b2c3@temp-mail.local")
		require.NoError(t, err)
		assert.NotEmpty(t, token.Token)
		assert.Equal(t, "Bearer", token.TokenType)
		assert.Equal(t, int64(3600), token.ExpiresIn)

		claims, err := manager.ValidateToken(token.Token)
		require.NoError(t, err)
		assert.Equal(t, "a1b2c3@temp-mail.local", claims.Address)
		assert.Equal(t, "anonmail", claims.Issuer)
		assert.Equal(t, "a1b2c3@temp-mail.local", claims.Subject)
	})

	t.Run("错误密钥签发的令牌不通过", func(t *testing.T) {
		other := NewManager("another-secret-key-with-enough-length-42", "anonmail", time.Hour)
		token, err := other.IssueSessionToken("a1b2c3@temp-mail.local")
		require.NoError(t, err)

		_, err = manager.ValidateToken(token.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("过期令牌", func(t *testing.T) {
		expired := NewManager(testSecret, "anonmail", -time.Hour)
		token, err := expired.IssueSessionToken("a1b2c3@temp-mail.local")
		require.NoError(t, err)

		_, err = manager.ValidateToken(token.Token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("格式错误的令牌", func(t *testing.T) {
		_, err := manager.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)

		_, err = manager.ValidateToken("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
