package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	jwtpkg "anonmail/backend/internal/auth/jwt"
	"anonmail/backend/internal/config"
	"anonmail/backend/internal/service"
	"anonmail/backend/internal/storage/memory"
)

func setupIdentityRouter(t *testing.T) (*gin.Engine, *service.IdentityService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	cfg := &config.Config{Mail: config.MailConfig{Domain: "temp-mail.local"}}
	identities := service.NewIdentityService(store, cfg, nil, nil)
	tokens := jwtpkg.NewManager("handler-test-secret-with-enough-length", "anonmail", time.Hour)
	handler := NewIdentityHandler(identities, tokens, nil, zap.NewNop())

	router := gin.New()
	router.POST("/v1/identity", handler.Generate)
	router.POST("/v1/identity/verify", handler.Verify)

	return router, identities
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdentityHandler_Generate(t *testing.T) {
	router, _ := setupIdentityRouter(t)

	w := postJSON(router, "/v1/identity", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			Address   string `json:"emailAddress"`
			AccessKey string `json:"accessKey"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, CodeCreated, resp.Code)
	assert.Contains(t, resp.Data.Address, "@temp-mail.local")
	assert.NotEmpty(t, resp.Data.AccessKey)
}

func TestIdentityHandler_Verify(t *testing.T) {
	router, identities := setupIdentityRouter(t)
	generated, err := identities.Generate("127.0.0.1")
	require.NoError(t, err)

	t.Run("凭据正确时返回会话令牌", func(t *testing.T) {
		w := postJSON(router, "/v1/identity/verify", gin.H{
			"emailAddress": generated.Address,
			"accessKey":    generated.AccessKey,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Code int `json:"code"`
			Data struct {
				Address string `json:"emailAddress"`
				Session *struct {
					Token     string `json:"token"`
					TokenType string `json:"tokenType"`
				} `json:"session"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, CodeSuccess, resp.Code)
		assert.Equal(t, generated.Address, resp.Data.Address)
		require.NotNil(t, resp.Data.Session)
		assert.Equal(t, "Bearer", resp.Data.Session.TokenType)
		assert.NotEmpty(t, resp.Data.Session.Token)
	})

	t.Run("密钥错误返回401", func(t *testing.T) {
		w := postJSON(router, "/v1/identity/verify", gin.H{
			"emailAddress": generated.Address,
			"accessKey":    "apple-banana-cherry-grape-lemon-mango-olive-peach-pear-plum-kiwi-fig",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("地址不存在与密钥错误的应答一致", func(t *testing.T) {
		wrongKey := postJSON(router, "/v1/identity/verify", gin.H{
			"emailAddress": generated.Address,
			"accessKey":    "apple-banana-cherry-grape-lemon-mango-olive-peach-pear-plum-kiwi-fig",
		})
		unknownAddr := postJSON(router, "/v1/identity/verify", gin.H{
			"emailAddress": "ffffffffffffffffffffffffffffffff@temp-mail.local",
			"accessKey":    generated.AccessKey,
		})

		assert.Equal(t, wrongKey.Code, unknownAddr.Code)
		assert.JSONEq(t, wrongKey.Body.String(), unknownAddr.Body.String())
	})

	t.Run("缺少字段返回400", func(t *testing.T) {
		w := postJSON(router, "/v1/identity/verify", gin.H{
			"emailAddress": generated.Address,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("非JSON请求体返回400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/identity/verify", bytes.NewBufferString("not json"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestIdentityHandler_GenerateUniqueAddresses(t *testing.T) {
	router, _ := setupIdentityRouter(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		w := postJSON(router, "/v1/identity", nil)
		require.Equal(t, http.StatusCreated, w.Code, fmt.Sprintf("第 %d 次生成", i))

		var resp struct {
			Data struct {
				Address string `json:"emailAddress"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, seen[resp.Data.Address])
		seen[resp.Data.Address] = true
	}
}
