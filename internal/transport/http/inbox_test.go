package httptransport

import (
	"encoding/json"
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
	"anonmail/backend/internal/middleware"
	"anonmail/backend/internal/service"
	"anonmail/backend/internal/storage/memory"
)

type inboxFixture struct {
	router    *gin.Engine
	tokens    *jwtpkg.Manager
	messages  *service.MessageService
	address   string
	accessKey string
}

func setupInbox(t *testing.T) *inboxFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	cfg := &config.Config{Mail: config.MailConfig{Domain: "temp-mail.local"}}
	identities := service.NewIdentityService(store, cfg, nil, nil)
	generated, err := identities.Generate("127.0.0.1")
	require.NoError(t, err)

	messages := service.NewMessageService(store)
	tokens := jwtpkg.NewManager("inbox-test-secret-with-enough-length-1", "anonmail", time.Hour)

	handler := NewInboxHandler(messages, zap.NewNop())
	inboxAuth := middleware.NewInboxAuth(identities, tokens, zap.NewNop())

	router := gin.New()
	inbox := router.Group("/v1/inbox/:address", inboxAuth.RequireInboxAccess())
	{
		inbox.GET("/messages", handler.ListMessages)
		inbox.GET("/messages/:messageId", handler.GetMessage)
		inbox.POST("/messages/:messageId/read", handler.MarkMessageRead)
	}

	return &inboxFixture{
		router:    router,
		tokens:    tokens,
		messages:  messages,
		address:   generated.Address,
		accessKey: generated.AccessKey,
	}
}

func (f *inboxFixture) get(path string, auth func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != nil {
		auth(req)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *inboxFixture) withKey(req *http.Request) {
	req.Header.Set("X-Access-Key", f.accessKey)
}

func TestInboxHandler_ListMessages(t *testing.T) {
	f := setupInbox(t)

	_, err := f.messages.Commit(service.CommitMessageInput{
		Address: f.address,
		Sender:  "alice@example.com",
		Subject: "第一封",
		Body:    "hello",
	})
	require.NoError(t, err)

	w := f.get("/v1/inbox/"+f.address+"/messages", f.withKey)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Total    int `json:"total"`
			Messages []struct {
				Subject string `json:"subject"`
				IsRead  bool   `json:"isRead"`
			} `json:"messages"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Messages, 1)
	assert.Equal(t, "第一封", resp.Data.Messages[0].Subject)
	assert.False(t, resp.Data.Messages[0].IsRead)
}

func TestInboxHandler_GetAndMarkRead(t *testing.T) {
	f := setupInbox(t)

	msg, err := f.messages.Commit(service.CommitMessageInput{
		Address: f.address,
		Sender:  "alice@example.com",
		Subject: "详情",
		Body:    "body",
	})
	require.NoError(t, err)

	t.Run("获取邮件详情", func(t *testing.T) {
		w := f.get("/v1/inbox/"+f.address+"/messages/"+msg.ID, f.withKey)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("不存在的邮件返回404", func(t *testing.T) {
		w := f.get("/v1/inbox/"+f.address+"/messages/no-such-id", f.withKey)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("标记已读", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/inbox/"+f.address+"/messages/"+msg.ID+"/read", nil)
		f.withKey(req)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		got, err := f.messages.Get(f.address, msg.ID)
		require.NoError(t, err)
		assert.True(t, got.IsRead)
	})
}

func TestInboxAuth(t *testing.T) {
	f := setupInbox(t)
	path := "/v1/inbox/" + f.address + "/messages"

	t.Run("无凭据返回401", func(t *testing.T) {
		w := f.get(path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("错误密钥返回401", func(t *testing.T) {
		w := f.get(path, func(req *http.Request) {
			req.Header.Set("X-Access-Key", "apple-banana-cherry-grape-lemon-mango-olive-peach-pear-plum-kiwi-fig")
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("查询参数传递密钥", func(t *testing.T) {
		w := f.get(path+"?access_key="+f.accessKey, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("会话令牌访问", func(t *testing.T) {
		session, err := f.tokens.IssueSessionToken(f.address)
		require.NoError(t, err)

		w := f.get(path, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+session.Token)
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("令牌地址不匹配返回401", func(t *testing.T) {
		session, err := f.tokens.IssueSessionToken("other@temp-mail.local")
		require.NoError(t, err)

		w := f.get(path, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+session.Token)
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("伪造令牌返回401", func(t *testing.T) {
		w := f.get(path, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer not.a.real.token")
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
