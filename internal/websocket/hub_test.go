package websocket

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anonmail/backend/internal/domain"
)

func notify(t *testing.T, hub *Hub, body string) NewMailData {
	t.Helper()

	hub.NotifyNewMail("a1b2c3@temp-mail.local", &domain.Message{
		ID:         "msg-1",
		Address:    "a1b2c3@temp-mail.local",
		Sender:     "alice@example.com",
		Subject:    "hello",
		Body:       body,
		ReceivedAt: time.Now(),
	})

	select {
	case broadcast := <-hub.broadcast:
		var data NewMailData
		require.NoError(t, json.Unmarshal(broadcast.Message.Data, &data))
		return data
	default:
		t.Fatal("没有收到广播消息")
		return NewMailData{}
	}
}

func TestHub_NotifyNewMailPreview(t *testing.T) {
	hub := NewHub(nil, nil, nil, nil)

	t.Run("短正文原样保留", func(t *testing.T) {
		data := notify(t, hub, "short body")
		assert.Equal(t, "short body", data.Preview)
	})

	t.Run("超长正文截断", func(t *testing.T) {
		data := notify(t, hub, strings.Repeat("a", 500))
		assert.Len(t, data.Preview, previewLimit)
	})

	t.Run("多字节字符不被截断成非法UTF-8", func(t *testing.T) {
		// 每个汉字 3 字节，100 不是 3 的整数倍，
		// 按字节截断必然切开某个字符
		data := notify(t, hub, strings.Repeat("好", 60))

		assert.True(t, utf8.ValidString(data.Preview))
		assert.LessOrEqual(t, len(data.Preview), previewLimit)
		assert.Equal(t, strings.Repeat("好", 33), data.Preview)
	})
}
