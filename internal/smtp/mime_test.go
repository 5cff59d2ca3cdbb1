package smtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEnvelope_PlainText(t *testing.T) {
	raw := []byte("From: Alice <alice@example.com>\r\n" +
		"To: bob@temp-mail.local\r\n" +
		"Subject: Hello\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain body\r\n")

	envelope, err := ExtractEnvelope(raw)

	require.NoError(t, err)
	assert.Equal(t, "Hello", envelope.Subject)
	assert.Contains(t, envelope.From, "alice@example.com")
	assert.Contains(t, envelope.Text, "plain body")
	assert.Empty(t, envelope.HTML)
	assert.Empty(t, envelope.Attachments)
	assert.Contains(t, envelope.Body(), "plain body")
}

func TestExtractEnvelope_MissingContentType(t *testing.T) {
	raw := []byte("From: alice@example.com\r\n" +
		"Subject: no content type\r\n" +
		"\r\n" +
		"fallback body\r\n")

	envelope, err := ExtractEnvelope(raw)

	require.NoError(t, err)
	assert.Contains(t, envelope.Text, "fallback body")
}

func TestExtractEnvelope_MultipartAlternative(t *testing.T) {
	raw := []byte("From: alice@example.com\r\n" +
		"Subject: both parts\r\n" +
		"Content-Type: multipart/alternative; boundary=\"xyz\"\r\n" +
		"\r\n" +
		"--xyz\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"text version\r\n" +
		"--xyz\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html version</p>\r\n" +
		"--xyz--\r\n")

	envelope, err := ExtractEnvelope(raw)

	require.NoError(t, err)
	assert.Contains(t, envelope.Text, "text version")
	assert.Contains(t, envelope.HTML, "html version")

	// 同时存在时正文取 HTML
	assert.Contains(t, envelope.Body(), "html version")
}

func TestExtractEnvelope_EncodedHeaderAndBody(t *testing.T) {
	// RFC 2047 编码的主题 + quoted-printable 正文
	raw := []byte("From: alice@example.com\r\n" +
		"Subject: =?utf-8?B?5L2g5aW9?=\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"caf=C3=A9\r\n")

	envelope, err := ExtractEnvelope(raw)

	require.NoError(t, err)
	assert.Equal(t, "你好", envelope.Subject)
	assert.Contains(t, envelope.Text, "café")
}

func TestExtractEnvelope_GBKCharset(t *testing.T) {
	body := append([]byte("From: alice@example.com\r\n"+
		"Subject: gbk\r\n"+
		"Content-Type: text/plain; charset=gbk\r\n"+
		"\r\n"),
		0xc4, 0xe3, 0xba, 0xc3) // "你好" 的 GBK 编码

	envelope, err := ExtractEnvelope(body)

	require.NoError(t, err)
	assert.Contains(t, envelope.Text, "你好")
}

func TestExtractEnvelope_AttachmentMetadata(t *testing.T) {
	raw := []byte("From: alice@example.com\r\n" +
		"Subject: with attachment\r\n" +
		"Content-Type: multipart/mixed; boundary=\"abc\"\r\n" +
		"\r\n" +
		"--abc\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"see attached\r\n" +
		"--abc\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"Content-Disposition: attachment; filename=\"data.bin\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"aGVsbG8gd29ybGQ=\r\n" +
		"--abc--\r\n")

	envelope, err := ExtractEnvelope(raw)

	require.NoError(t, err)
	assert.Contains(t, envelope.Text, "see attached")
	require.Len(t, envelope.Attachments, 1)
	assert.Equal(t, "data.bin", envelope.Attachments[0].Filename)
	assert.Equal(t, "application/octet-stream", envelope.Attachments[0].ContentType)
	assert.Equal(t, int64(11), envelope.Attachments[0].Size) // "hello world"

	// 附件内容不进入正文
	assert.NotContains(t, envelope.Body(), "hello world")
}

func TestExtractEnvelope_Malformed(t *testing.T) {
	t.Run("multipart缺少boundary", func(t *testing.T) {
		raw := []byte("From: alice@example.com\r\n" +
			"Content-Type: multipart/mixed\r\n" +
			"\r\n" +
			"body\r\n")

		_, err := ExtractEnvelope(raw)
		assert.Error(t, err)
	})

	t.Run("截断的multipart", func(t *testing.T) {
		raw := []byte("From: alice@example.com\r\n" +
			"Content-Type: multipart/mixed; boundary=\"abc\"\r\n" +
			"\r\n" +
			"--abc\r\n" +
			"Content-Type: text/plain\r\n")

		_, err := ExtractEnvelope(raw)
		assert.Error(t, err)
	})

	t.Run("没有邮件头", func(t *testing.T) {
		_, err := ExtractEnvelope([]byte("this is not an email at all"))
		assert.Error(t, err)
	})
}
