package smtp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// Envelope 表示从原始字节流中提取出的规范化邮件。
type Envelope struct {
	Subject     string
	From        string
	To          string
	Text        string
	HTML        string
	Attachments []AttachmentInfo
}

// AttachmentInfo 附件的描述信息。
//
// 本核心只记录附件的数量与元信息，不落盘附件内容。
type AttachmentInfo struct {
	Filename    string
	ContentType string
	Size        int64
}

// ExtractEnvelope 解析原始邮件字节流，提取主题、正文与附件信息。
//
// 输入完全不可信；任何畸形 MIME 都以错误返回而非 panic，
// 会话处理器据此干净地中止本次投递。
func ExtractEnvelope(rawEmail []byte) (*Envelope, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(rawEmail))
	if err != nil {
		return nil, fmt.Errorf("parse mail: %w", err)
	}

	envelope := &Envelope{
		Subject:     decodeHeader(msg.Header.Get("Subject")),
		From:        decodeHeader(msg.Header.Get("From")),
		To:          msg.Header.Get("To"),
		Attachments: make([]AttachmentInfo, 0),
	}

	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// 没有 Content-Type 或解析失败，当作纯文本处理
		body, _ := io.ReadAll(msg.Body)
		envelope.Text = string(body)
		return envelope, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message without boundary")
		}

		mr := multipart.NewReader(msg.Body, boundary)
		if err := extractMultipart(mr, envelope); err != nil {
			return nil, fmt.Errorf("parse multipart: %w", err)
		}
	} else {
		body, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"), params["charset"])
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}

		if strings.HasPrefix(mediaType, "text/html") {
			envelope.HTML = body
		} else {
			envelope.Text = body
		}
	}

	return envelope, nil
}

// Body 返回应当落库的正文：同时存在 HTML 与纯文本时保存 HTML。
func (e *Envelope) Body() string {
	if e.HTML != "" {
		return e.HTML
	}
	return e.Text
}

// extractMultipart 递归解析多部分邮件。
func extractMultipart(mr *multipart.Reader, envelope *Envelope) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		contentType := part.Header.Get("Content-Type")
		mediaType, params, err := mime.ParseMediaType(contentType)
		if err != nil {
			mediaType = "text/plain"
		}

		// 附件只记录元信息，内容读完即丢
		disposition := part.Header.Get("Content-Disposition")
		if disposition != "" {
			dispType, dispParams, _ := mime.ParseMediaType(disposition)
			if dispType == "attachment" || dispType == "inline" {
				filename := dispParams["filename"]
				if filename == "" {
					filename = params["name"]
				}
				if filename == "" {
					filename = "unnamed"
				}
				filename = decodeHeader(filename)

				size, err := attachmentSize(part, part.Header.Get("Content-Transfer-Encoding"))
				if err != nil {
					continue
				}

				envelope.Attachments = append(envelope.Attachments, AttachmentInfo{
					Filename:    filename,
					ContentType: mediaType,
					Size:        size,
				})
				continue
			}
		}

		// 嵌套的 multipart
		if strings.HasPrefix(mediaType, "multipart/") {
			boundary := params["boundary"]
			if boundary != "" {
				nestedReader := multipart.NewReader(part, boundary)
				if err := extractMultipart(nestedReader, envelope); err != nil {
					return err
				}
			}
			continue
		}

		body, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"), params["charset"])
		if err != nil {
			continue
		}

		if strings.HasPrefix(mediaType, "text/html") {
			if envelope.HTML == "" {
				envelope.HTML = body
			}
		} else if strings.HasPrefix(mediaType, "text/plain") {
			if envelope.Text == "" {
				envelope.Text = body
			}
		}
	}

	return nil
}

// attachmentSize 统计附件解码后的字节数。
func attachmentSize(r io.Reader, transferEncoding string) (int64, error) {
	var decoded io.Reader = r
	if strings.EqualFold(strings.TrimSpace(transferEncoding), "base64") {
		decoded = base64.NewDecoder(base64.StdEncoding, r)
	}
	return io.Copy(io.Discard, decoded)
}

// decodeBody 根据编码方式解码邮件体。
func decodeBody(reader io.Reader, transferEncoding string, charset string) (string, error) {
	transferEncoding = strings.ToLower(strings.TrimSpace(transferEncoding))

	var decoded io.Reader
	switch transferEncoding {
	case "base64":
		decoded = base64.NewDecoder(base64.StdEncoding, reader)
	case "quoted-printable":
		decoded = quotedprintable.NewReader(reader)
	default:
		// 7bit/8bit/binary 或未知编码，直接读取
		decoded = reader
	}

	body, err := io.ReadAll(decoded)
	if err != nil {
		return "", err
	}

	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset != "" && charset != "utf-8" && charset != "us-ascii" {
		if enc := getCharsetEncoding(charset); enc != nil {
			converted, _, err := transform.Bytes(enc.NewDecoder(), body)
			if err == nil {
				body = converted
			}
		}
	}

	return string(body), nil
}

// getCharsetEncoding 根据字符集名称返回编码器
func getCharsetEncoding(charset string) encoding.Encoding {
	switch charset {
	case "gb2312", "gbk", "gb18030":
		return simplifiedchinese.GBK
	case "big5":
		return traditionalchinese.Big5
	case "iso-2022-jp", "shift_jis", "euc-jp":
		return japanese.ShiftJIS
	case "euc-kr", "ks_c_5601-1987":
		return korean.EUCKR
	default:
		return nil
	}
}

// decodeHeader 解码 RFC 2047 编码的邮件头。
func decodeHeader(value string) string {
	if value == "" {
		return value
	}
	decoder := new(mime.WordDecoder)
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
