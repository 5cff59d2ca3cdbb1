package identity

import "regexp"

// 访问凭证的两种合法形态与地址形态校验。
//
// 这些只是语法层面的廉价快速拒绝，放在摘要计算之前执行；
// 不检查地址或密钥是否真实存在。
var (
	// addressPattern 邮箱地址形态：本地部分 @ 带点的域名
	addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// wordKeyPattern 12 个小写单词以连字符连接
	wordKeyPattern = regexp.MustCompile(`^[a-z]+(-[a-z]+){11}$`)

	// hexKeyPattern 64 位小写十六进制备选密钥
	hexKeyPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

	// recipientPattern 从协议字段中提取单个邮箱地址
	recipientPattern = regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
)

// IsWellFormedAddress 检查字符串是否具有邮箱地址的形态。
func IsWellFormedAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// IsWellFormedAccessKey 检查访问密钥是否符合两种合法形态之一。
//
// 合法形态：12 个小写单词连字符组合，或 64 位小写十六进制。
// 其他任何形态在进入摘要校验之前直接拒绝。
func IsWellFormedAccessKey(s string) bool {
	return wordKeyPattern.MatchString(s) || hexKeyPattern.MatchString(s)
}

// ExtractAddress 从原始收件人字段中提取第一个形态合法的邮箱地址。
//
// 字段内容不可信，可能包含显示名、尖括号或其他杂质；
// 提取不到时返回空串。
func ExtractAddress(field string) string {
	match := recipientPattern.FindStringSubmatch(field)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}
