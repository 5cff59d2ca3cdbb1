package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// wordList 是生成访问密钥的固定词表。
//
// 进程级不可变常量表，启动后不会被修改。
// 32 个词、12 词组合约 60 bit 熵，属于已知的取舍：
// 词表必须与既有密钥保持兼容，不能扩充。
var wordList = [...]string{
	"apple", "banana", "cherry", "dragon", "eagle", "forest", "garden", "harbor",
	"island", "jungle", "knight", "lemon", "mountain", "ocean", "planet", "queen",
	"river", "sunset", "tiger", "umbrella", "village", "window", "xylophone", "yellow",
	"zebra", "alpine", "beach", "castle", "desert", "eclipse", "fountain", "galaxy",
}

const (
	// AccessKeyWords 访问密钥包含的单词数量
	AccessKeyWords = 12
	// addressEntropyBytes 地址本地部分的随机字节数（128 bit）
	addressEntropyBytes = 16
	// hexKeyBytes 十六进制备选密钥的随机字节数
	hexKeyBytes = 32
)

// Pair 表示一对新生成的邮箱地址与访问密钥。
type Pair struct {
	Address   string    `json:"emailAddress"`
	AccessKey string    `json:"accessKey"`
	CreatedAt time.Time `json:"createdAt"`
}

// Generator 负责生成邮箱地址与访问密钥，并计算、校验密钥摘要。
//
// 所有方法都是纯函数加密码学随机源，没有外部副作用。
type Generator struct {
	domain string
}

// NewGenerator 创建身份生成器。
//
// 参数:
//   - domain: 生成地址所使用的邮件域名
func NewGenerator(domain string) *Generator {
	return &Generator{domain: strings.ToLower(strings.TrimSpace(domain))}
}

// GenerateAddress 生成随机邮箱地址。
//
// 本地部分为 16 字节密码学随机数的十六进制表示（128 bit 熵），
// 不做存储层查重；调用方应把唯一约束冲突当作可重试的罕见失败。
func (g *Generator) GenerateAddress() (string, error) {
	buf := make([]byte, addressEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return fmt.Sprintf("%s@%s", hex.EncodeToString(buf), g.domain), nil
}

// GenerateAccessKey 生成 12 个单词组合的访问密钥。
//
// 每个单词独立等概率从词表中抽取（允许重复，顺序有意义），
// 以 "-" 连接。随机源为 crypto/rand。
func (g *Generator) GenerateAccessKey() (string, error) {
	words := make([]string, AccessKeyWords)
	max := big.NewInt(int64(len(wordList)))
	for i := 0; i < AccessKeyWords; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("pick word: %w", err)
		}
		words[i] = wordList[idx.Int64()]
	}
	return strings.Join(words, "-"), nil
}

// GenerateHexAccessKey 生成 64 位十六进制的备选访问密钥。
func (g *Generator) GenerateHexAccessKey() (string, error) {
	buf := make([]byte, hexKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GeneratePair 生成一对邮箱地址与访问密钥。
func (g *Generator) GeneratePair() (*Pair, error) {
	address, err := g.GenerateAddress()
	if err != nil {
		return nil, err
	}
	key, err := g.GenerateAccessKey()
	if err != nil {
		return nil, err
	}
	return &Pair{
		Address:   address,
		AccessKey: key,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// HashAccessKey 计算访问密钥的 SHA-256 摘要（十六进制）。
//
// 确定性单向变换：相同输入永远得到相同摘要。
// 存储层只保存摘要，永不保存明文密钥。
func HashAccessKey(accessKey string) string {
	sum := sha256.Sum256([]byte(accessKey))
	return hex.EncodeToString(sum[:])
}

// VerifyAccessKey 校验候选密钥与既存摘要是否匹配。
//
// 重新计算候选密钥的摘要并做常量时间比较；
// 任何不匹配（包括长度不同）都返回 false，不会产生错误。
func VerifyAccessKey(candidate, storedHash string) bool {
	computed := HashAccessKey(candidate)
	if len(computed) != len(storedHash) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// WordListSize 返回词表大小，供测试与文档使用。
func WordListSize() int {
	return len(wordList)
}
