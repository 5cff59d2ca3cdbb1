package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// MailConfig 定义身份生成相关的业务配置
type MailConfig struct {
	Domain string // 生成邮箱地址所用的邮件域名
}

// SMTPConfig 定义 SMTP 邮件接收服务器的配置
type SMTPConfig struct {
	BindAddr        string        // SMTP 服务监听地址，格式 "host:port"，默认 ":2525"
	Domain          string        // SMTP 服务器域名，用于 HELO/EHLO 响应
	MaxMessageBytes int64         // 单封邮件的最大字节数，超出即中止会话
	MaxConnections  int           // 并发连接硬上限，超出的连接在 accept 时直接拒绝
	MaxAcceptRate   int           // 每秒最多接受的新连接数
	MaxRecipients   int           // 单封邮件最多声明的收件人数
	ReadTimeout     time.Duration // 协议无进展的空闲窗口，超时关闭连接
	WriteTimeout    time.Duration
	TLSRequired     bool // 是否要求 TLS（仅透传配置，本层不实现）
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type string // 数据库类型: "mysql" 或 "postgres"，为空时使用内存存储
	DSN  string // 数据库连接字符串
}

// RedisConfig 定义 Redis 缓存服务配置
type RedisConfig struct {
	Address  string // Redis 服务地址，格式 "host:port"，默认 "localhost:6379"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// JWTConfig 定义收件箱会话令牌的配置
type JWTConfig struct {
	Secret string        // 签名密钥，必须至少 32 字符
	Issuer string        // 签发者标识，默认 "anonmail"
	Expiry time.Duration // 收件箱令牌有效期，默认 30 分钟
}

// RateLimitConfig 定义 HTTP 层的限流窗口
type RateLimitConfig struct {
	GenerateWindow time.Duration // 生成身份的限流窗口，默认 15 分钟
	GenerateMax    int           // 窗口内每 IP 最多生成次数，默认 10
	AccessWindow   time.Duration // 访问验证的限流窗口，默认 5 分钟
	AccessMax      int           // 窗口内每 IP 最多验证次数，默认 20
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server    ServerConfig
	Mail      MailConfig
	SMTP      SMTPConfig
	CORS      CORSConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: ANONMAIL_
// 例如: ANONMAIL_SERVER_HOST, ANONMAIL_JWT_SECRET
func Load() (*Config, error) {
	loadEnvFile()

	viper.SetEnvPrefix("anonmail")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("mail.domain", "anon.mail")
	viper.SetDefault("smtp.bind_addr", ":2525")
	viper.SetDefault("smtp.domain", "anon.mail")
	viper.SetDefault("smtp.max_message_bytes", 10*1024*1024)
	viper.SetDefault("smtp.max_connections", 100)
	viper.SetDefault("smtp.max_accept_rate", 50)
	viper.SetDefault("smtp.max_recipients", 50)
	viper.SetDefault("smtp.read_timeout", "1m")
	viper.SetDefault("smtp.write_timeout", "10s")
	viper.SetDefault("smtp.tls_required", false)
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("database.type", "")
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.issuer", "anonmail")
	viper.SetDefault("jwt.expiry", "30m")
	viper.SetDefault("ratelimit.generate_window", "15m")
	viper.SetDefault("ratelimit.generate_max", 10)
	viper.SetDefault("ratelimit.access_window", "5m")
	viper.SetDefault("ratelimit.access_max", 20)

	mailDomain := strings.ToLower(strings.TrimSpace(viper.GetString("mail.domain")))
	if mailDomain == "" || !strings.Contains(mailDomain, ".") {
		return nil, fmt.Errorf("mail.domain must be a domain with a dot, got %q", mailDomain)
	}

	readTimeout, err := time.ParseDuration(viper.GetString("smtp.read_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid smtp.read_timeout: %w", err)
	}
	writeTimeout, err := time.ParseDuration(viper.GetString("smtp.write_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid smtp.write_timeout: %w", err)
	}

	maxMessageBytes := viper.GetInt64("smtp.max_message_bytes")
	if maxMessageBytes <= 0 {
		return nil, fmt.Errorf("smtp.max_message_bytes must be positive")
	}
	maxConnections := viper.GetInt("smtp.max_connections")
	if maxConnections <= 0 {
		maxConnections = 100
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	jwtExpiry, err := time.ParseDuration(viper.GetString("jwt.expiry"))
	if err != nil {
		jwtExpiry = 30 * time.Minute
	}

	jwtSecret := viper.GetString("jwt.secret")

	// 安全检查：禁止使用默认的 JWT secret
	if jwtSecret == "change-me-in-production" {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret cannot be the default value. Please set ANONMAIL_JWT_SECRET environment variable")
	}
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret must be at least 32 characters long")
	}

	generateWindow, err := time.ParseDuration(viper.GetString("ratelimit.generate_window"))
	if err != nil {
		generateWindow = 15 * time.Minute
	}
	accessWindow, err := time.ParseDuration(viper.GetString("ratelimit.access_window"))
	if err != nil {
		accessWindow = 5 * time.Minute
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Mail: MailConfig{
			Domain: mailDomain,
		},
		SMTP: SMTPConfig{
			BindAddr:        viper.GetString("smtp.bind_addr"),
			Domain:          viper.GetString("smtp.domain"),
			MaxMessageBytes: maxMessageBytes,
			MaxConnections:  maxConnections,
			MaxAcceptRate:   viper.GetInt("smtp.max_accept_rate"),
			MaxRecipients:   viper.GetInt("smtp.max_recipients"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			TLSRequired:     viper.GetBool("smtp.tls_required"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
		},
		Database: DatabaseConfig{
			Type: viper.GetString("database.type"),
			DSN:  viper.GetString("database.dsn"),
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: jwtSecret,
			Issuer: viper.GetString("jwt.issuer"),
			Expiry: jwtExpiry,
		},
		RateLimit: RateLimitConfig{
			GenerateWindow: generateWindow,
			GenerateMax:    viper.GetInt("ratelimit.generate_max"),
			AccessWindow:   accessWindow,
			AccessMax:      viper.GetInt("ratelimit.access_max"),
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 先找当前目录，再找父目录；文件不存在时静默跳过，
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
