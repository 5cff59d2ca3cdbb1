package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"anonmail/backend/internal/domain"
)

// Cache Redis 缓存实现。
//
// 承担三类职责：SMTP 收件路径上的邮箱热点缓存、
// HTTP 层的限流计数、新邮件事件的发布。
type Cache struct {
	client *redis.Client
	ctx    context.Context
}

// NewCache 创建 Redis 缓存实例。
func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{
		client: client,
		ctx:    ctx,
	}, nil
}

// ========== 邮箱缓存 ==========

// CacheMailbox 缓存邮箱信息。
func (c *Cache) CacheMailbox(mailbox *domain.Mailbox, ttl time.Duration) error {
	key := fmt.Sprintf("mailbox:%s", mailbox.Address)
	data, err := json.Marshal(mailbox)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, key, data, ttl).Err()
}

// GetCachedMailbox 获取缓存的邮箱信息。
func (c *Cache) GetCachedMailbox(address string) (*domain.Mailbox, error) {
	key := fmt.Sprintf("mailbox:%s", address)
	data, err := c.client.Get(c.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("mailbox not found in cache")
		}
		return nil, err
	}

	var mailbox domain.Mailbox
	if err := json.Unmarshal([]byte(data), &mailbox); err != nil {
		return nil, err
	}
	return &mailbox, nil
}

// DeleteCachedMailbox 删除缓存的邮箱信息。
func (c *Cache) DeleteCachedMailbox(address string) error {
	key := fmt.Sprintf("mailbox:%s", address)
	return c.client.Del(c.ctx, key).Err()
}

// ========== 限流计数 ==========

// IncrementRateLimit 递增限流计数并在首次写入时设置窗口过期。
func (c *Cache) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	fullKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := c.client.Incr(c.ctx, fullKey).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		c.client.Expire(c.ctx, fullKey, window)
	}
	return count, nil
}

// ========== 新邮件事件 ==========

// PublishNewMail 发布新邮件事件到地址对应的频道。
func (c *Cache) PublishNewMail(address string, message *domain.Message) error {
	channel := fmt.Sprintf("newmail:%s", address)
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.client.Publish(c.ctx, channel, data).Err()
}

// Ping 测试 Redis 连接。
func (c *Cache) Ping() error {
	return c.client.Ping(c.ctx).Err()
}

// Close 关闭 Redis 连接。
func (c *Cache) Close() error {
	return c.client.Close()
}
