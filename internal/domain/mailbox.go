package domain

import (
	"time"
)

// Mailbox 表示一个匿名邮箱的业务实体。
//
// 地址由系统随机生成，访问密钥仅以摘要形式保存。
// AccessKeyHash 在创建时写入一次，之后永不更新；
// 验证操作只会刷新 LastAccessedAt。
type Mailbox struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Address        string    `json:"address" gorm:"type:varchar(255);uniqueIndex"`
	AccessKeyHash  string    `json:"-" gorm:"type:varchar(64);not null"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
}
