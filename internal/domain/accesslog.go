package domain

import "time"

// 审计动作类型
const (
	ActionGenerateIdentity = "generate_identity" // 生成邮箱与访问密钥
	ActionCheckAccess      = "check_access"      // 验证访问密钥
)

// AccessLog 表示一条访问审计记录。
//
// 只追加，永不修改；每次生成或验证尝试各写一条。
type AccessLog struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Address   string    `json:"address" gorm:"type:varchar(255);index"`
	IPAddress string    `json:"ipAddress" gorm:"type:varchar(45)"`
	Action    string    `json:"action" gorm:"type:varchar(50);not null"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"createdAt"`
}
