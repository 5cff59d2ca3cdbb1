package domain

import "time"

// Message 表示投递到某个匿名邮箱的一封邮件。
//
// 由 SMTP 提交路径一次性创建，创建后投递路径不再修改；
// IsRead 只由 HTTP 侧的已读标记接口翻转。
// Body 在同时存在 HTML 与纯文本时保存 HTML。
type Message struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Address    string    `json:"address" gorm:"type:varchar(255);index;not null"`
	Sender     string    `json:"sender" gorm:"type:varchar(255)"`
	Subject    string    `json:"subject" gorm:"type:varchar(500)"`
	Body       string    `json:"body" gorm:"type:text"`
	ReceivedAt time.Time `json:"receivedAt" gorm:"index"`
	IsRead     bool      `json:"isRead" gorm:"default:false"`
	CreatedAt  time.Time `json:"createdAt"`
}
