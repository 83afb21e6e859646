package model

import "time"

// 邮件发送状态
const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailLog 会话纪要邮件的发送记录，每次尝试写一行
type EmailLog struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	SessionDBID     uint      `json:"session_db_id" gorm:"column:session_id;index"`
	UserID          *uint     `json:"user_id" gorm:"index"`
	BrandID         uint      `json:"brand_id" gorm:"index"`
	RecipientEmails string    `json:"recipient_emails" gorm:"type:text"`
	Subject         string    `json:"subject" gorm:"size:500"`
	HTMLContent     string    `json:"html_content" gorm:"type:text"`
	Status          string    `json:"status" gorm:"size:20;index;default:sent"`
	AttemptCount    int       `json:"attempt_count" gorm:"default:1"`
	SentAt          time.Time `json:"sent_at" gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (EmailLog) TableName() string {
	return "email_logs"
}
