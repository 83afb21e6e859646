package model

import "time"

// User 聊天参与者
// 第一次采集到邮箱时建档，之后每次回访按"非空覆盖"更新档案字段
type User struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	Email              string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Name               string    `json:"name" gorm:"size:255"`
	Phone              string    `json:"phone" gorm:"size:50"`
	BusinessName       string    `json:"business_name" gorm:"size:255"`
	Website            string    `json:"website" gorm:"size:255"`
	Location           string    `json:"location" gorm:"size:255"`
	IPAddress          string    `json:"ip_address" gorm:"size:64"`
	City               string    `json:"city" gorm:"size:100"`
	Region             string    `json:"region" gorm:"size:100"`
	Country            string    `json:"country" gorm:"size:100"`
	TotalConversations int       `json:"total_conversations" gorm:"default:0"`
	FirstSeen          time.Time `json:"first_seen" gorm:"autoCreateTime"`
	LastSeen           time.Time `json:"last_seen" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
