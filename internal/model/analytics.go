package model

import "time"

// UserBrandInteraction 用户与单个品牌的累计互动
// (user_id, brand_id) 唯一，会话结束时 insert-or-increment
type UserBrandInteraction struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	UserID            uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_brand"`
	BrandID           uint      `json:"brand_id" gorm:"not null;uniqueIndex:idx_user_brand"`
	TotalSessions     int       `json:"total_sessions" gorm:"default:0"`
	TotalMessages     int       `json:"total_messages" gorm:"default:0"`
	TotalEmailsSent   int       `json:"total_emails_sent" gorm:"default:0"`
	TotalInputTokens  int       `json:"total_input_tokens" gorm:"default:0"`
	TotalOutputTokens int       `json:"total_output_tokens" gorm:"default:0"`
	TotalTokens       int       `json:"total_tokens" gorm:"default:0"`
	TotalCost         float64   `json:"total_cost" gorm:"default:0"`
	FirstInteraction  time.Time `json:"first_interaction" gorm:"autoCreateTime"`
	LastInteraction   time.Time `json:"last_interaction"`
}

// AnalyticsSummary 按 (品牌, 日期) 的每日汇总，整行重算后 upsert
type AnalyticsSummary struct {
	ID                    uint    `json:"id" gorm:"primaryKey"`
	BrandID               uint    `json:"brand_id" gorm:"not null;uniqueIndex:idx_brand_date"`
	Date                  string  `json:"date" gorm:"size:10;not null;uniqueIndex:idx_brand_date"`
	TotalSessions         int     `json:"total_sessions" gorm:"default:0"`
	TotalMessages         int     `json:"total_messages" gorm:"default:0"`
	TotalUsers            int     `json:"total_users" gorm:"default:0"`
	EmailsSent            int     `json:"emails_sent" gorm:"default:0"`
	AvgSessionDuration    float64 `json:"avg_session_duration" gorm:"default:0"`
	AvgMessagesPerSession float64 `json:"avg_messages_per_session" gorm:"default:0"`
	TotalInputTokens      int     `json:"total_input_tokens" gorm:"default:0"`
	TotalOutputTokens     int     `json:"total_output_tokens" gorm:"default:0"`
	TotalTokens           int     `json:"total_tokens" gorm:"default:0"`
	TotalCost             float64 `json:"total_cost" gorm:"default:0"`
}

// TableName 指定表名
func (UserBrandInteraction) TableName() string {
	return "user_brand_interactions"
}

func (AnalyticsSummary) TableName() string {
	return "analytics_summary"
}
