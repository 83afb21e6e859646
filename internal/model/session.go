package model

import "time"

// 会话状态
const (
	SessionStatusActive = "active"
	SessionStatusEnded  = "ended"
)

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession 一次完整的对话
// 累计 token/费用计数以数据库为准，内存中的副本只作展示缓存
type ChatSession struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	SessionID string `json:"session_id" gorm:"size:64;uniqueIndex;not null"`
	BrandID   uint   `json:"brand_id" gorm:"index"`
	UserID    *uint  `json:"user_id" gorm:"index"`
	Status    string `json:"status" gorm:"size:20;index;default:active"`
	ModelName string `json:"model_name" gorm:"size:100"`

	MessageCount          int `json:"message_count" gorm:"default:0"`
	UserMessageCount      int `json:"user_message_count" gorm:"default:0"`
	AssistantMessageCount int `json:"assistant_message_count" gorm:"default:0"`

	LastInputTokens   int `json:"last_input_tokens" gorm:"default:0"`
	LastOutputTokens  int `json:"last_output_tokens" gorm:"default:0"`
	LastTokenUsage    int `json:"last_token_usage" gorm:"default:0"`
	TotalInputTokens  int `json:"total_input_tokens" gorm:"default:0"`
	TotalOutputTokens int `json:"total_output_tokens" gorm:"default:0"`
	TotalTokens       int `json:"total_tokens" gorm:"default:0"`

	InputCost  float64 `json:"input_cost" gorm:"default:0"`
	OutputCost float64 `json:"output_cost" gorm:"default:0"`
	TotalCost  float64 `json:"total_cost" gorm:"default:0"`

	EmailSent       bool       `json:"email_sent" gorm:"default:false"`
	EmailSentAt     *time.Time `json:"email_sent_at"`
	DurationSeconds int        `json:"duration_seconds" gorm:"default:0"`

	StartedAt    time.Time  `json:"started_at" gorm:"autoCreateTime;index"`
	LastActivity time.Time  `json:"last_activity"`
	EndedAt      *time.Time `json:"ended_at"`

	Messages []ChatMessage `json:"messages,omitempty" gorm:"foreignKey:SessionDBID"`
}

// ChatMessage 会话中的一轮消息，插入后不再修改
// (session_id, message_order) 唯一索引保证并发追加时序号不重复
type ChatMessage struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	SessionDBID      uint      `json:"session_db_id" gorm:"column:session_id;index;not null;uniqueIndex:idx_session_message_order"`
	Role             string    `json:"role" gorm:"size:20;index;not null"`
	Content          string    `json:"content" gorm:"type:text"`
	FormattedContent string    `json:"formatted_content" gorm:"type:text"`
	ContentType      string    `json:"content_type" gorm:"size:20;default:text"`
	FileName         string    `json:"file_name" gorm:"size:255"`
	FileSize         int64     `json:"file_size" gorm:"default:0"`
	InputTokens      int       `json:"input_tokens" gorm:"default:0"`
	OutputTokens     int       `json:"output_tokens" gorm:"default:0"`
	TotalTokens      int       `json:"total_tokens" gorm:"default:0"`
	InputCost        float64   `json:"input_cost" gorm:"default:0"`
	OutputCost       float64   `json:"output_cost" gorm:"default:0"`
	TotalCost        float64   `json:"total_cost" gorm:"default:0"`
	MessageOrder     int       `json:"message_order" gorm:"not null;uniqueIndex:idx_session_message_order"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (ChatSession) TableName() string {
	return "sessions"
}

func (ChatMessage) TableName() string {
	return "messages"
}
