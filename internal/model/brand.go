// Package model 提供品牌相关的数据模型
package model

import "time"

// Brand 品牌（租户）配置
// Agent 人设、知识库引用和采样参数都挂在品牌行上，编排逻辑保持品牌无关
type Brand struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	BrandKey      string    `json:"brand_key" gorm:"size:50;uniqueIndex;not null"`
	DisplayName   string    `json:"display_name" gorm:"size:255;not null"`
	Email         string    `json:"email" gorm:"size:255"`
	VectorStoreID string    `json:"vector_store_id" gorm:"size:100"`
	ModelName     string    `json:"model_name" gorm:"size:100;default:gpt-4.1-nano"`
	Persona       string    `json:"persona" gorm:"type:text"`
	FallbackReply string    `json:"fallback_reply" gorm:"type:text"`
	Temperature   float64   `json:"temperature" gorm:"default:0.7"`
	TopP          float64   `json:"top_p" gorm:"default:0.9"`
	MaxTokens     int       `json:"max_tokens" gorm:"default:600"`
	IsActive      bool      `json:"is_active" gorm:"index"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Recipients []BrandRecipient `json:"recipients,omitempty" gorm:"foreignKey:BrandID"`
}

// BrandRecipient 品牌邮件接收人
type BrandRecipient struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BrandID   uint      `json:"brand_id" gorm:"index;not null;uniqueIndex:idx_brand_recipient_email"`
	Email     string    `json:"email" gorm:"size:255;not null;uniqueIndex:idx_brand_recipient_email"`
	Name      string    `json:"name" gorm:"size:255"`
	// 不给 default，false 必须真实落库，否则停用的收件人还会收到邮件
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (Brand) TableName() string {
	return "brands"
}

func (BrandRecipient) TableName() string {
	return "brand_recipients"
}
