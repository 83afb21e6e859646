package model

import "time"

// ModelPricing 模型按百万 token 的单价，只读参考数据
type ModelPricing struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	ModelName        string    `json:"model_name" gorm:"size:100;uniqueIndex;not null"`
	InputPrice       float64   `json:"input_price" gorm:"not null"`
	CachedInputPrice float64   `json:"cached_input_price" gorm:"default:0"`
	OutputPrice      float64   `json:"output_price" gorm:"not null"`
	IsActive         bool      `json:"is_active" gorm:"index"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ModelPricing) TableName() string {
	return "model_pricing"
}

// DefaultPricings 内置的模型价格（美元 / 百万 token），启动时做兜底写入
func DefaultPricings() []ModelPricing {
	return []ModelPricing{
		{ModelName: "gpt-4.1-nano", InputPrice: 0.10, CachedInputPrice: 0.025, OutputPrice: 0.40, IsActive: true},
		{ModelName: "gpt-4.1-mini", InputPrice: 0.40, CachedInputPrice: 0.10, OutputPrice: 1.60, IsActive: true},
		{ModelName: "gpt-4.1", InputPrice: 2.00, CachedInputPrice: 0.50, OutputPrice: 8.00, IsActive: true},
		{ModelName: "gpt-4o-mini", InputPrice: 0.15, CachedInputPrice: 0.075, OutputPrice: 0.60, IsActive: true},
		{ModelName: "gpt-4o", InputPrice: 2.50, CachedInputPrice: 1.25, OutputPrice: 10.00, IsActive: true},
	}
}
