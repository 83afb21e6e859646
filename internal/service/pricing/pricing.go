// Package pricing 按模型单价计算一轮对话的费用
// 单价按每百万 token 计，所有中间运算走定点数，保留 6 位小数
package pricing

import (
	"log"

	"github.com/shopspring/decimal"

	"github.com/ashwinyue/brandchat/internal/model"
)

const tokensPerUnit = 1_000_000

// Cost 一轮对话的费用拆分
type Cost struct {
	Input  float64
	Output float64
	Total  float64
}

// PricingStore 单价读取接口
type PricingStore interface {
	GetByModel(modelName string) (*model.ModelPricing, error)
}

// Calculator 费用计算器
type Calculator struct {
	store        PricingStore
	defaultModel string
}

// NewCalculator 创建费用计算器
// defaultModel 在请求模型无单价时兜底
func NewCalculator(store PricingStore, defaultModel string) *Calculator {
	return &Calculator{store: store, defaultModel: defaultModel}
}

// Calculate 计算一轮对话的费用
// cachedInput 为 true 且模型配了缓存单价时，输入侧按缓存价计
// 模型查不到单价时退回默认模型，再查不到记零，计费缺失不阻断对话
func (c *Calculator) Calculate(modelName string, inputTokens, outputTokens int, cachedInput bool) Cost {
	pricing, err := c.store.GetByModel(modelName)
	if err != nil && modelName != c.defaultModel {
		pricing, err = c.store.GetByModel(c.defaultModel)
	}
	if err != nil || pricing == nil {
		log.Printf("[pricing] no pricing for model %s, recording zero cost", modelName)
		return Cost{}
	}

	inputPrice := pricing.InputPrice
	if cachedInput && pricing.CachedInputPrice > 0 {
		inputPrice = pricing.CachedInputPrice
	}

	input := tokenCost(inputTokens, inputPrice)
	output := tokenCost(outputTokens, pricing.OutputPrice)
	total := input.Add(output).Round(6)

	return Cost{
		Input:  input.InexactFloat64(),
		Output: output.InexactFloat64(),
		Total:  total.InexactFloat64(),
	}
}

// tokenCost tokens / 1e6 * 单价，保留 6 位小数
func tokenCost(tokens int, unitPrice float64) decimal.Decimal {
	return decimal.NewFromInt(int64(tokens)).
		Div(decimal.NewFromInt(tokensPerUnit)).
		Mul(decimal.NewFromFloat(unitPrice)).
		Round(6)
}
