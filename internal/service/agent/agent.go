// Package agent 封装外部对话模型的调用
// 编排层只消费统一的 Result，不接触具体提供方的响应结构
package agent

import "context"

// Message 一条对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 一轮对话请求
// Persona 作为 system 提示词，History 已按品牌裁剪到上下文窗口
type Request struct {
	Model       string
	Persona     string
	History     []Message
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Result 一轮对话的归一化结果
// 不管提供方的用量字段长什么样，出了这个包只有这几个值
type Result struct {
	Text         string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	// CachedInput 本轮输入命中了提供方的提示词缓存，计费走缓存档
	CachedInput bool
}

// Runtime 对话模型运行时
type Runtime interface {
	Run(ctx context.Context, req Request) (*Result, error)
}
