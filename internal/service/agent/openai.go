package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"

	"github.com/ashwinyue/brandchat/internal/config"
	"github.com/ashwinyue/brandchat/internal/model"
)

// OpenAIRuntime 基于 OpenAI 兼容接口的运行时
type OpenAIRuntime struct {
	client  openai.Client
	timeout time.Duration
}

// NewOpenAIRuntime 创建运行时
func NewOpenAIRuntime(cfg *config.AgentConfig) *OpenAIRuntime {
	var clientOpts []openaiopt.RequestOption
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(cfg.BaseURL))
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIRuntime{
		client:  openai.NewClient(clientOpts...),
		timeout: timeout,
	}
}

// Run 执行一轮对话
func (r *OpenAIRuntime) Run(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+1)
	if req.Persona != "" {
		messages = append(messages, openai.SystemMessage(req.Persona))
	}
	for _, msg := range req.History {
		switch msg.Role {
		case model.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("agent run: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("agent run: empty choices for model %s", req.Model)
	}

	return &Result{
		Text:         completion.Choices[0].Message.Content,
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
		TotalTokens:  int(completion.Usage.TotalTokens),
		CachedInput:  completion.Usage.PromptTokensDetails.CachedTokens > 0,
	}, nil
}
