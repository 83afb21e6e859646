// Package chat 实现对话编排
// 一次请求的主链路：取会话 → 记用户消息 → 调模型 → 清洗/兜底 → 计费落库 → 返回
package chat

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ashwinyue/brandchat/internal/model"
	"github.com/ashwinyue/brandchat/internal/repository"
	"github.com/ashwinyue/brandchat/internal/service/agent"
	"github.com/ashwinyue/brandchat/internal/service/pricing"
	"github.com/ashwinyue/brandchat/internal/service/session"
)

// 会话至少有这么多条消息才值得发纪要邮件
const minEmailMessages = 3

// 品牌没配兜底话术时的默认道歉
const defaultFallback = "I'm sorry, I'm having trouble responding right now. Please try again in a moment."

// SessionStore 会话写入接口
type SessionStore interface {
	GetBySessionID(sessionID string) (*model.ChatSession, error)
	AppendMessage(sessionDBID uint, msg *model.ChatMessage) error
	TouchActivity(sessionDBID uint) error
	AddUsage(sessionDBID uint, inputTokens, outputTokens int, inputCost, outputCost float64) error
	SetUser(sessionDBID, userID uint) error
	End(sessionDBID uint) (bool, error)
	MarkEmailSent(sessionDBID uint) error
}

// UserStore 用户建档接口
// GetOrCreate 算一次新对话，UpdateProfile 只补档案不动对话计数
type UserStore interface {
	GetOrCreate(email string, profile repository.UserProfile) (*model.User, error)
	UpdateProfile(email string, profile repository.UserProfile) (*model.User, error)
}

// BrandStore 品牌读取接口
type BrandStore interface {
	GetByID(id uint) (*model.Brand, error)
}

// AnalyticsStore 会话结束后的汇总写入接口
type AnalyticsStore interface {
	UpsertInteraction(userID, brandID uint, delta repository.InteractionDelta) error
	RecalcDailySummary(brandID uint, date string) error
}

// Registry 活跃会话注册表接口
type Registry interface {
	Acquire(ctx context.Context, token, brandKey string) (*session.Entry, bool, error)
	Get(ctx context.Context, token string) (*session.Entry, error)
	Save(ctx context.Context, entry *session.Entry)
	Remove(ctx context.Context, token string)
}

// CostCalculator 费用计算接口
type CostCalculator interface {
	Calculate(modelName string, inputTokens, outputTokens int, cachedInput bool) pricing.Cost
}

// TranscriptMailer 纪要邮件发送接口，返回是否真的发出
type TranscriptMailer interface {
	SendTranscript(ctx context.Context, sessionDBID uint) (bool, error)
}

// TaskPool 后台写任务提交接口
type TaskPool interface {
	Submit(name string, task func() error)
}

// Options 编排参数
type Options struct {
	ContextWindow  int // 发给模型的历史条数上限
	MinResponseLen int // 低于此长度视为退化回复
	DefaultBrand   string
}

// Request 一次聊天请求
type Request struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
	Brand     string `json:"brand"`

	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	BusinessName string `json:"business_name"`
	Website      string `json:"website"`
	Location     string `json:"location"`

	IPAddress string `json:"-"`
	City      string `json:"city"`
	Region    string `json:"region"`
	Country   string `json:"country"`
}

// Response 一次聊天响应
type Response struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// EndResult 会话结束结果
type EndResult struct {
	SessionID       string `json:"session_id"`
	AlreadyEnded    bool   `json:"already_ended"`
	EmailSent       bool   `json:"email_sent"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Service 对话编排服务
type Service struct {
	registry  Registry
	runtime   agent.Runtime
	sessions  SessionStore
	users     UserStore
	brands    BrandStore
	analytics AnalyticsStore
	calc      CostCalculator
	mailer    TranscriptMailer
	pool      TaskPool
	opts      Options
}

// NewService 创建编排服务
func NewService(registry Registry, runtime agent.Runtime, sessions SessionStore, users UserStore,
	brands BrandStore, analytics AnalyticsStore, calc CostCalculator, mailer TranscriptMailer,
	pool TaskPool, opts Options) *Service {
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = 10
	}
	if opts.MinResponseLen <= 0 {
		opts.MinResponseLen = 10
	}
	return &Service{
		registry:  registry,
		runtime:   runtime,
		sessions:  sessions,
		users:     users,
		brands:    brands,
		analytics: analytics,
		calc:      calc,
		mailer:    mailer,
		pool:      pool,
		opts:      opts,
	}
}

// HandleMessage 处理一条用户消息
// 模型相关的任何失败都兜成品牌道歉话术，始终带回有效的会话令牌
func (s *Service) HandleMessage(ctx context.Context, req *Request) (*Response, error) {
	brandKey := req.Brand
	if brandKey == "" {
		brandKey = s.opts.DefaultBrand
	}

	entry, _, err := s.registry.Acquire(ctx, req.SessionID, brandKey)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}

	entry.Lock()
	defer entry.Unlock()

	brand, err := s.brands.GetByID(entry.BrandID)
	if err != nil {
		return nil, fmt.Errorf("load brand %d: %w", entry.BrandID, err)
	}

	s.captureIdentity(entry, req)

	entry.Append(model.RoleUser, req.Message)
	window := entry.Window(s.opts.ContextWindow)

	text, usage, degraded := s.invokeAgent(ctx, brand, entry.ModelName, window)
	if degraded && text == "" {
		text = fallbackReply(brand)
	}

	cost := s.calc.Calculate(entry.ModelName, usage.InputTokens, usage.OutputTokens, usage.CachedInput)
	formatted := RenderMarkdown(text)
	entry.Append(model.RoleAssistant, text)

	// 计费消息在关键路径上同步落库
	userMsg := &model.ChatMessage{
		Role:        model.RoleUser,
		Content:     req.Message,
		InputTokens: usage.InputTokens,
		TotalTokens: usage.InputTokens,
		InputCost:   cost.Input,
		TotalCost:   cost.Input,
	}
	if err := s.sessions.AppendMessage(entry.DBID, userMsg); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}
	assistantMsg := &model.ChatMessage{
		Role:             model.RoleAssistant,
		Content:          text,
		FormattedContent: formatted,
		OutputTokens:     usage.OutputTokens,
		TotalTokens:      usage.OutputTokens,
		OutputCost:       cost.Output,
		TotalCost:        cost.Output,
	}
	if err := s.sessions.AppendMessage(entry.DBID, assistantMsg); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}

	// 累计计数和镜像走后台，失败不影响本轮响应
	dbID := entry.DBID
	in, out := usage.InputTokens, usage.OutputTokens
	inCost, outCost := cost.Input, cost.Output
	s.pool.Submit("session.usage", func() error {
		return s.sessions.AddUsage(dbID, in, out, inCost, outCost)
	})
	s.pool.Submit("session.touch", func() error {
		return s.sessions.TouchActivity(dbID)
	})
	s.registry.Save(ctx, entry)

	return &Response{Response: formatted, SessionID: entry.Token}, nil
}

// Upload 记录一次文件上传，作为一条用户侧占位消息
func (s *Service) Upload(ctx context.Context, token, brandKey, fileName string, fileSize int64) (*Response, error) {
	if brandKey == "" {
		brandKey = s.opts.DefaultBrand
	}
	entry, _, err := s.registry.Acquire(ctx, token, brandKey)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}

	entry.Lock()
	defer entry.Unlock()

	content := fmt.Sprintf("[File uploaded: %s]", fileName)
	msg := &model.ChatMessage{
		Role:        model.RoleUser,
		Content:     content,
		ContentType: "file",
		FileName:    fileName,
		FileSize:    fileSize,
	}
	if err := s.sessions.AppendMessage(entry.DBID, msg); err != nil {
		return nil, fmt.Errorf("persist upload message: %w", err)
	}
	entry.Append(model.RoleUser, content)
	s.registry.Save(ctx, entry)

	return &Response{Response: content, SessionID: entry.Token}, nil
}

// EndSession 结束会话：收尾补交的联系方式最后落档，置结束状态、按需发纪要邮件、推分析汇总
// 重复调用安全，第二次直接返回 already_ended，不会再发邮件
func (s *Service) EndSession(ctx context.Context, token string, contact session.Contact) (*EndResult, error) {
	record, err := s.sessions.GetBySessionID(token)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", token, err)
	}

	s.applyTeardownContact(ctx, token, record, contact)

	ended, err := s.sessions.End(record.ID)
	if err != nil {
		return nil, fmt.Errorf("end session %s: %w", token, err)
	}
	s.registry.Remove(ctx, token)

	if !ended {
		return &EndResult{
			SessionID:       token,
			AlreadyEnded:    true,
			EmailSent:       record.EmailSent,
			DurationSeconds: record.DurationSeconds,
		}, nil
	}

	emailSent := false
	if !record.EmailSent && record.MessageCount >= minEmailMessages {
		sent, err := s.mailer.SendTranscript(ctx, record.ID)
		if err != nil {
			log.Printf("[chat] transcript email for %s failed: %v", token, err)
		}
		if sent {
			emailSent = true
			if err := s.sessions.MarkEmailSent(record.ID); err != nil {
				log.Printf("[chat] mark email sent for %s: %v", token, err)
			}
		}
	}

	s.scheduleAnalytics(record, emailSent)

	duration := int(time.Since(record.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	return &EndResult{
		SessionID:       token,
		EmailSent:       emailSent,
		DurationSeconds: duration,
	}, nil
}

// GetSession 查询会话落库状态
func (s *Service) GetSession(token string) (*model.ChatSession, error) {
	return s.sessions.GetBySessionID(token)
}

// applyTeardownContact 合并收尾请求补交的联系方式，结束前最后一次落档
// 会话还活跃就先并进内存状态，拿合并后的全量字段写库
func (s *Service) applyTeardownContact(ctx context.Context, token string, record *model.ChatSession, contact session.Contact) {
	if entry, err := s.registry.Get(ctx, token); err == nil && entry != nil {
		entry.Lock()
		entry.Contact.Merge(contact)
		contact = entry.Contact
		entry.Unlock()
	}

	email := contact.Email
	if email == "" || !ValidEmail(email) {
		return
	}

	if record.UserID == nil {
		user, err := s.users.GetOrCreate(email, profileFromContact(contact))
		if err != nil {
			log.Printf("[chat] upsert user %s: %v", email, err)
			return
		}
		// 会话马上结束，绑定同步落库，分析汇总才有归属
		if err := s.sessions.SetUser(record.ID, user.ID); err != nil {
			log.Printf("[chat] bind session %s to user %d: %v", token, user.ID, err)
		}
		userID := user.ID
		record.UserID = &userID
		return
	}

	if _, err := s.users.UpdateProfile(email, profileFromContact(contact)); err != nil {
		log.Printf("[chat] update profile %s: %v", email, err)
	}
}

// captureIdentity 把请求里带的联系方式并进会话状态，邮箱有效就落到用户档案
// 首次出现有效邮箱时建档绑定；之后每条消息补来的字段（比如正文里的电话）继续合并更新
func (s *Service) captureIdentity(entry *session.Entry, req *Request) {
	incoming := session.Contact{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		BusinessName: req.BusinessName,
		Website:      req.Website,
		Location:     req.Location,
		IPAddress:    req.IPAddress,
		City:         req.City,
		Region:       req.Region,
		Country:      req.Country,
	}
	if incoming.Phone == "" {
		incoming.Phone = ExtractPhone(req.Message)
	}
	changed := entry.Contact.Merge(incoming)

	email := entry.Contact.Email
	if email == "" || !ValidEmail(email) {
		return
	}

	if entry.UserID == nil {
		user, err := s.users.GetOrCreate(email, profileFromContact(entry.Contact))
		if err != nil {
			log.Printf("[chat] upsert user %s: %v", email, err)
			return
		}
		s.bindUser(entry, user.ID)
		return
	}

	if !changed {
		return
	}
	user, err := s.users.UpdateProfile(email, profileFromContact(entry.Contact))
	if err != nil {
		log.Printf("[chat] update profile %s: %v", email, err)
		return
	}
	// 中途换了邮箱会落到另一个用户，会话跟着改绑
	if *entry.UserID != user.ID {
		s.bindUser(entry, user.ID)
	}
}

// bindUser 把会话绑定到用户，落库走后台
func (s *Service) bindUser(entry *session.Entry, userID uint) {
	id := userID
	entry.UserID = &id
	dbID := entry.DBID
	s.pool.Submit("session.setuser", func() error {
		return s.sessions.SetUser(dbID, id)
	})
}

// profileFromContact 会话联系状态转用户档案字段
func profileFromContact(c session.Contact) repository.UserProfile {
	return repository.UserProfile{
		Name:         c.Name,
		Phone:        c.Phone,
		BusinessName: c.BusinessName,
		Website:      c.Website,
		Location:     c.Location,
		IPAddress:    c.IPAddress,
		City:         c.City,
		Region:       c.Region,
		Country:      c.Country,
	}
}

// invokeAgent 调一次模型，退化回复（过短）重试一次
// 返回 degraded=true 表示两次都不合格或调用失败，text 可能为空
func (s *Service) invokeAgent(ctx context.Context, brand *model.Brand, modelName string, history []agent.Message) (string, agent.Result, bool) {
	req := agent.Request{
		Model:       modelName,
		Persona:     brand.Persona,
		History:     history,
		Temperature: brand.Temperature,
		TopP:        brand.TopP,
		MaxTokens:   brand.MaxTokens,
	}

	var usage agent.Result
	for attempt := 0; attempt < 2; attempt++ {
		result, err := s.runtime.Run(ctx, req)
		if err != nil {
			log.Printf("[chat] agent call failed (attempt %d): %v", attempt+1, err)
			continue
		}
		usage.InputTokens += result.InputTokens
		usage.OutputTokens += result.OutputTokens
		usage.TotalTokens += result.TotalTokens
		usage.CachedInput = usage.CachedInput || result.CachedInput

		text := Scrub(result.Text)
		if len(text) >= s.opts.MinResponseLen {
			return text, usage, false
		}
		log.Printf("[chat] degenerate response (%d chars), attempt %d", len(text), attempt+1)
	}
	return "", usage, true
}

// scheduleAnalytics 会话结束后把汇总更新排进后台队列
func (s *Service) scheduleAnalytics(record *model.ChatSession, emailSent bool) {
	brandID := record.BrandID
	date := record.StartedAt.Format("2006-01-02")

	if record.UserID != nil {
		userID := *record.UserID
		emails := 0
		if emailSent {
			emails = 1
		}
		delta := repository.InteractionDelta{
			Sessions:     1,
			Messages:     record.MessageCount,
			EmailsSent:   emails,
			InputTokens:  record.TotalInputTokens,
			OutputTokens: record.TotalOutputTokens,
			Cost:         record.TotalCost,
		}
		s.pool.Submit("analytics.interaction", func() error {
			return s.analytics.UpsertInteraction(userID, brandID, delta)
		})
	}
	s.pool.Submit("analytics.daily", func() error {
		return s.analytics.RecalcDailySummary(brandID, date)
	})
}

func fallbackReply(brand *model.Brand) string {
	if brand.FallbackReply != "" {
		return brand.FallbackReply
	}
	return defaultFallback
}
