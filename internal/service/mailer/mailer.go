// Package mailer 负责会话纪要邮件的渲染与投递
// SMTPS 直连、固定间隔重试，认证失败不重试
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/ashwinyue/brandchat/internal/config"
	"github.com/ashwinyue/brandchat/internal/model"
)

// SessionReader 会话读取接口
type SessionReader interface {
	GetByID(id uint) (*model.ChatSession, error)
}

// BrandReader 品牌与收件人读取接口
type BrandReader interface {
	GetByID(id uint) (*model.Brand, error)
	ActiveRecipientEmails(brandID uint) ([]string, error)
}

// UserReader 用户读取接口
type UserReader interface {
	GetByID(id uint) (*model.User, error)
}

// EmailLogWriter 发送记录写入接口
type EmailLogWriter interface {
	Create(log *model.EmailLog) error
}

// TaskPool 后台写任务提交接口
type TaskPool interface {
	Submit(name string, task func() error)
}

// Service 纪要邮件服务
type Service struct {
	cfg      *config.SMTPConfig
	sessions SessionReader
	brands   BrandReader
	users    UserReader
	emails   EmailLogWriter
	pool     TaskPool

	// 测试替换点，默认走 SMTPS
	send func(recipients []string, subject, htmlBody string) error
}

// NewService 创建纪要邮件服务
func NewService(cfg *config.SMTPConfig, sessions SessionReader, brands BrandReader,
	users UserReader, emails EmailLogWriter, pool TaskPool) *Service {
	s := &Service{
		cfg:      cfg,
		sessions: sessions,
		brands:   brands,
		users:    users,
		emails:   emails,
		pool:     pool,
	}
	s.send = s.sendSMTP
	return s
}

// SendTranscript 发送会话纪要
// 已发过、收件人为空都算不需要发送，返回 false 且无错误
// 重试耗尽返回 (false, 最后一次错误)，由调用方决定记日志还是忽略
func (s *Service) SendTranscript(ctx context.Context, sessionDBID uint) (bool, error) {
	session, err := s.sessions.GetByID(sessionDBID)
	if err != nil {
		return false, fmt.Errorf("load session %d: %w", sessionDBID, err)
	}
	if session.EmailSent {
		return false, nil
	}

	brand, err := s.brands.GetByID(session.BrandID)
	if err != nil {
		return false, fmt.Errorf("load brand %d: %w", session.BrandID, err)
	}

	recipients, err := s.brands.ActiveRecipientEmails(brand.ID)
	if err != nil {
		log.Printf("[mailer] load recipients for brand %d: %v", brand.ID, err)
	}
	if len(recipients) == 0 && brand.Email != "" {
		recipients = []string{brand.Email}
	}
	if len(recipients) == 0 {
		log.Printf("[mailer] brand %s has no recipients, skipping transcript", brand.BrandKey)
		return false, nil
	}

	var user *model.User
	if session.UserID != nil {
		if u, err := s.users.GetByID(*session.UserID); err == nil {
			user = u
		}
	}

	htmlBody, err := renderTranscript(brand, session, user)
	if err != nil {
		return false, err
	}
	subject := buildSubject(brand, user)

	attempts, sendErr := s.deliver(recipients, subject, htmlBody)

	status := model.EmailStatusSent
	if sendErr != nil {
		status = model.EmailStatusFailed
	}
	entry := &model.EmailLog{
		SessionDBID:     session.ID,
		UserID:          session.UserID,
		BrandID:         brand.ID,
		RecipientEmails: strings.Join(recipients, ", "),
		Subject:         subject,
		HTMLContent:     htmlBody,
		Status:          status,
		AttemptCount:    attempts,
	}
	s.pool.Submit("email.log", func() error {
		return s.emails.Create(entry)
	})

	if sendErr != nil {
		return false, sendErr
	}
	return true, nil
}

// deliver 按配置重试投递，认证失败立即放弃
func (s *Service) deliver(recipients []string, subject, htmlBody string) (int, error) {
	maxRetries := s.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	delay := time.Duration(s.cfg.RetryDelay) * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := s.send(recipients, subject, htmlBody)
		if err == nil {
			return attempt, nil
		}
		lastErr = err
		if isAuthError(err) {
			log.Printf("[mailer] auth failed, not retrying: %v", err)
			return attempt, err
		}
		log.Printf("[mailer] send attempt %d/%d failed: %v", attempt, maxRetries, err)
		if attempt < maxRetries {
			time.Sleep(delay)
		}
	}
	return maxRetries, lastErr
}

// sendSMTP SMTPS 投递一封邮件
func (s *Service) sendSMTP(recipients []string, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: time.Duration(s.cfg.ConnectTimeout) * time.Second},
		Config:    &tls.Config{ServerName: s.cfg.Host},
	}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return &authError{err: err}
	}

	from := s.cfg.FromEmail
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	msg := buildMessage(s.cfg.FromName, from, recipients, subject, htmlBody)
	if _, err := writer.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}

// authError 标记认证失败，deliver 看到它不会重试
type authError struct {
	err error
}

func (e *authError) Error() string { return "smtp auth: " + e.err.Error() }
func (e *authError) Unwrap() error { return e.err }

func isAuthError(err error) bool {
	_, ok := err.(*authError)
	return ok
}

func buildSubject(brand *model.Brand, user *model.User) string {
	who := "Anonymous visitor"
	if user != nil && user.Name != "" {
		who = user.Name
	} else if user != nil && user.Email != "" {
		who = user.Email
	}
	return fmt.Sprintf("New chat conversation: %s - %s", who, brand.DisplayName)
}

func buildMessage(fromName, fromEmail string, recipients []string, subject, htmlBody string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("From: %s <%s>\r\n", fromName, fromEmail))
	sb.WriteString("To: " + strings.Join(recipients, ", ") + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(htmlBody)
	return sb.String()
}
