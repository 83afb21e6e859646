// Package mailer 提供纪要邮件单元测试
package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/ashwinyue/brandchat/internal/config"
	"github.com/ashwinyue/brandchat/internal/model"
)

// ========== 测试替身 ==========

type syncPool struct{}

func (syncPool) Submit(name string, task func() error) { _ = task() }

type mockSessionReader struct {
	sessions map[uint]*model.ChatSession
}

func (m *mockSessionReader) GetByID(id uint) (*model.ChatSession, error) {
	if session, ok := m.sessions[id]; ok {
		return session, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type mockBrandReader struct {
	brand      model.Brand
	recipients []string
}

func (m *mockBrandReader) GetByID(id uint) (*model.Brand, error) {
	b := m.brand
	return &b, nil
}

func (m *mockBrandReader) ActiveRecipientEmails(brandID uint) ([]string, error) {
	return m.recipients, nil
}

type mockUserReader struct {
	user *model.User
}

func (m *mockUserReader) GetByID(id uint) (*model.User, error) {
	if m.user == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return m.user, nil
}

type mockEmailLog struct {
	entries []*model.EmailLog
}

func (m *mockEmailLog) Create(entry *model.EmailLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

func testSession(emailSent bool) *model.ChatSession {
	userID := uint(3)
	return &model.ChatSession{
		ID:              1,
		SessionID:       "tok-1",
		BrandID:         2,
		UserID:          &userID,
		MessageCount:    4,
		TotalTokens:     900,
		TotalCost:       0.0042,
		EmailSent:       emailSent,
		DurationSeconds: 95,
		StartedAt:       time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		Messages: []model.ChatMessage{
			{Role: model.RoleUser, Content: "Do you handle reviews?", MessageOrder: 1},
			{Role: model.RoleAssistant, Content: "Yes we do.", FormattedContent: "<p>Yes we do.</p>", MessageOrder: 2},
		},
	}
}

type testEnv struct {
	svc    *Service
	emails *mockEmailLog
	sent   []string
}

func newTestEnv(session *model.ChatSession, sendErr error) *testEnv {
	env := &testEnv{emails: &mockEmailLog{}}
	cfg := &config.SMTPConfig{
		Host:       "smtp.example.com",
		Port:       465,
		FromEmail:  "bot@example.com",
		FromName:   "Chatbot",
		MaxRetries: 3,
		RetryDelay: 0,
	}
	sessions := &mockSessionReader{sessions: map[uint]*model.ChatSession{}}
	if session != nil {
		sessions.sessions[session.ID] = session
	}
	brands := &mockBrandReader{
		brand:      model.Brand{ID: 2, BrandKey: "acme", DisplayName: "Acme", Email: "owner@acme.com"},
		recipients: []string{"sales@acme.com", "boss@acme.com"},
	}
	users := &mockUserReader{user: &model.User{ID: 3, Name: "Jo", Email: "jo@example.com", Phone: "5551234567"}}

	env.svc = NewService(cfg, sessions, brands, users, env.emails, syncPool{})
	env.svc.send = func(recipients []string, subject, htmlBody string) error {
		if sendErr != nil {
			return sendErr
		}
		env.sent = append(env.sent, strings.Join(recipients, ","))
		return nil
	}
	return env
}

// ========== SendTranscript 测试 ==========

func TestSendTranscript(t *testing.T) {
	env := newTestEnv(testSession(false), nil)

	sent, err := env.svc.SendTranscript(context.Background(), 1)
	if err != nil {
		t.Fatalf("SendTranscript() error = %v", err)
	}
	if !sent {
		t.Fatal("SendTranscript() = false, want true")
	}
	if len(env.sent) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(env.sent))
	}
	if env.sent[0] != "sales@acme.com,boss@acme.com" {
		t.Errorf("recipients = %s, want configured list", env.sent[0])
	}

	if len(env.emails.entries) != 1 {
		t.Fatalf("email logs = %d, want 1", len(env.emails.entries))
	}
	entry := env.emails.entries[0]
	if entry.Status != model.EmailStatusSent {
		t.Errorf("log status = %s, want sent", entry.Status)
	}
	if entry.AttemptCount != 1 {
		t.Errorf("log attempts = %d, want 1", entry.AttemptCount)
	}
	if !strings.Contains(entry.Subject, "Jo") || !strings.Contains(entry.Subject, "Acme") {
		t.Errorf("subject = %q, want visitor and brand names", entry.Subject)
	}
}

func TestSendTranscriptIdempotent(t *testing.T) {
	env := newTestEnv(testSession(true), nil)

	sent, err := env.svc.SendTranscript(context.Background(), 1)
	if err != nil {
		t.Fatalf("SendTranscript() error = %v", err)
	}
	if sent {
		t.Error("SendTranscript() = true for already-sent session, want false")
	}
	if len(env.sent) != 0 {
		t.Errorf("deliveries = %d, want 0", len(env.sent))
	}
}

func TestSendTranscriptRetriesExhausted(t *testing.T) {
	env := newTestEnv(testSession(false), errors.New("connection reset"))

	sent, err := env.svc.SendTranscript(context.Background(), 1)
	if err == nil {
		t.Fatal("SendTranscript() error = nil, want delivery error")
	}
	if sent {
		t.Error("SendTranscript() = true, want false")
	}
	if len(env.emails.entries) != 1 {
		t.Fatalf("email logs = %d, want 1", len(env.emails.entries))
	}
	entry := env.emails.entries[0]
	if entry.Status != model.EmailStatusFailed {
		t.Errorf("log status = %s, want failed", entry.Status)
	}
	if entry.AttemptCount != 3 {
		t.Errorf("log attempts = %d, want 3", entry.AttemptCount)
	}
}

func TestSendTranscriptAuthFailureNoRetry(t *testing.T) {
	env := newTestEnv(testSession(false), &authError{err: errors.New("535 bad credentials")})

	sent, err := env.svc.SendTranscript(context.Background(), 1)
	if err == nil {
		t.Fatal("SendTranscript() error = nil, want auth error")
	}
	if sent {
		t.Error("SendTranscript() = true, want false")
	}
	if env.emails.entries[0].AttemptCount != 1 {
		t.Errorf("log attempts = %d, want 1 (no retry on auth failure)", env.emails.entries[0].AttemptCount)
	}
}

// ========== 模板渲染测试 ==========

func TestRenderTranscript(t *testing.T) {
	brand := &model.Brand{DisplayName: "Acme"}
	session := testSession(false)
	user := &model.User{Name: "Jo", Email: "jo@example.com", City: "Austin", Country: "US"}

	html, err := renderTranscript(brand, session, user)
	if err != nil {
		t.Fatalf("renderTranscript() error = %v", err)
	}
	for _, want := range []string{
		"Acme — Chat Transcript",
		"Do you handle reviews?",
		"<p>Yes we do.</p>",
		"jo@example.com",
		"Austin, US",
		"1m 35s",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("renderTranscript() missing %q", want)
		}
	}
}
