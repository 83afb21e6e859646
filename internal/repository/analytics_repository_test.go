package repository

import (
	"testing"
	"time"

	"github.com/ashwinyue/brandchat/internal/model"
	"github.com/ashwinyue/brandchat/internal/testutil"
)

// ========== 用户品牌互动 ==========

func TestUpsertInteractionInsertsThenIncrements(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAnalyticsRepository(db)
	users := NewUserRepository(db)
	brand := testutil.SeedBrand(t, db, "acme", "Acme")

	user, err := users.GetOrCreate("dana@example.com", UserProfile{})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	first := InteractionDelta{Sessions: 1, Messages: 4, EmailsSent: 1, InputTokens: 100, OutputTokens: 60, Cost: 0.0001}
	if err := repo.UpsertInteraction(user.ID, brand.ID, first); err != nil {
		t.Fatalf("First UpsertInteraction failed: %v", err)
	}

	second := InteractionDelta{Sessions: 1, Messages: 2, InputTokens: 50, OutputTokens: 30, Cost: 0.00005}
	if err := repo.UpsertInteraction(user.ID, brand.ID, second); err != nil {
		t.Fatalf("Second UpsertInteraction failed: %v", err)
	}

	got, err := repo.GetInteraction(user.ID, brand.ID)
	if err != nil {
		t.Fatalf("GetInteraction failed: %v", err)
	}
	if got.TotalSessions != 2 {
		t.Errorf("Expected 2 sessions, got %d", got.TotalSessions)
	}
	if got.TotalMessages != 6 {
		t.Errorf("Expected 6 messages, got %d", got.TotalMessages)
	}
	if got.TotalEmailsSent != 1 {
		t.Errorf("Expected 1 email, got %d", got.TotalEmailsSent)
	}
	if got.TotalTokens != 240 {
		t.Errorf("Expected 240 tokens, got %d", got.TotalTokens)
	}

	// 同一组合只保留一行
	var count int64
	if err := db.Model(&model.UserBrandInteraction{}).Count(&count).Error; err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 interaction row, got %d", count)
	}
}

// ========== 每日汇总 ==========

func TestRecalcDailySummary(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAnalyticsRepository(db)
	sessions := NewSessionRepository(db)
	brand := testutil.SeedBrand(t, db, "acme", "Acme")

	s1 := testutil.SeedSession(t, db, brand.ID, "sess-day-1")
	s2 := testutil.SeedSession(t, db, brand.ID, "sess-day-2")
	for _, s := range []*model.ChatSession{s1, s2} {
		for i := 0; i < 2; i++ {
			msg := &model.ChatMessage{Role: model.RoleUser, Content: "hi"}
			if err := sessions.AppendMessage(s.ID, msg); err != nil {
				t.Fatalf("AppendMessage failed: %v", err)
			}
		}
		if err := sessions.AddUsage(s.ID, 100, 50, 0.00001, 0.00002); err != nil {
			t.Fatalf("AddUsage failed: %v", err)
		}
	}
	if err := sessions.MarkEmailSent(s1.ID); err != nil {
		t.Fatalf("MarkEmailSent failed: %v", err)
	}

	today := time.Now().Format("2006-01-02")
	if err := repo.RecalcDailySummary(brand.ID, today); err != nil {
		t.Fatalf("RecalcDailySummary failed: %v", err)
	}
	// 重算必须幂等
	if err := repo.RecalcDailySummary(brand.ID, today); err != nil {
		t.Fatalf("Second RecalcDailySummary failed: %v", err)
	}

	rows, err := repo.ListDailySummaries(brand.ID, 7)
	if err != nil {
		t.Fatalf("ListDailySummaries failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 summary row, got %d", len(rows))
	}
	got := rows[0]
	if got.TotalSessions != 2 {
		t.Errorf("Expected 2 sessions, got %d", got.TotalSessions)
	}
	if got.TotalMessages != 4 {
		t.Errorf("Expected 4 messages, got %d", got.TotalMessages)
	}
	if got.EmailsSent != 1 {
		t.Errorf("Expected 1 email sent, got %d", got.EmailsSent)
	}
	if got.TotalTokens != 300 {
		t.Errorf("Expected 300 tokens, got %d", got.TotalTokens)
	}
}
