package repository

import (
	"testing"

	"github.com/ashwinyue/brandchat/internal/model"
	"github.com/ashwinyue/brandchat/internal/testutil"
)

// ========== 空库零值 ==========

func TestDashboardStatsEmptyDatabase(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReportRepository(db)

	stats, err := repo.GetDashboardStats()
	if err != nil {
		t.Fatalf("GetDashboardStats failed: %v", err)
	}
	if stats.TotalSessions != 0 || stats.TotalUsers != 0 || stats.TotalMessages != 0 {
		t.Errorf("Expected zero counters, got %+v", stats)
	}
	if stats.TotalCost != 0 || stats.AvgDuration != 0 {
		t.Errorf("Expected zero aggregates, got cost=%f avg=%f", stats.TotalCost, stats.AvgDuration)
	}
}

func TestTodayStatsEmptyDatabase(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReportRepository(db)

	stats, err := repo.GetTodayStats()
	if err != nil {
		t.Fatalf("GetTodayStats failed: %v", err)
	}
	if stats.Sessions != 0 || stats.NewUsers != 0 || stats.Cost != 0 {
		t.Errorf("Expected zero today stats, got %+v", stats)
	}
}

func TestCostOverviewEmptyDatabase(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReportRepository(db)

	overview, err := repo.GetCostOverview()
	if err != nil {
		t.Fatalf("GetCostOverview failed: %v", err)
	}
	if overview.TotalCost != 0 {
		t.Errorf("Expected zero cost, got %f", overview.TotalCost)
	}
}

func TestEmailStatsEmptyDatabase(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReportRepository(db)

	stats, err := repo.GetEmailStats()
	if err != nil {
		t.Fatalf("GetEmailStats failed: %v", err)
	}
	if stats.TotalSent != 0 || stats.TotalFailed != 0 {
		t.Errorf("Expected zero email stats, got %+v", stats)
	}
}

// ========== 有数据聚合 ==========

func TestDashboardStatsAggregates(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReportRepository(db)
	sessions := NewSessionRepository(db)
	users := NewUserRepository(db)
	brand := testutil.SeedBrand(t, db, "acme", "Acme")

	user, err := users.GetOrCreate("erin@example.com", UserProfile{})
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	active := testutil.SeedSession(t, db, brand.ID, "sess-active")
	done := testutil.SeedSession(t, db, brand.ID, "sess-done")

	for _, s := range []*model.ChatSession{active, done} {
		if err := sessions.SetUser(s.ID, user.ID); err != nil {
			t.Fatalf("SetUser failed: %v", err)
		}
		for i := 0; i < 2; i++ {
			msg := &model.ChatMessage{Role: model.RoleUser, Content: "hello"}
			if err := sessions.AppendMessage(s.ID, msg); err != nil {
				t.Fatalf("AppendMessage failed: %v", err)
			}
		}
		if err := sessions.AddUsage(s.ID, 100, 50, 0.00001, 0.00002); err != nil {
			t.Fatalf("AddUsage failed: %v", err)
		}
	}
	if _, err := sessions.End(done.ID); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if err := sessions.MarkEmailSent(done.ID); err != nil {
		t.Fatalf("MarkEmailSent failed: %v", err)
	}

	stats, err := repo.GetDashboardStats()
	if err != nil {
		t.Fatalf("GetDashboardStats failed: %v", err)
	}
	if stats.TotalSessions != 2 {
		t.Errorf("Expected 2 sessions, got %d", stats.TotalSessions)
	}
	if stats.ActiveSessions != 1 {
		t.Errorf("Expected 1 active session, got %d", stats.ActiveSessions)
	}
	if stats.TotalUsers != 1 {
		t.Errorf("Expected 1 user, got %d", stats.TotalUsers)
	}
	if stats.TotalMessages != 4 {
		t.Errorf("Expected 4 messages, got %d", stats.TotalMessages)
	}
	if stats.EmailsSent != 1 {
		t.Errorf("Expected 1 email, got %d", stats.EmailsSent)
	}
	if stats.TotalTokens != 300 {
		t.Errorf("Expected 300 tokens, got %d", stats.TotalTokens)
	}
}

func TestListBrandStatsIncludesIdleBrands(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReportRepository(db)
	sessions := NewSessionRepository(db)

	busy := testutil.SeedBrand(t, db, "busy", "Busy")
	testutil.SeedBrand(t, db, "idle", "Idle")

	s := testutil.SeedSession(t, db, busy.ID, "sess-busy")
	msg := &model.ChatMessage{Role: model.RoleUser, Content: "hello"}
	if err := sessions.AppendMessage(s.ID, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	rows, err := repo.ListBrandStats()
	if err != nil {
		t.Fatalf("ListBrandStats failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 brand rows, got %d", len(rows))
	}

	// 有会话的品牌排在前面，没会话的品牌也要出现且计数为零
	if rows[0].BrandKey != "busy" || rows[0].TotalSessions != 1 {
		t.Errorf("Unexpected first row: %+v", rows[0])
	}
	if rows[1].BrandKey != "idle" || rows[1].TotalSessions != 0 {
		t.Errorf("Unexpected second row: %+v", rows[1])
	}
}

func TestListDailyStatsGroupsByDay(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReportRepository(db)
	sessions := NewSessionRepository(db)
	brand := testutil.SeedBrand(t, db, "acme", "Acme")

	s := testutil.SeedSession(t, db, brand.ID, "sess-daily")
	msg := &model.ChatMessage{Role: model.RoleUser, Content: "hello"}
	if err := sessions.AppendMessage(s.ID, msg); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	rows, err := repo.ListDailyStats(7)
	if err != nil {
		t.Fatalf("ListDailyStats failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 daily row, got %d", len(rows))
	}
	if rows[0].Sessions != 1 || rows[0].Messages != 1 {
		t.Errorf("Unexpected daily row: %+v", rows[0])
	}
}
