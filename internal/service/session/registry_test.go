// Package session 提供会话注册表单元测试
package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/ashwinyue/brandchat/internal/model"
)

// mockSessionStore 内存会话存储
type mockSessionStore struct {
	mu       sync.Mutex
	nextID   uint
	sessions map[string]*model.ChatSession
	messages map[uint][]*model.ChatMessage

	createErr error
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{
		nextID:   1,
		sessions: make(map[string]*model.ChatSession),
		messages: make(map[uint][]*model.ChatMessage),
	}
}

func (m *mockSessionStore) Create(session *model.ChatSession) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	session.ID = m.nextID
	m.nextID++
	m.sessions[session.SessionID] = session
	return nil
}

func (m *mockSessionStore) GetBySessionID(sessionID string) (*model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[sessionID]; ok {
		return session, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionStore) GetMessages(sessionDBID uint, limit int) ([]*model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages[sessionDBID], nil
}

// mockBrandStore 内存品牌表
type mockBrandStore struct {
	brands map[string]*model.Brand
}

func newMockBrandStore() *mockBrandStore {
	return &mockBrandStore{brands: map[string]*model.Brand{
		"gbpseo": {ID: 1, BrandKey: "gbpseo", DisplayName: "GBP SEO", ModelName: "gpt-4.1-nano", IsActive: true},
		"acme":   {ID: 2, BrandKey: "acme", DisplayName: "Acme", ModelName: "gpt-4.1", IsActive: true},
	}}
}

func (m *mockBrandStore) GetByKey(key string) (*model.Brand, error) {
	if brand, ok := m.brands[key]; ok {
		return brand, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBrandStore) GetByID(id uint) (*model.Brand, error) {
	for _, brand := range m.brands {
		if brand.ID == id {
			return brand, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestRegistry(store *mockSessionStore) *Registry {
	return NewRegistry(Config{
		TTL:             time.Hour,
		MaxSessions:     3,
		FallbackBrandID: 1,
		DefaultModel:    "gpt-4.1-nano",
	}, store, newMockBrandStore(), nil)
}

// ========== Acquire 测试 ==========

func TestAcquireCreatesNewSession(t *testing.T) {
	store := newMockSessionStore()
	registry := newTestRegistry(store)
	defer registry.Stop()

	entry, created, err := registry.Acquire(context.Background(), "", "acme")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !created {
		t.Error("Acquire() created = false, want true")
	}
	if entry.Token == "" {
		t.Error("Acquire() empty token")
	}
	if entry.BrandID != 2 {
		t.Errorf("BrandID = %d, want 2", entry.BrandID)
	}
	if entry.ModelName != "gpt-4.1" {
		t.Errorf("ModelName = %s, want gpt-4.1", entry.ModelName)
	}
	if _, ok := store.sessions[entry.Token]; !ok {
		t.Error("session not persisted")
	}
}

func TestAcquireUnknownBrandFallsBack(t *testing.T) {
	registry := newTestRegistry(newMockSessionStore())
	defer registry.Stop()

	entry, _, err := registry.Acquire(context.Background(), "", "no-such-brand")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if entry.BrandID != 1 {
		t.Errorf("BrandID = %d, want fallback brand 1", entry.BrandID)
	}
}

func TestAcquireReturnsExisting(t *testing.T) {
	registry := newTestRegistry(newMockSessionStore())
	defer registry.Stop()

	first, _, err := registry.Acquire(context.Background(), "", "acme")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	second, created, err := registry.Acquire(context.Background(), first.Token, "acme")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if created {
		t.Error("Acquire() created = true, want false")
	}
	if second != first {
		t.Error("Acquire() returned a different entry for the same token")
	}
}

// ========== 数据库重放测试 ==========

func TestAcquireRehydratesFromDB(t *testing.T) {
	store := newMockSessionStore()
	userID := uint(7)
	store.sessions["tok-1"] = &model.ChatSession{
		ID:        42,
		SessionID: "tok-1",
		BrandID:   2,
		UserID:    &userID,
		Status:    model.SessionStatusActive,
		ModelName: "gpt-4.1",
		StartedAt: time.Now().Add(-time.Minute),
	}
	store.messages[42] = []*model.ChatMessage{
		{Role: model.RoleUser, Content: "hello", MessageOrder: 1},
		{Role: model.RoleAssistant, Content: "hi there", MessageOrder: 2},
	}

	registry := newTestRegistry(store)
	defer registry.Stop()

	entry, created, err := registry.Acquire(context.Background(), "tok-1", "acme")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if created {
		t.Error("Acquire() created = true, want rehydrated")
	}
	if entry.DBID != 42 {
		t.Errorf("DBID = %d, want 42", entry.DBID)
	}
	if len(entry.History) != 2 {
		t.Fatalf("History length = %d, want 2", len(entry.History))
	}
	if entry.History[0].Content != "hello" {
		t.Errorf("History[0] = %q, want hello", entry.History[0].Content)
	}
	if entry.UserTurns != 1 {
		t.Errorf("UserTurns = %d, want 1", entry.UserTurns)
	}
	if entry.UserID == nil || *entry.UserID != 7 {
		t.Errorf("UserID = %v, want 7", entry.UserID)
	}
}

func TestAcquireEndedSessionCreatesNew(t *testing.T) {
	store := newMockSessionStore()
	store.sessions["tok-ended"] = &model.ChatSession{
		ID:        9,
		SessionID: "tok-ended",
		BrandID:   2,
		Status:    model.SessionStatusEnded,
	}

	registry := newTestRegistry(store)
	defer registry.Stop()

	entry, created, err := registry.Acquire(context.Background(), "tok-ended", "acme")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !created {
		t.Error("Acquire() created = false, want a fresh session for ended token")
	}
	if entry.Token == "tok-ended" {
		t.Error("Acquire() reused the ended session token")
	}
}

// ========== 容量上限测试 ==========

func TestCapacityEviction(t *testing.T) {
	registry := newTestRegistry(newMockSessionStore())
	defer registry.Stop()

	var tokens []string
	for i := 0; i < 4; i++ {
		entry, _, err := registry.Acquire(context.Background(), "", "acme")
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		tokens = append(tokens, entry.Token)
		time.Sleep(2 * time.Millisecond)
	}

	if got := registry.Len(); got != 3 {
		t.Errorf("Len() = %d, want capacity 3", got)
	}
	// 最早的会话应被逐出内存
	if entry := registry.get(tokens[0]); entry != nil {
		t.Error("oldest entry still in memory after capacity eviction")
	}
}

// ========== 空闲逐出测试 ==========

func TestEvictExpiredDoesNotWaitOnBusyEntries(t *testing.T) {
	store := newMockSessionStore()
	registry := NewRegistry(Config{
		TTL:             5 * time.Millisecond,
		MaxSessions:     10,
		FallbackBrandID: 1,
		DefaultModel:    "gpt-4.1-nano",
	}, store, newMockBrandStore(), nil)
	defer registry.Stop()

	busy, _, err := registry.Acquire(context.Background(), "", "acme")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	// 模拟还压在模型调用上的请求
	busy.Lock()
	defer busy.Unlock()

	time.Sleep(10 * time.Millisecond)
	go registry.evictExpired()
	time.Sleep(10 * time.Millisecond)

	// 巡检卡在忙会话上时，注册表本身必须照常服务
	acquired := make(chan error, 1)
	go func() {
		_, _, err := registry.Acquire(context.Background(), "", "acme")
		acquired <- err
	}()
	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire blocked while eviction waited on a busy session")
	}
}

// ========== 联系信息测试 ==========

func TestContactMerge(t *testing.T) {
	var c Contact
	if changed := c.Merge(Contact{Email: "jo@example.com", Name: "Jo"}); !changed {
		t.Error("Merge() changed = false for first fields, want true")
	}

	// 空字段不覆盖，后到的非空字段补全
	if changed := c.Merge(Contact{Name: "", Phone: "4155550133"}); !changed {
		t.Error("Merge() changed = false for new phone, want true")
	}
	if c.Name != "Jo" {
		t.Errorf("Name = %q after empty merge, want Jo", c.Name)
	}
	if c.Phone != "4155550133" {
		t.Errorf("Phone = %q, want 4155550133", c.Phone)
	}

	// 重复提交相同字段不算变化
	if changed := c.Merge(Contact{Email: "jo@example.com", Phone: "4155550133"}); changed {
		t.Error("Merge() changed = true for identical fields, want false")
	}
}

func TestEntryWindow(t *testing.T) {
	entry := &Entry{}
	for i := 0; i < 6; i++ {
		entry.Append(model.RoleUser, "q")
		entry.Append(model.RoleAssistant, "a")
	}
	window := entry.Window(10)
	if len(window) != 10 {
		t.Fatalf("Window(10) length = %d, want 10", len(window))
	}
	if entry.UserTurns != 6 {
		t.Errorf("UserTurns = %d, want 6", entry.UserTurns)
	}
	// 副本不共享底层数组
	window[0].Content = "mutated"
	if entry.History[len(entry.History)-10].Content == "mutated" {
		t.Error("Window() shares backing array with History")
	}
}
