// Package session 维护活跃会话的内存注册表
// 查找顺序：内存 → Redis 镜像 → 数据库重放，都没有才新建
// 注册表有容量和空闲时间上限，累计计数始终以数据库为准
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/brandchat/internal/model"
	"github.com/ashwinyue/brandchat/internal/service/agent"
)

const sessionKeyPrefix = "chatsess:"

// SessionStore 会话持久化接口
type SessionStore interface {
	Create(session *model.ChatSession) error
	GetBySessionID(sessionID string) (*model.ChatSession, error)
	GetMessages(sessionDBID uint, limit int) ([]*model.ChatMessage, error)
}

// BrandStore 品牌读取接口
type BrandStore interface {
	GetByKey(key string) (*model.Brand, error)
	GetByID(id uint) (*model.Brand, error)
}

// Contact 会话过程中逐步采集到的联系信息
// 后到的非空字段覆盖，空字段保留已有值
type Contact struct {
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
	Website      string `json:"website,omitempty"`
	Location     string `json:"location,omitempty"`
	IPAddress    string `json:"ip_address,omitempty"`
	City         string `json:"city,omitempty"`
	Region       string `json:"region,omitempty"`
	Country      string `json:"country,omitempty"`
}

// Merge 合并非空字段，返回是否有字段发生变化
func (c *Contact) Merge(in Contact) bool {
	changed := false
	merge := func(dst *string, src string) {
		if src != "" && src != *dst {
			*dst = src
			changed = true
		}
	}
	merge(&c.Email, in.Email)
	merge(&c.Name, in.Name)
	merge(&c.Phone, in.Phone)
	merge(&c.BusinessName, in.BusinessName)
	merge(&c.Website, in.Website)
	merge(&c.Location, in.Location)
	merge(&c.IPAddress, in.IPAddress)
	merge(&c.City, in.City)
	merge(&c.Region, in.Region)
	merge(&c.Country, in.Country)
	return changed
}

// Entry 一个活跃会话的内存状态
// 同一会话的并发请求靠 entry 锁串行化，History 和 Contact 只在锁内读写
type Entry struct {
	Token     string
	DBID      uint
	BrandID   uint
	UserID    *uint
	ModelName string
	History   []agent.Message
	UserTurns int
	Contact   Contact
	CreatedAt time.Time

	mu sync.Mutex
	// 纳秒时间戳，巡检不拿 entry 锁就能读
	lastAccess atomic.Int64
}

func (e *Entry) touch() { e.lastAccess.Store(time.Now().UnixNano()) }

// Lock 锁定会话
func (e *Entry) Lock() { e.mu.Lock() }

// Unlock 解锁会话
func (e *Entry) Unlock() { e.mu.Unlock() }

// Append 在锁内追加一条历史消息
func (e *Entry) Append(role, content string) {
	e.History = append(e.History, agent.Message{Role: role, Content: content})
	if role == model.RoleUser {
		e.UserTurns++
	}
}

// Window 在锁内取最近 n 条历史的副本
func (e *Entry) Window(n int) []agent.Message {
	history := e.History
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]agent.Message, len(history))
	copy(out, history)
	return out
}

// entryData Redis 镜像里的会话数据
type entryData struct {
	Token     string          `json:"token"`
	DBID      uint            `json:"db_id"`
	BrandID   uint            `json:"brand_id"`
	UserID    *uint           `json:"user_id,omitempty"`
	ModelName string          `json:"model_name"`
	History   []agent.Message `json:"history"`
	UserTurns int             `json:"user_turns"`
	Contact   Contact         `json:"contact"`
	CreatedAt time.Time       `json:"created_at"`
}

// Config 注册表参数
type Config struct {
	TTL             time.Duration // 空闲多久后逐出
	MaxSessions     int           // 内存中的会话上限
	FallbackBrandID uint          // 品牌解析失败时兜底
	DefaultModel    string
}

// Registry 活跃会话注册表
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	cfg      Config
	sessions SessionStore
	brands   BrandStore
	redis    *redis.Client

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRegistry 创建注册表并启动逐出巡检
func NewRegistry(cfg Config, sessions SessionStore, brands BrandStore, redisClient *redis.Client) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 10000
	}
	r := &Registry{
		entries:  make(map[string]*Entry),
		cfg:      cfg,
		sessions: sessions,
		brands:   brands,
		redis:    redisClient,
		stopCh:   make(chan struct{}),
	}
	go r.janitor()
	return r
}

// Acquire 获取或创建会话，返回是否新建
// token 为空或查无此会话时按品牌新建，品牌解析失败退回兜底品牌
func (r *Registry) Acquire(ctx context.Context, token, brandKey string) (*Entry, bool, error) {
	if token != "" {
		if entry := r.get(token); entry != nil {
			return entry, false, nil
		}
		if entry := r.loadFromRedis(ctx, token); entry != nil {
			r.put(entry)
			return entry, false, nil
		}
		if entry := r.rehydrate(token); entry != nil {
			r.put(entry)
			return entry, false, nil
		}
	}

	entry, err := r.create(brandKey)
	if err != nil {
		return nil, false, err
	}
	r.put(entry)
	return entry, true, nil
}

// Get 只查不建
func (r *Registry) Get(ctx context.Context, token string) (*Entry, error) {
	if entry := r.get(token); entry != nil {
		return entry, nil
	}
	if entry := r.loadFromRedis(ctx, token); entry != nil {
		r.put(entry)
		return entry, nil
	}
	if entry := r.rehydrate(token); entry != nil {
		r.put(entry)
		return entry, nil
	}
	return nil, fmt.Errorf("session %s not found", token)
}

// Save 把会话状态写进 Redis 镜像
func (r *Registry) Save(ctx context.Context, entry *Entry) {
	if r.redis == nil {
		return
	}
	data := entryData{
		Token:     entry.Token,
		DBID:      entry.DBID,
		BrandID:   entry.BrandID,
		UserID:    entry.UserID,
		ModelName: entry.ModelName,
		History:   entry.History,
		UserTurns: entry.UserTurns,
		Contact:   entry.Contact,
		CreatedAt: entry.CreatedAt,
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, sessionKeyPrefix+entry.Token, raw, r.cfg.TTL).Err(); err != nil {
		log.Printf("[session] redis save %s: %v", entry.Token, err)
	}
}

// Remove 会话结束后从内存和 Redis 移除
func (r *Registry) Remove(ctx context.Context, token string) {
	r.mu.Lock()
	delete(r.entries, token)
	r.mu.Unlock()

	if r.redis != nil {
		if err := r.redis.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
			log.Printf("[session] redis delete %s: %v", token, err)
		}
	}
}

// Len 当前内存中的会话数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Flush 把所有在内存的会话镜像到 Redis，关机前调用
func (r *Registry) Flush(ctx context.Context) {
	r.mu.RLock()
	entries := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	for _, entry := range entries {
		entry.Lock()
		r.Save(ctx, entry)
		entry.Unlock()
	}
}

// Stop 停止逐出巡检
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *Registry) get(token string) *Entry {
	r.mu.RLock()
	entry, ok := r.entries[token]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	entry.touch()
	return entry
}

func (r *Registry) put(entry *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) >= r.cfg.MaxSessions {
		r.evictOldestLocked()
	}
	entry.touch()
	r.entries[entry.Token] = entry
}

// evictOldestLocked 容量满时逐出最久未访问的会话
func (r *Registry) evictOldestLocked() {
	var oldestToken string
	var oldest int64
	for token, entry := range r.entries {
		if access := entry.lastAccess.Load(); oldestToken == "" || access < oldest {
			oldestToken = token
			oldest = access
		}
	}
	if oldestToken == "" {
		return
	}
	evicted := r.entries[oldestToken]
	delete(r.entries, oldestToken)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		evicted.Lock()
		r.Save(ctx, evicted)
		evicted.Unlock()
	}()
}

func (r *Registry) create(brandKey string) (*Entry, error) {
	brand, err := r.brands.GetByKey(brandKey)
	if err != nil {
		brand, err = r.brands.GetByID(r.cfg.FallbackBrandID)
		if err != nil {
			return nil, fmt.Errorf("resolve brand %q: %w", brandKey, err)
		}
	}

	modelName := brand.ModelName
	if modelName == "" {
		modelName = r.cfg.DefaultModel
	}

	now := time.Now()
	record := &model.ChatSession{
		SessionID:    uuid.NewString(),
		BrandID:      brand.ID,
		Status:       model.SessionStatusActive,
		ModelName:    modelName,
		LastActivity: now,
	}
	if err := r.sessions.Create(record); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &Entry{
		Token:     record.SessionID,
		DBID:      record.ID,
		BrandID:   brand.ID,
		ModelName: modelName,
		CreatedAt: now,
	}, nil
}

// rehydrate 从数据库恢复会话，重放消息得到内存历史
func (r *Registry) rehydrate(token string) *Entry {
	record, err := r.sessions.GetBySessionID(token)
	if err != nil {
		return nil
	}
	if record.Status != model.SessionStatusActive {
		return nil
	}

	messages, err := r.sessions.GetMessages(record.ID, 0)
	if err != nil {
		log.Printf("[session] rehydrate %s messages: %v", token, err)
		messages = nil
	}

	entry := &Entry{
		Token:     record.SessionID,
		DBID:      record.ID,
		BrandID:   record.BrandID,
		UserID:    record.UserID,
		ModelName: record.ModelName,
		CreatedAt: record.StartedAt,
	}
	for _, msg := range messages {
		entry.History = append(entry.History, agent.Message{Role: msg.Role, Content: msg.Content})
		if msg.Role == model.RoleUser {
			entry.UserTurns++
		}
	}
	return entry
}

func (r *Registry) loadFromRedis(ctx context.Context, token string) *Entry {
	if r.redis == nil {
		return nil
	}
	raw, err := r.redis.Get(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return nil
	}
	var data entryData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil
	}
	return &Entry{
		Token:     data.Token,
		DBID:      data.DBID,
		BrandID:   data.BrandID,
		UserID:    data.UserID,
		ModelName: data.ModelName,
		History:   data.History,
		UserTurns: data.UserTurns,
		Contact:   data.Contact,
		CreatedAt: data.CreatedAt,
	}
}

// janitor 定期逐出过期会话
func (r *Registry) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.evictExpired()
		}
	}
}

func (r *Registry) evictExpired() {
	cutoff := time.Now().Add(-r.cfg.TTL).UnixNano()

	// 只读原子时间戳，持有 r.mu 期间绝不等任何 entry 锁，
	// 避免在途请求把整个注册表拖住
	r.mu.Lock()
	var expired []*Entry
	for token, entry := range r.entries {
		if entry.lastAccess.Load() < cutoff {
			expired = append(expired, entry)
			delete(r.entries, token)
		}
	}
	r.mu.Unlock()

	if len(expired) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, entry := range expired {
		entry.Lock()
		r.Save(ctx, entry)
		entry.Unlock()
	}
	log.Printf("[session] evicted %d idle sessions", len(expired))
}
