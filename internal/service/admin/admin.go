// Package admin 管理后台的登录校验和会话令牌表
// 令牌是进程内的不透明随机串，过期靠惰性检查加定时清扫
package admin

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ashwinyue/brandchat/internal/config"
)

// session 一次管理后台登录
type session struct {
	username  string
	createdAt time.Time
	expiresAt time.Time
}

// Store 管理会话存储
type Store struct {
	mu       sync.RWMutex
	sessions map[string]session

	cfg *config.AdminConfig
	ttl time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewStore 创建管理会话存储并启动过期清扫
func NewStore(cfg *config.AdminConfig) *Store {
	ttl := time.Duration(cfg.SessionTTL) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &Store{
		sessions: make(map[string]session),
		cfg:      cfg,
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
	go s.sweeper()
	return s
}

// Login 校验用户名密码，成功返回新令牌
// 配了 bcrypt 哈希就按哈希比，否则对明文做常数时间比较
func (s *Store) Login(username, password string) (string, bool) {
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Username)) != 1 {
		return "", false
	}
	if s.cfg.PasswordHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password)) != nil {
			return "", false
		}
	} else if subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) != 1 {
		return "", false
	}

	token := uuid.NewString()
	now := time.Now()
	s.mu.Lock()
	s.sessions[token] = session{
		username:  username,
		createdAt: now,
		expiresAt: now.Add(s.ttl),
	}
	s.mu.Unlock()
	return token, true
}

// Validate 校验令牌，过期即删除
func (s *Store) Validate(token string) bool {
	if token == "" {
		return false
	}
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(sess.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return false
	}
	return true
}

// Logout 作废令牌
func (s *Store) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// TTL 会话有效期
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Stop 停止过期清扫
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Store) sweeper() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for token, sess := range s.sessions {
				if now.After(sess.expiresAt) {
					delete(s.sessions, token)
				}
			}
			s.mu.Unlock()
		}
	}
}
