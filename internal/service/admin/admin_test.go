// Package admin 提供管理会话单元测试
package admin

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ashwinyue/brandchat/internal/config"
)

func newTestStore(t *testing.T, cfg *config.AdminConfig) *Store {
	t.Helper()
	store := NewStore(cfg)
	t.Cleanup(store.Stop)
	return store
}

// ========== Login 测试 ==========

func TestLoginPlainPassword(t *testing.T) {
	store := newTestStore(t, &config.AdminConfig{Username: "admin", Password: "secret", SessionTTL: 24})

	tests := []struct {
		name     string
		username string
		password string
		wantOK   bool
	}{
		{name: "valid credentials", username: "admin", password: "secret", wantOK: true},
		{name: "wrong password", username: "admin", password: "nope", wantOK: false},
		{name: "wrong username", username: "root", password: "secret", wantOK: false},
		{name: "empty", username: "", password: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok := store.Login(tt.username, tt.password)
			if ok != tt.wantOK {
				t.Errorf("Login() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && token == "" {
				t.Error("Login() returned empty token")
			}
		})
	}
}

func TestLoginBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	store := newTestStore(t, &config.AdminConfig{Username: "admin", PasswordHash: string(hash), SessionTTL: 24})

	if _, ok := store.Login("admin", "secret"); !ok {
		t.Error("Login() with matching password = false, want true")
	}
	if _, ok := store.Login("admin", "wrong"); ok {
		t.Error("Login() with wrong password = true, want false")
	}
}

// ========== Validate 测试 ==========

func TestValidateLifecycle(t *testing.T) {
	store := newTestStore(t, &config.AdminConfig{Username: "admin", Password: "secret", SessionTTL: 24})

	token, ok := store.Login("admin", "secret")
	if !ok {
		t.Fatal("Login() failed")
	}

	if !store.Validate(token) {
		t.Error("Validate() = false for fresh token, want true")
	}
	if store.Validate("no-such-token") {
		t.Error("Validate() = true for unknown token, want false")
	}
	if store.Validate("") {
		t.Error("Validate() = true for empty token, want false")
	}

	store.Logout(token)
	if store.Validate(token) {
		t.Error("Validate() = true after logout, want false")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	store := newTestStore(t, &config.AdminConfig{Username: "admin", Password: "secret", SessionTTL: 24})

	token, ok := store.Login("admin", "secret")
	if !ok {
		t.Fatal("Login() failed")
	}

	// 手动把过期时间拨到过去
	store.mu.Lock()
	sess := store.sessions[token]
	sess.expiresAt = time.Now().Add(-time.Minute)
	store.sessions[token] = sess
	store.mu.Unlock()

	if store.Validate(token) {
		t.Error("Validate() = true for expired token, want false")
	}
	// 过期令牌应被惰性删除
	store.mu.RLock()
	_, still := store.sessions[token]
	store.mu.RUnlock()
	if still {
		t.Error("expired token still present after Validate()")
	}
}
