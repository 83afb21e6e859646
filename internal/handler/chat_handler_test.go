// Package handler 提供接口层单元测试
package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ashwinyue/brandchat/internal/model"
	"github.com/ashwinyue/brandchat/internal/service"
	"github.com/ashwinyue/brandchat/internal/service/chat"
)

// stubSessionStore 只实现查询，写路径在这些用例里不会被触发
type stubSessionStore struct {
	records map[string]*model.ChatSession
	err     error
}

func (s *stubSessionStore) GetBySessionID(sessionID string) (*model.ChatSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	if record, ok := s.records[sessionID]; ok {
		return record, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubSessionStore) AppendMessage(sessionDBID uint, msg *model.ChatMessage) error { return nil }
func (s *stubSessionStore) TouchActivity(sessionDBID uint) error                         { return nil }
func (s *stubSessionStore) AddUsage(sessionDBID uint, inputTokens, outputTokens int, inputCost, outputCost float64) error {
	return nil
}
func (s *stubSessionStore) SetUser(sessionDBID, userID uint) error { return nil }
func (s *stubSessionStore) End(sessionDBID uint) (bool, error)     { return false, nil }
func (s *stubSessionStore) MarkEmailSent(sessionDBID uint) error   { return nil }

func newSessionRouter(store *stubSessionStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := chat.NewService(nil, nil, store, nil, nil, nil, nil, nil, nil, chat.Options{})
	h := NewChatHandler(&service.Services{Chat: svc})

	router := gin.New()
	router.GET("/api/session/:id", h.GetSession)
	return router
}

// ========== GetSession 测试 ==========

func TestGetSessionStatusMapping(t *testing.T) {
	store := &stubSessionStore{records: map[string]*model.ChatSession{
		"tok-1": {ID: 1, SessionID: "tok-1", Status: model.SessionStatusActive},
	}}
	router := newSessionRouter(store)

	tests := []struct {
		name     string
		path     string
		storeErr error
		want     int
	}{
		{
			name: "known session",
			path: "/api/session/tok-1",
			want: http.StatusOK,
		},
		{
			name: "unknown session",
			path: "/api/session/no-such-token",
			want: http.StatusNotFound,
		},
		{
			// 存储挂了不能伪装成 404
			name:     "storage failure",
			path:     "/api/session/tok-1",
			storeErr: errors.New("connection refused"),
			want:     http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.err = tt.storeErr
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
