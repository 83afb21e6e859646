package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/brandchat/internal/repository"
	"github.com/ashwinyue/brandchat/internal/service"
)

// SystemHandler 系统接口
type SystemHandler struct {
	svc *service.Services
	db  *repository.DB
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(svc *service.Services, db *repository.DB) *SystemHandler {
	return &SystemHandler{svc: svc, db: db}
}

// Health 健康检查
// GET /api/health
func (h *SystemHandler) Health(c *gin.Context) {
	dbStatus := "ok"
	if err := h.db.Ping(c.Request.Context()); err != nil {
		dbStatus = "down"
	}
	Success(c, gin.H{
		"status":          "ok",
		"database":        dbStatus,
		"active_sessions": h.svc.Registry.Len(),
		"version":         h.svc.Config.App.Version,
	})
}
