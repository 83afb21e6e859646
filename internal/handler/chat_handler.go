package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ashwinyue/brandchat/internal/service"
	"github.com/ashwinyue/brandchat/internal/service/chat"
	"github.com/ashwinyue/brandchat/internal/service/session"
)

// 单个上传文件的大小上限
const maxUploadBytes = 10 << 20

// ChatHandler 聊天组件接口
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// HandleChat 处理一条聊天消息
// POST /api/chat
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "message is required")
		return
	}
	req.IPAddress = c.ClientIP()

	resp, err := h.svc.Chat.HandleMessage(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, resp)
}

// HandleUpload 处理文件上传，会话里记一条占位消息
// POST /api/upload
func (h *ChatHandler) HandleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}
	if file.Size > maxUploadBytes {
		BadRequest(c, "file too large")
		return
	}

	sessionID := c.PostForm("session_id")
	brand := c.PostForm("brand")

	resp, err := h.svc.Chat.Upload(c.Request.Context(), sessionID, brand, file.Filename, file.Size)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, resp)
}

// endSessionRequest 结束会话请求，收尾时还能补交联系方式和地理信息
type endSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`

	UserInfo *struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"user_info"`
	UserLocation *struct {
		IP      string `json:"ip"`
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
	} `json:"user_location"`
}

// contact 把收尾请求里的嵌套字段摊平成会话联系状态
func (r *endSessionRequest) contact() session.Contact {
	var c session.Contact
	if r.UserInfo != nil {
		c.Name = r.UserInfo.Name
		c.Email = r.UserInfo.Email
		c.Phone = r.UserInfo.Phone
	}
	if r.UserLocation != nil {
		c.IPAddress = r.UserLocation.IP
		c.City = r.UserLocation.City
		c.Region = r.UserLocation.Region
		c.Country = r.UserLocation.Country
	}
	return c
}

// HandleEndSession 结束会话并触发纪要邮件
// POST /api/end-session
func (h *ChatHandler) HandleEndSession(c *gin.Context) {
	var req endSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "session_id is required")
		return
	}

	result, err := h.svc.Chat.EndSession(c.Request.Context(), req.SessionID, req.contact())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "session not found")
			return
		}
		Error(c, err)
		return
	}
	Success(c, result)
}

// GetSession 查询会话落库状态
// GET /api/session/:id
func (h *ChatHandler) GetSession(c *gin.Context) {
	record, err := h.svc.Chat.GetSession(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "session not found")
			return
		}
		Error(c, err)
		return
	}
	Success(c, record)
}
