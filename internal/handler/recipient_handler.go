package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/brandchat/internal/model"
	"github.com/ashwinyue/brandchat/internal/service"
)

// RecipientHandler 品牌邮件收件人管理
type RecipientHandler struct {
	svc *service.Services
}

// NewRecipientHandler 创建收件人处理器
func NewRecipientHandler(svc *service.Services) *RecipientHandler {
	return &RecipientHandler{svc: svc}
}

// Add 添加收件人
// POST /admin/recipients/add
func (h *RecipientHandler) Add(c *gin.Context) {
	brandID, err := strconv.ParseUint(c.PostForm("brand_id"), 10, 32)
	if err != nil {
		RenderNotFound(c)
		return
	}
	email := c.PostForm("email")
	if email == "" {
		c.Redirect(http.StatusSeeOther, "/admin/recipients")
		return
	}

	recipient := &model.BrandRecipient{
		BrandID:  uint(brandID),
		Email:    email,
		Name:     c.PostForm("name"),
		IsActive: true,
	}
	if err := h.svc.Repos.Brand.AddRecipient(recipient); err != nil {
		// 同品牌重复邮箱直接忽略
		log.Printf("[admin] add recipient: %v", err)
	}
	c.Redirect(http.StatusSeeOther, "/admin/recipients")
}

// Edit 更新收件人
// POST /admin/recipients/:id/edit
func (h *RecipientHandler) Edit(c *gin.Context) {
	recipient, ok := h.loadRecipient(c)
	if !ok {
		return
	}

	if email := c.PostForm("email"); email != "" {
		recipient.Email = email
	}
	if name := c.PostForm("name"); name != "" {
		recipient.Name = name
	}
	if err := h.svc.Repos.Brand.UpdateRecipient(recipient); err != nil {
		log.Printf("[admin] edit recipient %d: %v", recipient.ID, err)
	}
	c.Redirect(http.StatusSeeOther, "/admin/recipients")
}

// Toggle 启用/停用收件人
// POST /admin/recipients/:id/toggle
func (h *RecipientHandler) Toggle(c *gin.Context) {
	recipient, ok := h.loadRecipient(c)
	if !ok {
		return
	}

	recipient.IsActive = !recipient.IsActive
	if err := h.svc.Repos.Brand.UpdateRecipient(recipient); err != nil {
		log.Printf("[admin] toggle recipient %d: %v", recipient.ID, err)
	}
	c.Redirect(http.StatusSeeOther, "/admin/recipients")
}

// Delete 删除收件人
// POST /admin/recipients/:id/delete
func (h *RecipientHandler) Delete(c *gin.Context) {
	recipient, ok := h.loadRecipient(c)
	if !ok {
		return
	}

	if err := h.svc.Repos.Brand.RemoveRecipient(recipient.ID); err != nil {
		log.Printf("[admin] delete recipient %d: %v", recipient.ID, err)
	}
	c.Redirect(http.StatusSeeOther, "/admin/recipients")
}

func (h *RecipientHandler) loadRecipient(c *gin.Context) (*model.BrandRecipient, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		RenderNotFound(c)
		return nil, false
	}
	recipient, err := h.svc.Repos.Brand.GetRecipient(uint(id))
	if err != nil {
		RenderNotFound(c)
		return nil, false
	}
	return recipient, true
}
