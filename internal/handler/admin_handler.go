package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/brandchat/internal/middleware"
	"github.com/ashwinyue/brandchat/internal/model"
	"github.com/ashwinyue/brandchat/internal/repository"
	"github.com/ashwinyue/brandchat/internal/service"
	"github.com/ashwinyue/brandchat/internal/web"
)

// AdminHandler 管理后台页面
type AdminHandler struct {
	svc *service.Services
}

// NewAdminHandler 创建管理后台处理器
func NewAdminHandler(svc *service.Services) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// renderHTML 渲染内嵌模板
func renderHTML(c *gin.Context, status int, name string, data interface{}) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := web.Templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		log.Printf("[admin] render %s: %v", name, err)
	}
}

// RenderNotFound 404 页面
func RenderNotFound(c *gin.Context) {
	renderHTML(c, http.StatusNotFound, "error404.html", nil)
}

// RenderServerError 500 页面
func RenderServerError(c *gin.Context) {
	renderHTML(c, http.StatusInternalServerError, "error500.html", nil)
}

// ========== 登录 ==========

// ShowLogin 登录页
// GET /admin/login
func (h *AdminHandler) ShowLogin(c *gin.Context) {
	if token, err := c.Cookie(middleware.AdminCookieName); err == nil && h.svc.Admin.Validate(token) {
		c.Redirect(http.StatusSeeOther, "/admin/dashboard")
		return
	}
	renderHTML(c, http.StatusOK, "login.html", gin.H{})
}

// Login 处理登录表单
// POST /admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	token, ok := h.svc.Admin.Login(username, password)
	if !ok {
		renderHTML(c, http.StatusUnauthorized, "login.html", gin.H{"Error": "Invalid username or password"})
		return
	}

	maxAge := int(h.svc.Admin.TTL().Seconds())
	c.SetCookie(middleware.AdminCookieName, token, maxAge, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/admin/dashboard")
}

// Logout 退出登录
// GET /admin/logout
func (h *AdminHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(middleware.AdminCookieName); err == nil {
		h.svc.Admin.Logout(token)
	}
	c.SetCookie(middleware.AdminCookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/admin/login")
}

// ========== 页面 ==========

// Dashboard 总览页
// GET /admin/dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.svc.Report.DashboardStats(c.Request.Context())
	if err != nil {
		log.Printf("[admin] dashboard stats: %v", err)
		RenderServerError(c)
		return
	}
	today, err := h.svc.Report.TodayStats()
	if err != nil {
		today = &repository.TodayStats{}
	}
	brands, _ := h.svc.Report.AllBrandStats()
	topUsers, _ := h.svc.Report.TopUsers(10)
	daily, _ := h.svc.Report.DailyStats(30)

	renderHTML(c, http.StatusOK, "dashboard.html", gin.H{
		"Stats":    stats,
		"Today":    today,
		"Brands":   brands,
		"TopUsers": topUsers,
		"Daily":    daily,
	})
}

// BrandDetail 品牌页
// GET /admin/brand/:id
func (h *AdminHandler) BrandDetail(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		RenderNotFound(c)
		return
	}
	stats, err := h.svc.Report.BrandStats(uint(id))
	if err != nil {
		RenderNotFound(c)
		return
	}
	sessions, _ := h.svc.Repos.Session.ListRecent(uint(id), 0, 25)

	renderHTML(c, http.StatusOK, "brand.html", gin.H{
		"Stats":    stats,
		"Sessions": sessions,
	})
}

// UserDetail 用户页
// GET /admin/user/:id
func (h *AdminHandler) UserDetail(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		RenderNotFound(c)
		return
	}
	user, err := h.svc.Repos.User.GetByID(uint(id))
	if err != nil {
		RenderNotFound(c)
		return
	}
	interactions, _ := h.svc.Repos.Analytics.ListInteractionsByUser(user.ID)
	sessions, _ := h.svc.Repos.Session.ListByUser(user.ID, 25)

	renderHTML(c, http.StatusOK, "user.html", gin.H{
		"User":         user,
		"Interactions": interactions,
		"Sessions":     sessions,
	})
}

// EmailsList 邮件列表页
// GET /admin/emails
func (h *AdminHandler) EmailsList(c *gin.Context) {
	stats, err := h.svc.Report.EmailStats()
	if err != nil {
		stats = &repository.EmailStats{}
	}
	emails, _ := h.svc.Repos.Email.ListRecent(c.Query("status"), 0, 50)

	renderHTML(c, http.StatusOK, "emails.html", gin.H{
		"Stats":  stats,
		"Emails": emails,
	})
}

// EmailDetail 邮件详情页
// GET /admin/email/:id
func (h *AdminHandler) EmailDetail(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		RenderNotFound(c)
		return
	}
	email, err := h.svc.Repos.Email.GetByID(uint(id))
	if err != nil {
		RenderNotFound(c)
		return
	}
	renderHTML(c, http.StatusOK, "email.html", gin.H{"Email": email})
}

// TokensPage token 用量页
// GET /admin/tokens
func (h *AdminHandler) TokensPage(c *gin.Context) {
	stats, err := h.svc.Report.TokenStats()
	if err != nil {
		log.Printf("[admin] token stats: %v", err)
		RenderServerError(c)
		return
	}
	models, _ := h.svc.Report.ModelTokenStats()

	renderHTML(c, http.StatusOK, "tokens.html", gin.H{
		"Stats":  stats,
		"Models": models,
	})
}

// CostsPage 费用页
// GET /admin/costs
func (h *AdminHandler) CostsPage(c *gin.Context) {
	overview, err := h.svc.Report.CostOverview()
	if err != nil {
		log.Printf("[admin] cost overview: %v", err)
		RenderServerError(c)
		return
	}
	brands, _ := h.svc.Report.BrandCosts()
	efficiency, _ := h.svc.Report.EfficiencyStats()
	topSessions, _ := h.svc.Report.TopCostSessions(10)
	hourly, _ := h.svc.Report.HourlyCosts(7)

	renderHTML(c, http.StatusOK, "costs.html", gin.H{
		"Overview":    overview,
		"Brands":      brands,
		"Efficiency":  efficiency,
		"TopSessions": topSessions,
		"Hourly":      hourly,
	})
}

// RecipientsPage 收件人管理页
// GET /admin/recipients
func (h *AdminHandler) RecipientsPage(c *gin.Context) {
	brands, err := h.svc.Repos.Brand.List(false)
	if err != nil {
		log.Printf("[admin] list brands: %v", err)
		RenderServerError(c)
		return
	}

	type brandBlock struct {
		Brand      *model.Brand
		Recipients []*model.BrandRecipient
	}
	blocks := make([]brandBlock, 0, len(brands))
	for _, brand := range brands {
		recipients, _ := h.svc.Repos.Brand.ListRecipients(brand.ID)
		blocks = append(blocks, brandBlock{Brand: brand, Recipients: recipients})
	}

	renderHTML(c, http.StatusOK, "recipients.html", gin.H{"Brands": blocks})
}
