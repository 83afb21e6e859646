package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/brandchat/internal/handler"
	"github.com/ashwinyue/brandchat/internal/middleware"
	"github.com/ashwinyue/brandchat/internal/service/admin"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, adminStore *admin.Store) *gin.Engine {
	r := gin.New()

	// 全局中间件
	r.Use(
		middleware.RecoveryMiddleware(),
		middleware.LoggingMiddleware(),
		middleware.CORSMiddleware(),
	)

	// 聊天 API
	api := r.Group("/api")
	{
		api.POST("/chat", h.Chat.HandleChat)
		api.POST("/upload", h.Chat.HandleUpload)
		api.POST("/end-session", h.Chat.HandleEndSession)
		api.GET("/session/:id", h.Chat.GetSession)
		api.GET("/health", h.System.Health)
		api.GET("/dashboard/stats", h.Report.DashboardStats)
	}

	// 管理后台
	adm := r.Group("/admin")
	{
		adm.GET("/login", h.Admin.ShowLogin)
		adm.POST("/login", h.Admin.Login)
		adm.GET("/logout", h.Admin.Logout)

		// 需要登录的页面
		authed := adm.Group("", middleware.AdminAuth(adminStore))
		{
			authed.GET("/dashboard", h.Admin.Dashboard)
			authed.GET("/brand/:id", h.Admin.BrandDetail)
			authed.GET("/user/:id", h.Admin.UserDetail)
			authed.GET("/emails", h.Admin.EmailsList)
			authed.GET("/email/:id", h.Admin.EmailDetail)
			authed.GET("/tokens", h.Admin.TokensPage)
			authed.GET("/costs", h.Admin.CostsPage)
			authed.GET("/costs/export", h.Report.ExportCosts)

			authed.GET("/recipients", h.Admin.RecipientsPage)
			authed.POST("/recipients/add", h.Recipient.Add)
			authed.POST("/recipients/:id/edit", h.Recipient.Edit)
			authed.POST("/recipients/:id/delete", h.Recipient.Delete)
			authed.POST("/recipients/:id/toggle", h.Recipient.Toggle)

			// 管理后台 JSON 接口
			authed.GET("/api/brand-stats/:id", h.Report.BrandStats)
			authed.GET("/api/session-details/:id", h.Report.SessionDetails)
			authed.GET("/api/costs/chart-data", h.Report.ChartData)
		}
	}

	// 根路径跳转到管理后台
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, "/admin/dashboard")
	})

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			handler.NotFound(c, "route not found")
			return
		}
		handler.RenderNotFound(c)
	})

	return r
}
