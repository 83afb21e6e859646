package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/brandchat/internal/service/admin"
)

// AdminCookieName 管理后台会话 Cookie
const AdminCookieName = "dashboard_session"

// AdminAuth 管理后台认证中间件
// 令牌缺失或过期时重定向到登录页，不渲染错误页
func AdminAuth(store *admin.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(AdminCookieName)
		if err != nil || !store.Validate(token) {
			c.Redirect(http.StatusSeeOther, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}
