package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/api/middleware"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/pkg/response"
)

// MustGetEmployeeID 从 Gin 上下文中安全提取 employee_id。
// 如果 JWT 中间件未正确注入，返回 false 并写入 401 响应，调用方应直接 return。
func MustGetEmployeeID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(middleware.ContextEmployeeID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	id, ok := v.(int64)
	if !ok || id <= 0 {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	return id, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextRole)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}
