package handler

import (
	"github.com/gin-gonic/gin"

	"class-portal/backend/internal/service"
	"class-portal/backend/pkg/jwt"
	"class-portal/backend/pkg/response"
)

// 与 middleware.JWTAuth 约定的上下文键
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxClaims = "claims"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxUserID)
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

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxRole)
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

// MustGetPrincipal 组装当前调用方，供 Service 做角色与归属校验
func MustGetPrincipal(c *gin.Context) (*service.Principal, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return nil, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return nil, false
	}
	return &service.Principal{UserID: userID, Role: role}, true
}

// GetClaims 读取中间件解析出的 Access Token 声明，不存在时返回 nil
func GetClaims(c *gin.Context) *jwt.Claims {
	v, exists := c.Get(ctxClaims)
	if !exists {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}
