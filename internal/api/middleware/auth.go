package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"class-portal/backend/pkg/jwt"
	"class-portal/backend/pkg/response"
)

// accessCookie 与登录接口写入的 HttpOnly Cookie 同名
const accessCookie = "access_token"

// TokenChecker 查询 Token 是否已被吊销
type TokenChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	// UserTokensRevokedAt 用户被停用时记录的吊销时刻
	UserTokensRevokedAt(ctx context.Context, userID string) (time.Time, bool, error)
}

// JWTAuth JWT 认证中间件
// 优先从 Authorization: Bearer <token> 读取，其次读取 access_token Cookie
// checker 为 nil 时跳过黑名单检查（Redis 不可用时降级）
func JWTAuth(jwtMgr *jwt.Manager, checker TokenChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if claims.TokenType != jwt.TokenTypeAccess {
			response.Unauthorized(c, 10002, "Token 类型无效")
			c.Abort()
			return
		}

		if checker != nil {
			revoked, err := checker.IsBlacklisted(c.Request.Context(), claims.ID)
			if err == nil && revoked {
				response.Unauthorized(c, 10002, "Token 已失效，请重新登录")
				c.Abort()
				return
			}
			at, ok, err := checker.UserTokensRevokedAt(c.Request.Context(), claims.UserID)
			if err == nil && ok && claims.IssuedNoLaterThan(at) {
				response.Unauthorized(c, 10002, "账号状态已变更，请重新登录")
				c.Abort()
				return
			}
		}

		// 将用户信息注入上下文
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("claims", claims)

		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if v, err := c.Cookie(accessCookie); err == nil && v != "" {
			return v, true
		}
		response.Unauthorized(c, 10002, "缺少认证信息")
		c.Abort()
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		response.Unauthorized(c, 10002, "认证头格式无效")
		c.Abort()
		return "", false
	}
	return parts[1], true
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		userRole, _ := role.(string)
		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "无权限访问")
		c.Abort()
	}
}
