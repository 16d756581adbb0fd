package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 访问日志中间件
//
// route 记录路由模板（如 /api/v1/teacher/classes/:id），便于按接口聚合；
// 经过 JWTAuth 的请求额外带上 user_id 与 role，方便追查越权和停用账号的访问。
// 健康检查成功时不记录。
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		if c.Request.URL.Path == "/health" && status < 400 {
			return
		}

		fields := make([]zap.Field, 0, 12)
		fields = append(fields,
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.Int("bytes", c.Writer.Size()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", GetRequestID(c)),
		)
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if userID := c.GetString("user_id"); userID != "" {
			fields = append(fields, zap.String("user_id", userID), zap.String("role", c.GetString("role")))
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, zap.String("errors", errs.String()))
		}

		if ce := logger.Check(accessLevel(status), accessMessage(status)); ce != nil {
			ce.Write(fields...)
		}
	}
}

func accessLevel(status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status == 401 || status == 403:
		return zapcore.WarnLevel
	case status >= 400:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func accessMessage(status int) string {
	switch {
	case status >= 500:
		return "请求处理失败"
	case status == 401 || status == 403:
		return "访问被拒绝"
	case status >= 400:
		return "客户端错误"
	default:
		return "请求完成"
	}
}
