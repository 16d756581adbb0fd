package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"class-portal/backend/config"
	"class-portal/backend/internal/api/handler"
	"class-portal/backend/internal/api/middleware"
	"class-portal/backend/internal/model"
	"class-portal/backend/internal/repository"
	"class-portal/backend/pkg/jwt"
	"class-portal/backend/pkg/redis"
)

const (
	// 登录/注册限流：每个 IP 每分钟 10 次
	authRateLimit  = 10
	authRateWindow = time.Minute

	// 表单字段的额外余量
	formOverhead = 1 << 20
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时不做 Token 黑名单检查与限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, repo *repository.Repository, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	handler.RegisterValidators()

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	// 避免把 nil *redis.Client 包装成非 nil 接口
	var (
		checker middleware.TokenChecker
		limiter middleware.Limiter
	)
	if rdb != nil {
		checker = rdb
		limiter = rdb
	}

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Storage.MaxUploadBytes() + formOverhead))

	// ── 健康检查 ──
	r.GET("/health", healthCheck(repo))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			limit := middleware.RateLimit(limiter, authRateLimit, authRateWindow)
			auth.POST("/register", limit, h.Auth.Register)
			auth.POST("/login", limit, h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, checker))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.PUT("/auth/profile", h.Auth.UpdateProfile)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 管理员
			admin := authorized.Group("/admin", middleware.RoleAuth(model.RoleAdmin))
			{
				admin.GET("/dashboard", h.Dashboard.Overview)

				admin.GET("/users", h.User.ListUsers)
				admin.POST("/users", h.User.CreateUser)
				admin.POST("/users/import", h.User.ImportUsers)
				admin.GET("/users/:id", h.User.GetUser)
				admin.PUT("/users/:id", h.User.UpdateUser)
				admin.PUT("/users/:id/password", h.User.ChangePassword)
				admin.DELETE("/users/:id", h.User.DeactivateUser)
				admin.POST("/users/:id/activate", h.User.ActivateUser)

				admin.GET("/classes", h.Class.AdminListClasses)
				admin.GET("/classes/:id", h.Class.AdminGetClass)
				admin.DELETE("/classes/:id", h.Class.AdminDeactivateClass)
				admin.POST("/classes/:id/activate", h.Class.AdminActivateClass)
			}

			// 教师
			teacher := authorized.Group("/teacher", middleware.RoleAuth(model.RoleTeacher))
			{
				teacher.GET("/classes", h.Class.ListMyClasses)
				teacher.POST("/classes", h.Class.CreateClass)
				teacher.GET("/classes/:id", h.Class.GetMyClass)
				teacher.PUT("/classes/:id", h.Class.UpdateClass)
				teacher.DELETE("/classes/:id", h.Class.DeleteClass)
				teacher.GET("/classes/:id/students", h.Class.Roster)
				teacher.GET("/classes/:id/students/export", h.Export.ExportRoster)

				teacher.GET("/classes/:id/assignments", h.Assignment.TeacherListAssignments)
				teacher.POST("/classes/:id/assignments", h.Assignment.CreateAssignment)
				teacher.GET("/assignments/:id/submissions", h.Assignment.ListSubmissions)
				teacher.PUT("/submissions/:id/grade", h.Assignment.GradeSubmission)
				teacher.GET("/submissions/:id/file", h.Assignment.DownloadSubmission)

				teacher.GET("/classes/:id/materials", h.Material.TeacherListMaterials)
				teacher.POST("/classes/:id/materials", h.Material.UploadMaterial)
			}

			// 学生
			student := authorized.Group("/student", middleware.RoleAuth(model.RoleStudent))
			{
				student.GET("/classes/search", h.Class.SearchClasses)
				student.GET("/classes/joined", h.Class.JoinedClasses)
				student.POST("/classes/:id/join", h.Class.JoinClass)

				student.GET("/classes/:id/assignments", h.Assignment.StudentListAssignments)
				student.POST("/assignments/:id/submit", h.Assignment.Submit)
				student.GET("/submissions/:id/file", h.Assignment.DownloadSubmission)
				student.GET("/grades", h.Assignment.MyGrades)

				student.GET("/classes/:id/materials", h.Material.StudentListMaterials)
				student.GET("/materials/:id/file", h.Material.DownloadMaterial)

				student.GET("/schedule/week", h.Schedule.Week)
				student.GET("/schedule/month", h.Schedule.Month)
				student.GET("/schedule/weeks", h.Schedule.Weeks)
				student.GET("/schedule/ics", h.Export.ExportICS)
			}
		}
	}

	return r
}

func healthCheck(repo *repository.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := repo.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
