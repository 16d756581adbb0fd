package service

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"class-portal/backend/config"
	"class-portal/backend/internal/repository"
	"class-portal/backend/pkg/jwt"
	"class-portal/backend/pkg/storage"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	User       UserService
	Class      ClassService
	Ownership  OwnershipGuard
	Enrollment EnrollmentService
	Schedule   ScheduleService
	Assignment AssignmentService
	Material   MaterialService
	Dashboard  DashboardService
}

// TokenBlacklist Token 吊销存储，Redis 不可用时为 nil
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	RevokeUserTokens(ctx context.Context, userID string, ttl time.Duration) error
	UserTokensRevokedAt(ctx context.Context, userID string) (time.Time, bool, error)
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	blobs storage.BlobStore,
	logger *zap.Logger,
) *Service {
	loc := cfg.App.Location()
	guard := NewOwnershipGuard(repo, logger)

	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:       NewUserService(repo, blacklist, maxTokenTTL(&cfg.Auth), logger),
		Class:      NewClassService(repo, guard, loc, logger),
		Ownership:  guard,
		Enrollment: NewEnrollmentService(repo, logger),
		Schedule:   NewScheduleService(repo, loc, logger),
		Assignment: NewAssignmentService(cfg, repo, guard, blobs, logger),
		Material:   NewMaterialService(cfg, repo, guard, blobs, logger),
		Dashboard:  NewDashboardService(repo, loc, logger),
	}
}

// maxTokenTTL 任一 Token 的最长有效期，用于按用户吊销记录的保留时长
func maxTokenTTL(a *config.AuthConfig) time.Duration {
	ttl := a.AccessTokenTTL
	for _, d := range []time.Duration{a.RefreshTokenTTLDefault, a.RefreshTokenTTLRemember} {
		if d > ttl {
			ttl = d
		}
	}
	return ttl
}

// ── 调用方身份 ──

// Principal 当前请求的调用方，由 Handler 从 JWT 中构造
type Principal struct {
	UserID string
	Role   string
}

// requireRole 调用方缺失或角色不符时返回 ErrUnauthenticated
func (p *Principal) requireRole(role string) error {
	if p == nil || p.UserID == "" || p.Role != role {
		return errUnauthenticated
	}
	return nil
}

// FileObject 待下载的文件
type FileObject struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.ReadCloser
}
