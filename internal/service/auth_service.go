package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"class-portal/backend/config"
	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/model"
	"class-portal/backend/internal/repository"
	pkgerrors "class-portal/backend/pkg/errors"
	"class-portal/backend/pkg/jwt"
)

var (
	ErrInvalidCredentials  = errors.New("邮箱或密码错误")
	ErrUserInactive        = errors.New("账号已停用，请联系管理员")
	ErrInvalidRefreshToken = errors.New("刷新令牌无效或已失效")
	ErrEmailExists         = errors.New("邮箱已被注册")
)

// AuthService 认证业务接口
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout 吊销当前 Access Token 与（若提供）Refresh Token
	Logout(ctx context.Context, access *jwt.Claims, refreshToken string) error
	Me(ctx context.Context, userID string) (*dto.UserResponse, error)
	// UpdateProfile 修改本人资料，邮箱与角色保持不变
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	// ChangePassword 修改本人密码，须校验当前密码
	ChangePassword(ctx context.Context, userID string, req *dto.ChangeOwnPasswordRequest) error
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
		now:       time.Now,
	}
}

// ────────────────────── Register ──────────────────────

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	email := strings.TrimSpace(req.Email)
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询邮箱失败", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: string(hash),
		Role:         model.RoleStudent,
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		Status:       model.StatusActive,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		// 并发注册同一邮箱时由唯一索引兜底
		if errors.Is(err, pkgerrors.ErrConstraintViolation) {
			return nil, ErrEmailExists
		}
		s.logger.Error("创建用户失败", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("新用户注册", zap.String("user_id", user.UserID))
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码
	ok, legacy := verifyPassword(user.PasswordHash, req.Password)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !user.Status.IsActive() {
		return nil, ErrUserInactive
	}

	// 3. 历史明文密码在登录成功后升级为 bcrypt
	if legacy {
		s.upgradePassword(ctx, user.UserID, req.Password)
	}

	// 4. 生成 Token 对
	return s.issueTokens(user, req.RememberMe)
}

// verifyPassword 校验密码；legacy 表示存量数据为明文存储
func verifyPassword(stored, password string) (ok, legacy bool) {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil, false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1, true
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}

// upgradePassword 升级失败只记录日志，不影响本次登录
func (s *authService) upgradePassword(ctx context.Context, userID, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Warn("升级明文密码失败", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := s.repo.User.UpdatePassword(ctx, userID, string(hash)); err != nil {
		s.logger.Warn("升级明文密码失败", zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.logger.Info("明文密码已升级为 bcrypt", zap.String("user_id", userID))
}

// ────────────────────── Refresh ──────────────────────

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Error("查询 Token 黑名单失败", zap.Error(err))
			return nil, err
		}
		if revoked {
			return nil, ErrInvalidRefreshToken
		}
		at, ok, err := s.blacklist.UserTokensRevokedAt(ctx, claims.UserID)
		if err != nil {
			s.logger.Error("查询用户吊销记录失败", zap.String("user_id", claims.UserID), zap.Error(err))
			return nil, err
		}
		if ok && claims.IssuedNoLaterThan(at) {
			return nil, ErrInvalidRefreshToken
		}
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error("查询用户失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}
	if !user.Status.IsActive() {
		return nil, ErrUserInactive
	}

	// 轮换：旧 Refresh Token 立即作废
	s.revoke(ctx, claims)

	return s.issueTokens(user, claims.RememberMe)
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, access *jwt.Claims, refreshToken string) error {
	if s.blacklist == nil {
		return nil
	}
	if access != nil {
		if err := s.blacklist.BlacklistToken(ctx, access.ID, access.RemainingTTL()); err != nil {
			s.logger.Error("吊销 AccessToken 失败", zap.String("user_id", access.UserID), zap.Error(err))
			return err
		}
	}
	if refreshToken != "" {
		if claims, err := s.jwtMgr.ParseToken(refreshToken); err == nil {
			s.revoke(ctx, claims)
		}
	}
	return nil
}

func (s *authService) revoke(ctx context.Context, claims *jwt.Claims) {
	if s.blacklist == nil {
		return
	}
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		s.logger.Warn("吊销 Token 失败", zap.String("jti", claims.ID), zap.Error(err))
	}
}

// ────────────────────── Me ──────────────────────

func (s *authService) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── UpdateProfile ──────────────────────

func (s *authService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.getActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := applyProfile(user, req.FullName, req.PhoneNumber, req.DateOfBirth, req.Hometown); err != nil {
		return nil, err
	}
	user.UpdatedAt = s.now()

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新个人资料失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── ChangePassword ──────────────────────

func (s *authService) ChangePassword(ctx context.Context, userID string, req *dto.ChangeOwnPasswordRequest) error {
	user, err := s.getActiveUser(ctx, userID)
	if err != nil {
		return err
	}

	ve := &pkgerrors.ValidationError{}
	if ok, _ := verifyPassword(user.PasswordHash, req.CurrentPassword); !ok {
		ve.Add("current_password", "当前密码不正确")
	}
	if len(req.NewPassword) < minPasswordLength {
		ve.Add("new_password", fmt.Sprintf("密码长度不能少于 %d 位", minPasswordLength))
	}
	if req.NewPassword != req.ConfirmPassword {
		ve.Add("confirm_password", "两次输入的密码不一致")
	}
	if err := ve.OrNil(); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}
	if err := s.repo.User.UpdatePassword(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("修改密码失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	s.logger.Info("用户已修改密码", zap.String("user_id", userID))
	return nil
}

// getActiveUser 查询调用者本人，已停用账号返回 ErrUserInactive
func (s *authService) getActiveUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	if !user.Status.IsActive() {
		return nil, ErrUserInactive
	}
	return user, nil
}

func (s *authService) issueTokens(user *model.User, rememberMe bool) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Role, rememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}
