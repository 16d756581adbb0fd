package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"class-portal/backend/config"
	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/service"
	"class-portal/backend/pkg/response"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
	refreshPath   = "/api/v1/auth"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	cfg     config.AuthConfig
}

// NewAuthHandler 创建 AuthHandler，cfg 为 nil 时使用默认 Cookie 设置
func NewAuthHandler(authSvc service.AuthService, cfg *config.AuthConfig) *AuthHandler {
	h := &AuthHandler{authSvc: authSvc}
	if cfg != nil {
		h.cfg = *cfg
	}
	return h
}

// Register 学生自助注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	user, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, user)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	refreshMaxAge := 0
	if req.RememberMe {
		refreshMaxAge = int(h.cfg.RefreshTokenTTLRemember.Seconds())
	}
	h.setTokenCookies(c, result, refreshMaxAge)
	response.OK(c, result)
}

// RefreshToken 刷新 Token，优先读取 Cookie，其次读取请求体
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token := h.refreshTokenFrom(c)
	if token == "" {
		response.BadRequest(c, 11003, "缺少刷新令牌")
		return
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), token)
	if err != nil {
		h.clearTokenCookies(c)
		h.handleAuthError(c, err)
		return
	}

	h.setTokenCookies(c, result, 0)
	response.OK(c, result)
}

// Logout 用户登出，吊销当前 Access Token 与 Refresh Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authSvc.Logout(c.Request.Context(), GetClaims(c), h.refreshTokenFrom(c)); err != nil {
		handleServiceError(c, err)
		return
	}

	h.clearTokenCookies(c)
	response.OK(c, nil)
}

// Me 获取当前登录用户
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.Me(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, user)
}

// UpdateProfile 修改本人资料
// PUT /api/v1/auth/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	user, err := h.authSvc.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, user)
}

// ChangePassword 修改本人密码
// PUT /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ChangeOwnPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, nil)
}

// ── 内部方法 ──

func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, 11001, "邮箱或密码错误")
	case errors.Is(err, service.ErrUserInactive):
		response.Forbidden(c, 11002, "账号已停用，请联系管理员")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		response.Unauthorized(c, 11004, "刷新令牌无效或已失效")
	default:
		handleServiceError(c, err)
	}
}

func (h *AuthHandler) refreshTokenFrom(c *gin.Context) string {
	if v, err := c.Cookie(refreshCookie); err == nil && v != "" {
		return v
	}
	var req dto.RefreshTokenRequest
	if c.Request.ContentLength > 0 {
		_ = c.ShouldBindJSON(&req)
	}
	return strings.TrimSpace(req.RefreshToken)
}

// setTokenCookies 写入 HttpOnly Cookie；refreshMaxAge 为 0 时为会话 Cookie
func (h *AuthHandler) setTokenCookies(c *gin.Context, t *dto.TokenResponse, refreshMaxAge int) {
	c.SetSameSite(h.sameSite())
	c.SetCookie(accessCookie, t.AccessToken, t.ExpiresIn, "/", h.cfg.Cookie.Domain, h.cfg.Cookie.Secure, true)
	if t.RefreshToken != "" {
		c.SetCookie(refreshCookie, t.RefreshToken, refreshMaxAge, refreshPath, h.cfg.Cookie.Domain, h.cfg.Cookie.Secure, true)
	}
}

func (h *AuthHandler) clearTokenCookies(c *gin.Context) {
	c.SetSameSite(h.sameSite())
	c.SetCookie(accessCookie, "", -1, "/", h.cfg.Cookie.Domain, h.cfg.Cookie.Secure, true)
	c.SetCookie(refreshCookie, "", -1, refreshPath, h.cfg.Cookie.Domain, h.cfg.Cookie.Secure, true)
}

func (h *AuthHandler) sameSite() http.SameSite {
	switch strings.ToLower(h.cfg.Cookie.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
