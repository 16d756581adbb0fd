package handler

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/service"
	"class-portal/backend/pkg/response"
)

// UserHandler 管理员用户管理 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// ListUsers 用户列表
// GET /api/v1/admin/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, total, err := h.userSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetUser 用户详情
// GET /api/v1/admin/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, user)
}

// CreateUser 创建用户
// POST /api/v1/admin/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	user, err := h.userSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, user)
}

// UpdateUser 更新用户资料
// PUT /api/v1/admin/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	user, err := h.userSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, user)
}

// ChangePassword 为用户设置新密码
// PUT /api/v1/admin/users/:id/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	if err := h.userSvc.ChangePassword(c.Request.Context(), c.Param("id"), &req); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// DeactivateUser 停用用户（不删除记录）
// DELETE /api/v1/admin/users/:id
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	h.setActive(c, false)
}

// ActivateUser 重新启用用户
// POST /api/v1/admin/users/:id/activate
func (h *UserHandler) ActivateUser(c *gin.Context) {
	h.setActive(c, true)
}

func (h *UserHandler) setActive(c *gin.Context, active bool) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.userSvc.SetActive(c.Request.Context(), callerID, c.Param("id"), active); err != nil {
		if errors.Is(err, service.ErrUserSelfDeactivate) {
			response.BadRequest(c, 12001, "不能停用自己的账号")
			return
		}
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// ImportUsers 通过 Excel 批量导入用户
// POST /api/v1/admin/users/import
func (h *UserHandler) ImportUsers(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, codeFileRequired, "请上传 Excel 文件")
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".xlsx") {
		response.BadRequest(c, 12002, "仅支持 .xlsx 文件")
		return
	}

	file, err := fh.Open()
	if err != nil {
		response.InternalError(c)
		return
	}
	defer file.Close()

	rows, err := h.userSvc.ParseImportFile(file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImportNoData),
			errors.Is(err, service.ErrImportTooManyRows),
			errors.Is(err, service.ErrImportBadHeader):
			response.BadRequest(c, 12003, err.Error())
		default:
			response.BadRequest(c, 12004, "Excel 文件解析失败")
		}
		return
	}

	result, err := h.userSvc.ImportUsers(c.Request.Context(), rows)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
