package handler

import (
	"github.com/gin-gonic/gin"

	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/service"
	"class-portal/backend/pkg/response"
)

// ClassHandler 班级与选课 HTTP 处理器，按角色分组注册
type ClassHandler struct {
	classSvc  service.ClassService
	enrollSvc service.EnrollmentService
}

// NewClassHandler 创建 ClassHandler
func NewClassHandler(classSvc service.ClassService, enrollSvc service.EnrollmentService) *ClassHandler {
	return &ClassHandler{classSvc: classSvc, enrollSvc: enrollSvc}
}

// ──────────────────────────── 管理员 ────────────────────────────

// AdminListClasses 全部班级列表
// GET /api/v1/admin/classes
func (h *ClassHandler) AdminListClasses(c *gin.Context) {
	var req dto.ClassListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	list, total, err := h.classSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// AdminGetClass 班级详情
// GET /api/v1/admin/classes/:id
func (h *ClassHandler) AdminGetClass(c *gin.Context) {
	class, err := h.classSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, class)
}

// AdminDeactivateClass 停用班级
// DELETE /api/v1/admin/classes/:id
func (h *ClassHandler) AdminDeactivateClass(c *gin.Context) {
	h.setActive(c, false)
}

// AdminActivateClass 重新启用班级
// POST /api/v1/admin/classes/:id/activate
func (h *ClassHandler) AdminActivateClass(c *gin.Context) {
	h.setActive(c, true)
}

func (h *ClassHandler) setActive(c *gin.Context, active bool) {
	if err := h.classSvc.SetActive(c.Request.Context(), c.Param("id"), active); err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, nil)
}

// ──────────────────────────── 教师 ────────────────────────────

// ListMyClasses 我教授的班级
// GET /api/v1/teacher/classes
func (h *ClassHandler) ListMyClasses(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.classSvc.ListMine(c.Request.Context(), p)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateClass 创建班级及其上课时段
// POST /api/v1/teacher/classes
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req dto.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	class, err := h.classSvc.Create(c.Request.Context(), p, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, class)
}

// GetMyClass 我的班级详情
// GET /api/v1/teacher/classes/:id
func (h *ClassHandler) GetMyClass(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	class, err := h.classSvc.GetMine(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, class)
}

// UpdateClass 更新班级信息
// PUT /api/v1/teacher/classes/:id
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	var req dto.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	class, err := h.classSvc.Update(c.Request.Context(), p, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, class)
}

// DeleteClass 删除班级（停用）
// DELETE /api/v1/teacher/classes/:id
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.classSvc.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// Roster 班级学生名单
// GET /api/v1/teacher/classes/:id/students
func (h *ClassHandler) Roster(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	entries, err := h.classSvc.Roster(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// ──────────────────────────── 学生 ────────────────────────────

// SearchClasses 按名称或代码搜索可加入的班级
// GET /api/v1/student/classes/search
func (h *ClassHandler) SearchClasses(c *gin.Context) {
	var req dto.ClassSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		handleBindError(c, err)
		return
	}

	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.enrollSvc.Search(c.Request.Context(), p, req.Keyword)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// JoinedClasses 我已加入的班级
// GET /api/v1/student/classes/joined
func (h *ClassHandler) JoinedClasses(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.enrollSvc.Joined(c.Request.Context(), p)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// JoinClass 加入班级，重复加入返回 already_enrolled
// POST /api/v1/student/classes/:id/join
func (h *ClassHandler) JoinClass(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	classID := c.Param("id")
	result, err := h.enrollSvc.JoinClass(c.Request.Context(), p, classID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	resp := dto.JoinClassResponse{ClassID: classID, Result: string(result)}
	if result == service.EnrollmentJoined {
		response.Created(c, resp)
		return
	}
	response.OK(c, resp)
}
