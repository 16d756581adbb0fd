package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/service"
	"class-portal/backend/pkg/response"
)

// AssignmentHandler 作业、提交与成绩 HTTP 处理器
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc}
}

// ──────────────────────────── 教师 ────────────────────────────

// TeacherListAssignments 班级作业列表
// GET /api/v1/teacher/classes/:id/assignments
func (h *AssignmentHandler) TeacherListAssignments(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.assignmentSvc.ListForTeacher(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateAssignment 布置作业
// POST /api/v1/teacher/classes/:id/assignments
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	assignment, err := h.assignmentSvc.Create(c.Request.Context(), p, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, assignment)
}

// ListSubmissions 作业的全部提交
// GET /api/v1/teacher/assignments/:id/submissions
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.assignmentSvc.ListSubmissions(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GradeSubmission 批改提交
// PUT /api/v1/teacher/submissions/:id/grade
func (h *AssignmentHandler) GradeSubmission(c *gin.Context) {
	var req dto.GradeSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	sub, err := h.assignmentSvc.Grade(c.Request.Context(), p, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, sub)
}

// DownloadSubmission 下载提交文件，教师与学生共用，权限由 Service 判断
// GET /api/v1/{teacher,student}/submissions/:id/file
func (h *AssignmentHandler) DownloadSubmission(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	f, err := h.assignmentSvc.OpenSubmission(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	streamFile(c, f)
}

// ──────────────────────────── 学生 ────────────────────────────

// StudentListAssignments 班级作业列表，附带本人提交情况
// GET /api/v1/student/classes/:id/assignments
func (h *AssignmentHandler) StudentListAssignments(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.assignmentSvc.ListForStudent(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Submit 提交作业文件，重复提交覆盖原文件
// POST /api/v1/student/assignments/:id/submit
func (h *AssignmentHandler) Submit(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	file, fh, ok := formFile(c)
	if !ok {
		return
	}
	defer file.Close()

	sub, err := h.assignmentSvc.Submit(c.Request.Context(), p, c.Param("id"), fh.Filename, file)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, sub)
}

// MyGrades 我的成绩
// GET /api/v1/student/grades
func (h *AssignmentHandler) MyGrades(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	grades, err := h.assignmentSvc.MyGrades(c.Request.Context(), p)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": grades})
}

// ── 上传 ──

// formFile 读取 multipart 字段 file；失败时已写入响应
func formFile(c *gin.Context) (multipart.File, *multipart.FileHeader, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			response.Error(c, http.StatusRequestEntityTooLarge, codeTooLarge, "请求体过大")
			return nil, nil, false
		}
		response.BadRequest(c, codeFileRequired, "请选择要上传的文件")
		return nil, nil, false
	}

	file, err := fh.Open()
	if err != nil {
		_ = c.Error(err)
		response.InternalError(c)
		return nil, nil, false
	}
	return file, fh, true
}
