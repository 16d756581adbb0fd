package handler

import (
	"github.com/gin-gonic/gin"

	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/service"
	"class-portal/backend/pkg/response"
)

// MaterialHandler 课程资料 HTTP 处理器
type MaterialHandler struct {
	materialSvc service.MaterialService
}

// NewMaterialHandler 创建 MaterialHandler
func NewMaterialHandler(materialSvc service.MaterialService) *MaterialHandler {
	return &MaterialHandler{materialSvc: materialSvc}
}

// UploadMaterial 上传课程资料（multipart: title, description, file）
// POST /api/v1/teacher/classes/:id/materials
func (h *MaterialHandler) UploadMaterial(c *gin.Context) {
	var req dto.CreateMaterialRequest
	if err := c.ShouldBind(&req); err != nil {
		handleBindError(c, err)
		return
	}

	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	file, fh, ok := formFile(c)
	if !ok {
		return
	}
	defer file.Close()

	material, err := h.materialSvc.Upload(c.Request.Context(), p, c.Param("id"), &req,
		fh.Filename, fh.Header.Get("Content-Type"), file)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, material)
}

// TeacherListMaterials 班级资料列表
// GET /api/v1/teacher/classes/:id/materials
func (h *MaterialHandler) TeacherListMaterials(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.materialSvc.ListForTeacher(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// StudentListMaterials 已加入班级的资料列表
// GET /api/v1/student/classes/:id/materials
func (h *MaterialHandler) StudentListMaterials(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	list, err := h.materialSvc.ListForStudent(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// DownloadMaterial 下载资料文件
// GET /api/v1/student/materials/:id/file
func (h *MaterialHandler) DownloadMaterial(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	f, err := h.materialSvc.Open(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	streamFile(c, f)
}
