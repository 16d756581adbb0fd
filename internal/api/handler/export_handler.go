package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"class-portal/backend/internal/service"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 文件导出 HTTP 处理器
type ExportHandler struct {
	classSvc    service.ClassService
	scheduleSvc service.ScheduleService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(classSvc service.ClassService, scheduleSvc service.ScheduleService) *ExportHandler {
	return &ExportHandler{classSvc: classSvc, scheduleSvc: scheduleSvc}
}

// ExportRoster 导出班级学生名单 Excel
// GET /api/v1/teacher/classes/:id/students/export
func (h *ExportHandler) ExportRoster(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	file, err := h.classSvc.ExportRoster(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sendAttachment(c, file.FileName, contentTypeXLSX, file.Data)
}

// ExportICS 导出我的课表日历
// GET /api/v1/student/schedule/ics
func (h *ExportHandler) ExportICS(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	file, err := h.scheduleSvc.ExportICS(c.Request.Context(), p)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sendAttachment(c, file.FileName, contentTypeICS, file.Data)
}

// ── 下载响应 ──

func attachmentHeaders(filename string) map[string]string {
	return map[string]string{
		"Content-Description": "File Transfer",
		"Content-Disposition": "attachment; filename*=UTF-8''" + url.QueryEscape(filename),
	}
}

// sendAttachment 以附件形式返回内存中的文件
func sendAttachment(c *gin.Context, filename, contentType string, data []byte) {
	for k, v := range attachmentHeaders(filename) {
		c.Header(k, v)
	}
	c.Data(http.StatusOK, contentType, data)
}

// streamFile 以附件形式流式返回存储中的文件，并负责关闭文件
func streamFile(c *gin.Context, f *service.FileObject) {
	defer f.Body.Close()
	c.DataFromReader(http.StatusOK, f.Size, f.ContentType, f.Body, attachmentHeaders(f.Name))
}
