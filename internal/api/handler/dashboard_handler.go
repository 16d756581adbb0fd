package handler

import (
	"github.com/gin-gonic/gin"

	"class-portal/backend/internal/service"
	"class-portal/backend/pkg/response"
)

// DashboardHandler 管理后台概览
type DashboardHandler struct {
	dashboardSvc service.DashboardService
}

// NewDashboardHandler 创建 DashboardHandler
func NewDashboardHandler(dashboardSvc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardSvc: dashboardSvc}
}

// Overview 用户、班级、作业统计与近 30 天新增用户
// GET /api/v1/admin/dashboard
func (h *DashboardHandler) Overview(c *gin.Context) {
	overview, err := h.dashboardSvc.Overview(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, overview)
}
