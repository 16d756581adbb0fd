package handler

import (
	"class-portal/backend/config"
	"class-portal/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Dashboard  *DashboardHandler
	Class      *ClassHandler
	Assignment *AssignmentHandler
	Material   *MaterialHandler
	Schedule   *ScheduleHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth, &cfg.Auth),
		User:       NewUserHandler(svc.User),
		Dashboard:  NewDashboardHandler(svc.Dashboard),
		Class:      NewClassHandler(svc.Class, svc.Enrollment),
		Assignment: NewAssignmentHandler(svc.Assignment),
		Material:   NewMaterialHandler(svc.Material),
		Schedule:   NewScheduleHandler(svc.Schedule, cfg.App.Location()),
		Export:     NewExportHandler(svc.Class, svc.Schedule),
	}
}
