package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/service"
	"class-portal/backend/pkg/response"
	"class-portal/backend/pkg/timeutil"
)

// ScheduleHandler 学生课表 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
	loc         *time.Location
	now         func() time.Time
}

// NewScheduleHandler 创建 ScheduleHandler，loc 为解析查询日期使用的业务时区
func NewScheduleHandler(scheduleSvc service.ScheduleService, loc *time.Location) *ScheduleHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleHandler{scheduleSvc: scheduleSvc, loc: loc, now: time.Now}
}

// Week 周视图，date 缺省时为本周
// GET /api/v1/student/schedule/week?date=YYYY-MM-DD
func (h *ScheduleHandler) Week(c *gin.Context) {
	var q dto.WeekQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handleBindError(c, err)
		return
	}

	var anchor *time.Time
	if q.Date != "" {
		d, err := timeutil.ParseDate(q.Date, h.loc)
		if err != nil {
			response.BadRequest(c, 15001, err.Error())
			return
		}
		anchor = &d
	}

	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	view, err := h.scheduleSvc.ResolveWeek(c.Request.Context(), p, anchor)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, view)
}

// Month 月视图，month 缺省时为本月
// GET /api/v1/student/schedule/month?month=YYYY-MM
func (h *ScheduleHandler) Month(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handleBindError(c, err)
		return
	}

	var month *time.Time
	if q.Month != "" {
		m, err := timeutil.ParseMonth(q.Month, h.loc)
		if err != nil {
			response.BadRequest(c, 15002, err.Error())
			return
		}
		month = &m
	}

	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	view, err := h.scheduleSvc.ResolveMonth(c.Request.Context(), p, month)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, view)
}

// Weeks 周选择器，year 缺省时为今年
// GET /api/v1/student/schedule/weeks?year=YYYY
func (h *ScheduleHandler) Weeks(c *gin.Context) {
	var q dto.WeeksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handleBindError(c, err)
		return
	}

	year := q.Year
	if year == 0 {
		year = h.now().In(h.loc).Year()
	}

	response.OK(c, gin.H{"year": year, "list": h.scheduleSvc.WeekOptions(year)})
}
