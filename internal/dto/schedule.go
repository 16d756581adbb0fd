package dto

// ── 课表模块 DTO ──

// WeekQuery 周课表查询参数，date 为空表示本周
type WeekQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// MonthQuery 月课表查询参数，month 为空表示本月
type MonthQuery struct {
	Month string `form:"month" binding:"omitempty,datetime=2006-01"`
}

// WeeksQuery 周选择器查询参数，year 为空表示今年
type WeeksQuery struct {
	Year int `form:"year" binding:"omitempty,min=1970,max=9999"`
}

// ScheduleEntry 课表中的一节课
type ScheduleEntry struct {
	SessionID string `json:"session_id"`
	ClassID   string `json:"class_id"`
	ClassName string `json:"class_name"`
	ClassCode string `json:"class_code"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Location  string `json:"location,omitempty"`
}

// DaySchedule 一天的课表，按上午/下午分组
type DaySchedule struct {
	Date      string          `json:"date"`
	DayOfWeek int             `json:"day_of_week"`
	Morning   []ScheduleEntry `json:"morning"`
	Afternoon []ScheduleEntry `json:"afternoon"`
}

// WeekOption 周选择器中的一项
type WeekOption struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Value string `json:"value"` // 周一日期 YYYY-MM-DD
}

// WeeklyScheduleView 周课表视图，Days 固定 7 项，从周一开始
type WeeklyScheduleView struct {
	WeekStart    string        `json:"week_start"`
	WeekEnd      string        `json:"week_end"`
	Days         []DaySchedule `json:"days"`
	SelectedWeek string        `json:"selected_week"`
	Weeks        []WeekOption  `json:"weeks,omitempty"`
}

// MonthDay 月课表中的一天
type MonthDay struct {
	Date      string          `json:"date"`
	DayOfWeek int             `json:"day_of_week"`
	Sessions  []ScheduleEntry `json:"sessions"`
}

// MonthlyScheduleView 月课表视图
type MonthlyScheduleView struct {
	Month string     `json:"month"` // YYYY-MM
	Days  []MonthDay `json:"days"`
}
