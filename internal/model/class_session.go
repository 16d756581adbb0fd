package model

import "time"

// ClassSession 班级上课时段，对应 class_sessions
// 每周 DayOfWeek 的 [StartTime, EndTime) 上课，仅在 [StartDate, EndDate] 闭区间内有效
type ClassSession struct {
	SessionID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	ClassID   string    `gorm:"type:uuid;not null"                             json:"class_id"`
	DayOfWeek int       `gorm:"type:smallint;not null"                         json:"day_of_week"` // 1=周一 … 7=周日
	StartTime string    `gorm:"type:time;not null"                             json:"start_time"`  // HH:MM:SS
	EndTime   string    `gorm:"type:time;not null"                             json:"end_time"`    // HH:MM:SS
	StartDate time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null"                             json:"end_date"`
	Location  string    `gorm:"type:varchar(255)"                              json:"location,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联（单向，仅用于预加载班级名称与代码）
	Class *Class `gorm:"foreignKey:ClassID;references:ClassID" json:"class,omitempty"`
}

// TableName 指定表名
func (ClassSession) TableName() string { return "class_sessions" }

// ActiveOn 某个日期是否落在有效期内
// 按日历日期比较，不受数据库返回时区影响
func (s *ClassSession) ActiveOn(day time.Time) bool {
	d := day.Format("2006-01-02")
	return s.StartDate.Format("2006-01-02") <= d && d <= s.EndDate.Format("2006-01-02")
}
