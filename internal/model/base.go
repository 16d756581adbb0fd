package model

import "time"

// BaseModel 通用审计字段（业务主表嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// ── 生命周期状态 ──

// Status 用户与班级的生命周期状态，停用只改状态不删行
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// StatusOf 将布尔开关转换为生命周期状态
func StatusOf(active bool) Status {
	if active {
		return StatusActive
	}
	return StatusInactive
}

// IsActive 是否处于启用状态
func (s Status) IsActive() bool { return s == StatusActive }

// Valid 是否为合法状态值
func (s Status) Valid() bool { return s == StatusActive || s == StatusInactive }
