package model

import "time"

// EnrollmentStatus 选课状态，仅 approved 可访问课表与资料
type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "pending"
	EnrollmentApproved EnrollmentStatus = "approved"
	EnrollmentRejected EnrollmentStatus = "rejected"
)

// Enrollment 选课记录，对应 enrollments，(class_id, student_id) 唯一
type Enrollment struct {
	EnrollmentID string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"enrollment_id"`
	ClassID      string           `gorm:"type:uuid;not null"                             json:"class_id"`
	StudentID    string           `gorm:"type:uuid;not null"                             json:"student_id"`
	EnrolledAt   time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"enrolled_at"`
	Status       EnrollmentStatus `gorm:"type:varchar(20);not null;default:'approved'"   json:"status"`
	Grade        *float64         `gorm:"type:numeric(3,2)"                              json:"grade,omitempty"`

	// 关联
	Class   *Class `gorm:"foreignKey:ClassID;references:ClassID"  json:"class,omitempty"`
	Student *User  `gorm:"foreignKey:StudentID;references:UserID" json:"student,omitempty"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }
