package model

import "time"

// 提交状态
const (
	SubmissionSubmitted = "submitted"
	SubmissionGraded    = "graded"
)

// Submission 作业提交，对应 submissions，(assignment_id, student_id) 唯一
// 重新提交覆盖同一行，旧文件由服务层删除
type Submission struct {
	SubmissionID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"submission_id"`
	AssignmentID     string     `gorm:"type:uuid;not null"                             json:"assignment_id"`
	StudentID        string     `gorm:"type:uuid;not null"                             json:"student_id"`
	FileKey          string     `gorm:"type:varchar(300);not null"                     json:"-"`
	OriginalFileName string     `gorm:"type:varchar(255);not null"                     json:"original_file_name"`
	FileSize         int64      `gorm:"not null"                                       json:"file_size"`
	SubmittedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"submitted_at"`
	Status           string     `gorm:"type:varchar(20);not null;default:'submitted'"  json:"status"`
	Score            *float64   `gorm:"type:numeric(5,2)"                              json:"score,omitempty"`
	Feedback         string     `gorm:"type:text"                                      json:"feedback,omitempty"`
	GradedAt         *time.Time `json:"graded_at,omitempty"`

	// 关联
	Assignment *Assignment `gorm:"foreignKey:AssignmentID;references:AssignmentID" json:"assignment,omitempty"`
	Student    *User       `gorm:"foreignKey:StudentID;references:UserID"          json:"student,omitempty"`
}

// TableName 指定表名
func (Submission) TableName() string { return "submissions" }
