package model

import "time"

// 作业类型
const (
	AssignmentHomework = "homework"
	AssignmentProject  = "project"
	AssignmentExam     = "exam"
)

// Assignment 作业，对应 assignments
type Assignment struct {
	AssignmentID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	ClassID        string    `gorm:"type:uuid;not null"                             json:"class_id"`
	Title          string    `gorm:"type:varchar(200);not null"                     json:"title"`
	Description    string    `gorm:"type:text"                                      json:"description,omitempty"`
	AssignmentType string    `gorm:"type:varchar(20);not null;default:'homework'"   json:"assignment_type"`
	DueDate        time.Time `gorm:"not null"                                       json:"due_date"`
	MaxScore       float64   `gorm:"type:numeric(5,2);not null;default:10"          json:"max_score"`
	CreatedBy      string    `gorm:"type:uuid;not null"                             json:"created_by"`
	BaseModel

	// 关联
	Class *Class `gorm:"foreignKey:ClassID;references:ClassID" json:"class,omitempty"`
}

// TableName 指定表名
func (Assignment) TableName() string { return "assignments" }
