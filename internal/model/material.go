package model

import "time"

// CourseMaterial 课程资料，对应 course_materials
type CourseMaterial struct {
	MaterialID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"material_id"`
	ClassID          string    `gorm:"type:uuid;not null"                             json:"class_id"`
	Title            string    `gorm:"type:varchar(200);not null"                     json:"title"`
	Description      string    `gorm:"type:text"                                      json:"description,omitempty"`
	FileKey          string    `gorm:"type:varchar(300);not null"                     json:"-"`
	OriginalFileName string    `gorm:"type:varchar(255);not null"                     json:"original_file_name"`
	FileType         string    `gorm:"type:varchar(100);not null"                     json:"file_type"`
	FileSize         int64     `gorm:"not null"                                       json:"file_size"`
	UploadedBy       string    `gorm:"type:uuid;not null"                             json:"uploaded_by"`
	UploadedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"uploaded_at"`
}

// TableName 指定表名
func (CourseMaterial) TableName() string { return "course_materials" }
