package dto

import "time"

// ── 作业模块 DTO ──

// CreateAssignmentRequest 教师布置作业
type CreateAssignmentRequest struct {
	Title          string    `json:"title"           binding:"required,max=200"`
	Description    string    `json:"description"     binding:"omitempty,max=5000"`
	AssignmentType string    `json:"assignment_type" binding:"omitempty,oneof=homework project exam"`
	DueDate        time.Time `json:"due_date"        binding:"required"`
	MaxScore       float64   `json:"max_score"       binding:"required,gt=0,lte=1000"`
}

// GradeSubmissionRequest 教师批改
type GradeSubmissionRequest struct {
	Score    *float64 `json:"score"    binding:"required"`
	Feedback string   `json:"feedback" binding:"omitempty,max=2000"`
}

// AssignmentResponse 作业信息
type AssignmentResponse struct {
	ID             string              `json:"id"`
	ClassID        string              `json:"class_id"`
	Title          string              `json:"title"`
	Description    string              `json:"description,omitempty"`
	AssignmentType string              `json:"assignment_type"`
	DueDate        string              `json:"due_date"`
	MaxScore       float64             `json:"max_score"`
	CreatedAt      string              `json:"created_at"`
	MySubmission   *SubmissionResponse `json:"my_submission,omitempty"` // 仅学生视图
}

// SubmissionResponse 作业提交信息
type SubmissionResponse struct {
	ID               string     `json:"id"`
	AssignmentID     string     `json:"assignment_id"`
	Student          *UserBrief `json:"student,omitempty"`
	OriginalFileName string     `json:"original_file_name"`
	FileSize         int64      `json:"file_size"`
	SubmittedAt      string     `json:"submitted_at"`
	Status           string     `json:"status"`
	Score            *float64   `json:"score,omitempty"`
	Feedback         string     `json:"feedback,omitempty"`
	GradedAt         string     `json:"graded_at,omitempty"`
}

// GradeResponse 学生成绩单中的一项
type GradeResponse struct {
	SubmissionID    string   `json:"submission_id"`
	AssignmentID    string   `json:"assignment_id"`
	AssignmentTitle string   `json:"assignment_title"`
	ClassName       string   `json:"class_name"`
	ClassCode       string   `json:"class_code"`
	Score           *float64 `json:"score"`
	MaxScore        float64  `json:"max_score"`
	Feedback        string   `json:"feedback,omitempty"`
	GradedAt        string   `json:"graded_at,omitempty"`
}

// ── 课程资料 ──

// CreateMaterialRequest 上传资料的表单字段（文件本身走 multipart）
type CreateMaterialRequest struct {
	Title       string `form:"title"       binding:"required,max=200"`
	Description string `form:"description" binding:"omitempty,max=2000"`
}

// MaterialResponse 课程资料信息
type MaterialResponse struct {
	ID               string `json:"id"`
	ClassID          string `json:"class_id"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	OriginalFileName string `json:"original_file_name"`
	FileType         string `json:"file_type"`
	FileSize         int64  `json:"file_size"`
	UploadedAt       string `json:"uploaded_at"`
}
