package service

import (
	"time"

	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/model"
	"class-portal/backend/pkg/timeutil"
)

// ── 模型到响应的转换 ──

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func formatDate(t time.Time) string {
	return t.Format(timeutil.DateLayout)
}

func toUserResponse(u *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:          u.UserID,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        u.Role,
		PhoneNumber: u.PhoneNumber,
		Hometown:    u.Hometown,
		Status:      string(u.Status),
		CreatedAt:   formatTime(u.CreatedAt),
	}
	if u.DateOfBirth != nil {
		resp.DateOfBirth = formatDate(*u.DateOfBirth)
	}
	return resp
}

func toUserBrief(u *model.User) *dto.UserBrief {
	if u == nil {
		return nil
	}
	return &dto.UserBrief{ID: u.UserID, FullName: u.FullName, Email: u.Email}
}

func toClassResponse(c *model.Class) dto.ClassResponse {
	return dto.ClassResponse{
		ID:           c.ClassID,
		ClassName:    c.ClassName,
		ClassCode:    c.ClassCode,
		Description:  c.Description,
		AcademicYear: c.AcademicYear,
		Semester:     c.Semester,
		MaxStudents:  c.MaxStudents,
		Status:       string(c.Status),
		Teacher:      toUserBrief(c.Teacher),
		CreatedAt:    formatTime(c.CreatedAt),
		UpdatedAt:    formatTime(c.UpdatedAt),
	}
}

func toSessionResponse(s *model.ClassSession) dto.SessionResponse {
	return dto.SessionResponse{
		ID:        s.SessionID,
		DayOfWeek: s.DayOfWeek,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		StartDate: formatDate(s.StartDate),
		EndDate:   formatDate(s.EndDate),
		Location:  s.Location,
	}
}

func toScheduleEntry(s *model.ClassSession) dto.ScheduleEntry {
	entry := dto.ScheduleEntry{
		SessionID: s.SessionID,
		ClassID:   s.ClassID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Location:  s.Location,
	}
	if s.Class != nil {
		entry.ClassName = s.Class.ClassName
		entry.ClassCode = s.Class.ClassCode
	}
	return entry
}

func toAssignmentResponse(a *model.Assignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		ID:             a.AssignmentID,
		ClassID:        a.ClassID,
		Title:          a.Title,
		Description:    a.Description,
		AssignmentType: a.AssignmentType,
		DueDate:        formatTime(a.DueDate),
		MaxScore:       a.MaxScore,
		CreatedAt:      formatTime(a.CreatedAt),
	}
}

func toSubmissionResponse(s *model.Submission) *dto.SubmissionResponse {
	return &dto.SubmissionResponse{
		ID:               s.SubmissionID,
		AssignmentID:     s.AssignmentID,
		Student:          toUserBrief(s.Student),
		OriginalFileName: s.OriginalFileName,
		FileSize:         s.FileSize,
		SubmittedAt:      formatTime(s.SubmittedAt),
		Status:           s.Status,
		Score:            s.Score,
		Feedback:         s.Feedback,
		GradedAt:         formatTimePtr(s.GradedAt),
	}
}

func toMaterialResponse(m *model.CourseMaterial) dto.MaterialResponse {
	return dto.MaterialResponse{
		ID:               m.MaterialID,
		ClassID:          m.ClassID,
		Title:            m.Title,
		Description:      m.Description,
		OriginalFileName: m.OriginalFileName,
		FileType:         m.FileType,
		FileSize:         m.FileSize,
		UploadedAt:       formatTime(m.UploadedAt),
	}
}
