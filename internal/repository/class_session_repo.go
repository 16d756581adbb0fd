package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"class-portal/backend/internal/model"
)

// ClassSessionRepository 上课时段数据访问接口
type ClassSessionRepository interface {
	CreateBatch(ctx context.Context, sessions []model.ClassSession) error
	ListByClass(ctx context.Context, classID string) ([]model.ClassSession, error)
	// ListForStudent 学生已批准选课的班级中，有效期与 [from, to] 相交的时段
	ListForStudent(ctx context.Context, studentID string, from, to time.Time) ([]model.ClassSession, error)
}

type classSessionRepo struct {
	db *gorm.DB
}

// NewClassSessionRepo 创建 ClassSessionRepository 实例
func NewClassSessionRepo(db *gorm.DB) ClassSessionRepository {
	return &classSessionRepo{db: db}
}

func (r *classSessionRepo) CreateBatch(ctx context.Context, sessions []model.ClassSession) error {
	if len(sessions) == 0 {
		return nil
	}
	return translateError(r.db.WithContext(ctx).Omit("Class").Create(&sessions).Error)
}

func (r *classSessionRepo) ListByClass(ctx context.Context, classID string) ([]model.ClassSession, error) {
	if !validIDs(classID) {
		return nil, nil
	}
	var sessions []model.ClassSession
	err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("day_of_week ASC, start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

// 日期以 "YYYY-MM-DD" 传入并显式转换为 date，避免会话时区参与比较
func (r *classSessionRepo) ListForStudent(ctx context.Context, studentID string, from, to time.Time) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := r.db.WithContext(ctx).
		Preload("Class").
		Joins("JOIN enrollments ON enrollments.class_id = class_sessions.class_id").
		Where("enrollments.student_id = ? AND enrollments.status = ?", studentID, model.EnrollmentApproved).
		Where("class_sessions.start_date <= ?::date AND class_sessions.end_date >= ?::date",
			to.Format("2006-01-02"), from.Format("2006-01-02")).
		Order("class_sessions.start_time ASC").
		Find(&sessions).Error
	return sessions, err
}
