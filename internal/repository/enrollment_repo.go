package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"class-portal/backend/internal/model"
)

// EnrollmentRepository 选课数据访问接口
type EnrollmentRepository interface {
	GetByClassAndStudent(ctx context.Context, classID, studentID string) (*model.Enrollment, error)
	// CreateIfAbsent 插入选课记录，(class_id, student_id) 已存在时不做任何修改并返回 false
	CreateIfAbsent(ctx context.Context, e *model.Enrollment) (bool, error)
	IsApproved(ctx context.Context, classID, studentID string) (bool, error)
	ListByClass(ctx context.Context, classID string) ([]model.Enrollment, error)
	ListApprovedByStudent(ctx context.Context, studentID string) ([]model.Enrollment, error)
	CountByClass(ctx context.Context, classID string) (int64, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) GetByClassAndStudent(ctx context.Context, classID, studentID string) (*model.Enrollment, error) {
	if !validIDs(classID, studentID) {
		return nil, gorm.ErrRecordNotFound
	}
	var e model.Enrollment
	err := r.db.WithContext(ctx).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) CreateIfAbsent(ctx context.Context, e *model.Enrollment) (bool, error) {
	res := r.db.WithContext(ctx).
		Omit("Class", "Student").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "class_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).
		Create(e)
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) IsApproved(ctx context.Context, classID, studentID string) (bool, error) {
	if !validIDs(classID, studentID) {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("class_id = ? AND student_id = ? AND status = ?", classID, studentID, model.EnrollmentApproved).
		Count(&count).Error
	return count > 0, err
}

func (r *enrollmentRepo) ListByClass(ctx context.Context, classID string) ([]model.Enrollment, error) {
	if !validIDs(classID) {
		return nil, nil
	}
	var list []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("class_id = ?", classID).
		Order("enrolled_at ASC").
		Find(&list).Error
	return list, err
}

func (r *enrollmentRepo) ListApprovedByStudent(ctx context.Context, studentID string) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Class").
		Preload("Class.Teacher").
		Where("student_id = ? AND status = ?", studentID, model.EnrollmentApproved).
		Order("enrolled_at DESC").
		Find(&list).Error
	return list, err
}

func (r *enrollmentRepo) CountByClass(ctx context.Context, classID string) (int64, error) {
	if !validIDs(classID) {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("class_id = ?", classID).
		Count(&count).Error
	return count, err
}
