package repository

import (
	"context"

	"gorm.io/gorm"

	"class-portal/backend/internal/model"
)

// AssignmentRepository 作业数据访问接口
type AssignmentRepository interface {
	Create(ctx context.Context, a *model.Assignment) error
	GetByID(ctx context.Context, id string) (*model.Assignment, error)
	ListByClass(ctx context.Context, classID string) ([]model.Assignment, error)
	Count(ctx context.Context) (int64, error)
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) Create(ctx context.Context, a *model.Assignment) error {
	return translateError(r.db.WithContext(ctx).Omit("Class").Create(a).Error)
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*model.Assignment, error) {
	if !validIDs(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var a model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Class").
		Where("assignment_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) ListByClass(ctx context.Context, classID string) ([]model.Assignment, error) {
	if !validIDs(classID) {
		return nil, nil
	}
	var list []model.Assignment
	err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("due_date ASC").
		Find(&list).Error
	return list, err
}

func (r *assignmentRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Assignment{}).Count(&count).Error
	return count, err
}
