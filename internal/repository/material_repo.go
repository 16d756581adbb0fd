package repository

import (
	"context"

	"gorm.io/gorm"

	"class-portal/backend/internal/model"
)

// MaterialRepository 课程资料数据访问接口
type MaterialRepository interface {
	Create(ctx context.Context, m *model.CourseMaterial) error
	GetByID(ctx context.Context, id string) (*model.CourseMaterial, error)
	ListByClass(ctx context.Context, classID string) ([]model.CourseMaterial, error)
}

type materialRepo struct {
	db *gorm.DB
}

// NewMaterialRepo 创建 MaterialRepository 实例
func NewMaterialRepo(db *gorm.DB) MaterialRepository {
	return &materialRepo{db: db}
}

func (r *materialRepo) Create(ctx context.Context, m *model.CourseMaterial) error {
	return translateError(r.db.WithContext(ctx).Create(m).Error)
}

func (r *materialRepo) GetByID(ctx context.Context, id string) (*model.CourseMaterial, error) {
	if !validIDs(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var m model.CourseMaterial
	err := r.db.WithContext(ctx).
		Where("material_id = ?", id).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *materialRepo) ListByClass(ctx context.Context, classID string) ([]model.CourseMaterial, error) {
	if !validIDs(classID) {
		return nil, nil
	}
	var list []model.CourseMaterial
	err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("uploaded_at DESC").
		Find(&list).Error
	return list, err
}
