package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"class-portal/backend/internal/model"
)

// ClassFilter 班级列表筛选条件
type ClassFilter struct {
	Keyword string       // 匹配班级名称、代码、授课教师姓名
	Status  model.Status // 为空表示不限
}

// ClassRepository 班级数据访问接口
type ClassRepository interface {
	Create(ctx context.Context, class *model.Class) error
	GetByID(ctx context.Context, id string) (*model.Class, error)
	GetByCode(ctx context.Context, code string) (*model.Class, error)
	Update(ctx context.Context, class *model.Class) error
	SetStatus(ctx context.Context, id string, status model.Status, at time.Time) error
	ListByTeacher(ctx context.Context, teacherID string) ([]model.Class, error)
	List(ctx context.Context, filter ClassFilter, offset, limit int) ([]model.Class, int64, error)
	SearchActive(ctx context.Context, keyword string) ([]model.Class, error)
	CountByStatus(ctx context.Context) (total, active int64, err error)
}

type classRepo struct {
	db *gorm.DB
}

// NewClassRepo 创建 ClassRepository 实例
func NewClassRepo(db *gorm.DB) ClassRepository {
	return &classRepo{db: db}
}

func (r *classRepo) Create(ctx context.Context, class *model.Class) error {
	return translateError(r.db.WithContext(ctx).Omit("Teacher").Create(class).Error)
}

func (r *classRepo) GetByID(ctx context.Context, id string) (*model.Class, error) {
	if !validIDs(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var class model.Class
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Where("class_id = ?", id).
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *classRepo) GetByCode(ctx context.Context, code string) (*model.Class, error) {
	var class model.Class
	err := r.db.WithContext(ctx).
		Where("class_code = ?", code).
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

// Update 更新可编辑字段，teacher_id 与 status 不在此路径修改
func (r *classRepo) Update(ctx context.Context, class *model.Class) error {
	return translateError(r.db.WithContext(ctx).
		Model(class).
		Select("class_name", "class_code", "description", "academic_year", "semester", "max_students", "updated_at").
		Updates(class).Error)
}

func (r *classRepo) SetStatus(ctx context.Context, id string, status model.Status, at time.Time) error {
	if !validIDs(id) {
		return gorm.ErrRecordNotFound
	}
	return affected(r.db.WithContext(ctx).
		Model(&model.Class{}).
		Where("class_id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": at,
		}))
}

func (r *classRepo) ListByTeacher(ctx context.Context, teacherID string) ([]model.Class, error) {
	var classes []model.Class
	err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC").
		Find(&classes).Error
	return classes, err
}

func (r *classRepo) List(ctx context.Context, filter ClassFilter, offset, limit int) ([]model.Class, int64, error) {
	var classes []model.Class
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.Class{}).
		Joins("JOIN users AS teacher ON teacher.user_id = classes.teacher_id")
	if filter.Status != "" {
		db = db.Where("classes.status = ?", filter.Status)
	}
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		p := likePattern(kw)
		db = db.Where("classes.class_name ILIKE ? OR classes.class_code ILIKE ? OR teacher.full_name ILIKE ?", p, p, p)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Teacher").
		Offset(offset).Limit(limit).
		Order("classes.created_at DESC").
		Find(&classes).Error; err != nil {
		return nil, 0, err
	}

	return classes, total, nil
}

func (r *classRepo) SearchActive(ctx context.Context, keyword string) ([]model.Class, error) {
	var classes []model.Class
	db := r.db.WithContext(ctx).
		Preload("Teacher").
		Where("status = ?", model.StatusActive)
	if kw := strings.TrimSpace(keyword); kw != "" {
		p := likePattern(kw)
		db = db.Where("class_name ILIKE ? OR class_code ILIKE ?", p, p)
	}
	err := db.Order("class_code ASC").Find(&classes).Error
	return classes, err
}

func (r *classRepo) CountByStatus(ctx context.Context) (total, active int64, err error) {
	db := r.db.WithContext(ctx).Model(&model.Class{})
	if err = db.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).
		Model(&model.Class{}).
		Where("status = ?", model.StatusActive).
		Count(&active).Error
	return total, active, err
}
