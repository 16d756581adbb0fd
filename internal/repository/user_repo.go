package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"class-portal/backend/internal/model"
)

// UserFilter 用户列表筛选条件
type UserFilter struct {
	Role    string
	Keyword string // 匹配姓名、邮箱、电话
}

// DailyCount 按天聚合的计数
type DailyCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetStatus(ctx context.Context, id string, status model.Status, at time.Time) error
	List(ctx context.Context, filter UserFilter, offset, limit int) ([]model.User, int64, error)
	CountByRole(ctx context.Context) (map[string]int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) ([]DailyCount, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if !validIDs(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var user model.User
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update 更新资料字段，角色与密码走各自的专用路径
func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	return translateError(r.db.WithContext(ctx).
		Model(user).
		Select("email", "full_name", "phone_number", "date_of_birth", "hometown", "updated_at").
		Updates(user).Error)
}

func (r *userRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	if !validIDs(id) {
		return gorm.ErrRecordNotFound
	}
	return affected(r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", id).
		Updates(map[string]interface{}{
			"password_hash": hash,
			"updated_at":    gorm.Expr("NOW()"),
		}))
}

func (r *userRepo) SetStatus(ctx context.Context, id string, status model.Status, at time.Time) error {
	if !validIDs(id) {
		return gorm.ErrRecordNotFound
	}
	return affected(r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": at,
		}))
}

func (r *userRepo) List(ctx context.Context, filter UserFilter, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})
	if filter.Role != "" {
		db = db.Where("role = ?", filter.Role)
	}
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		p := likePattern(kw)
		db = db.Where("full_name ILIKE ? OR email ILIKE ? OR phone_number ILIKE ?", p, p, p)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepo) CountByRole(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Role  string
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Role] = row.Count
	}
	return result, nil
}

// CountCreatedSince 按注册日期统计新用户，日期按数据库会话时区划分
func (r *userRepo) CountCreatedSince(ctx context.Context, since time.Time) ([]DailyCount, error) {
	var rows []DailyCount
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("to_char(created_at, 'YYYY-MM-DD') AS day, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("day").
		Order("day ASC").
		Scan(&rows).Error
	return rows, err
}
