package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "class-portal/backend/pkg/errors"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User         UserRepository
	Class        ClassRepository
	ClassSession ClassSessionRepository
	Enrollment   EnrollmentRepository
	Assignment   AssignmentRepository
	Submission   SubmissionRepository
	Material     MaterialRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		User:         NewUserRepo(db),
		Class:        NewClassRepo(db),
		ClassSession: NewClassSessionRepo(db),
		Enrollment:   NewEnrollmentRepo(db),
		Assignment:   NewAssignmentRepo(db),
		Submission:   NewSubmissionRepo(db),
		Material:     NewMaterialRepo(db),
	}
}

// BeginTx 开启事务
// 未注入数据库（单元测试中手工组装的聚合）时返回 nil 事务，调用方按无事务处理
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务的 Repository 聚合；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Ping 检查数据库连通性，供健康检查使用
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translateError 把驱动层的唯一约束冲突翻译为通用的 ErrConstraintViolation
// 依赖 gorm.Config.TranslateError 打开
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", pkgerrors.ErrConstraintViolation, err)
	}
	return err
}

// affected 更新未命中任何行时返回 gorm.ErrRecordNotFound
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// validIDs 主键列为 uuid 类型，非法格式的 ID 视为不存在，不下发到数据库
func validIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

// likePattern 构造 ILIKE 模糊匹配串并转义通配符
func likePattern(keyword string) string {
	escaped := make([]rune, 0, len(keyword)+2)
	for _, r := range keyword {
		if r == '%' || r == '_' || r == '\\' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, r)
	}
	return "%" + string(escaped) + "%"
}
