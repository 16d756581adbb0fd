package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"class-portal/backend/internal/model"
	"class-portal/backend/internal/repository"
)

// OwnershipGuard 教师对班级的归属校验
type OwnershipGuard interface {
	// AssertOwnership 只读判断 teacherID 是否为班级的授课教师；班级不存在时返回 false
	AssertOwnership(ctx context.Context, teacherID, classID string) (bool, error)
	// RequireOwner 校验调用方为教师且拥有该班级，返回班级；不满足时返回 ErrNotClassOwner
	RequireOwner(ctx context.Context, p *Principal, classID string) (*model.Class, error)
}

type ownershipGuard struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewOwnershipGuard 创建 OwnershipGuard 实例
func NewOwnershipGuard(repo *repository.Repository, logger *zap.Logger) OwnershipGuard {
	return &ownershipGuard{repo: repo, logger: logger}
}

func (g *ownershipGuard) AssertOwnership(ctx context.Context, teacherID, classID string) (bool, error) {
	class, err := g.lookup(ctx, classID)
	if err != nil || class == nil {
		return false, err
	}
	return class.TeacherID == teacherID, nil
}

func (g *ownershipGuard) RequireOwner(ctx context.Context, p *Principal, classID string) (*model.Class, error) {
	if err := p.requireRole(model.RoleTeacher); err != nil {
		return nil, err
	}
	class, err := g.lookup(ctx, classID)
	if err != nil {
		return nil, err
	}
	if class == nil || class.TeacherID != p.UserID {
		g.logger.Warn("班级归属校验未通过",
			zap.String("teacher_id", p.UserID), zap.String("class_id", classID))
		return nil, ErrNotClassOwner
	}
	return class, nil
}

// lookup 班级不存在时返回 (nil, nil)
func (g *ownershipGuard) lookup(ctx context.Context, classID string) (*model.Class, error) {
	class, err := g.repo.Class.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		g.logger.Error("查询班级失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}
	return class, nil
}
