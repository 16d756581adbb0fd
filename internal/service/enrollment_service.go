package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/model"
	"class-portal/backend/internal/repository"
	pkgerrors "class-portal/backend/pkg/errors"
)

// EnrollmentResult 加入班级的结果，重复加入不是错误
type EnrollmentResult string

const (
	EnrollmentJoined          EnrollmentResult = "joined"
	EnrollmentAlreadyEnrolled EnrollmentResult = "already_enrolled"
)

// EnrollmentService 学生选课业务接口
type EnrollmentService interface {
	// JoinClass 幂等加入班级：首次返回 Joined，之后返回 AlreadyEnrolled，只影响该班级的选课记录
	JoinClass(ctx context.Context, p *Principal, classID string) (EnrollmentResult, error)
	Joined(ctx context.Context, p *Principal) ([]dto.JoinedClassResponse, error)
	Search(ctx context.Context, p *Principal, keyword string) ([]dto.ClassResponse, error)
}

type enrollmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewEnrollmentService 创建 EnrollmentService 实例
func NewEnrollmentService(repo *repository.Repository, logger *zap.Logger) EnrollmentService {
	return &enrollmentService{repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── JoinClass ──────────────────────

func (s *enrollmentService) JoinClass(ctx context.Context, p *Principal, classID string) (EnrollmentResult, error) {
	if err := p.requireRole(model.RoleStudent); err != nil {
		return "", err
	}

	// 1. 班级必须存在
	if _, err := s.repo.Class.GetByID(ctx, classID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrClassNotFound
		}
		s.logger.Error("查询班级失败", zap.String("class_id", classID), zap.Error(err))
		return "", err
	}

	// 2. 已有任意状态的选课记录即视为已加入
	if _, err := s.repo.Enrollment.GetByClassAndStudent(ctx, classID, p.UserID); err == nil {
		return EnrollmentAlreadyEnrolled, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询选课记录失败",
			zap.String("class_id", classID), zap.String("student_id", p.UserID), zap.Error(err))
		return "", err
	}

	// 3. 插入；并发请求由唯一索引 + ON CONFLICT DO NOTHING 收敛
	created, err := s.repo.Enrollment.CreateIfAbsent(ctx, &model.Enrollment{
		ClassID:    classID,
		StudentID:  p.UserID,
		EnrolledAt: s.now(),
		Status:     model.EnrollmentApproved,
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrConstraintViolation) {
			return EnrollmentAlreadyEnrolled, nil
		}
		s.logger.Error("创建选课记录失败",
			zap.String("class_id", classID), zap.String("student_id", p.UserID), zap.Error(err))
		return "", err
	}
	if !created {
		return EnrollmentAlreadyEnrolled, nil
	}

	s.logger.Info("学生加入班级", zap.String("class_id", classID), zap.String("student_id", p.UserID))
	return EnrollmentJoined, nil
}

// ────────────────────── Joined ──────────────────────

func (s *enrollmentService) Joined(ctx context.Context, p *Principal) ([]dto.JoinedClassResponse, error) {
	if err := p.requireRole(model.RoleStudent); err != nil {
		return nil, err
	}
	enrollments, err := s.repo.Enrollment.ListApprovedByStudent(ctx, p.UserID)
	if err != nil {
		s.logger.Error("查询已加入班级失败", zap.String("student_id", p.UserID), zap.Error(err))
		return nil, err
	}

	list := make([]dto.JoinedClassResponse, 0, len(enrollments))
	for _, e := range enrollments {
		if e.Class == nil {
			continue
		}
		list = append(list, dto.JoinedClassResponse{
			ClassResponse: toClassResponse(e.Class),
			EnrolledAt:    formatTime(e.EnrolledAt),
		})
	}
	return list, nil
}

// ────────────────────── Search ──────────────────────

// Search 学生按名称或代码搜索启用中的班级
func (s *enrollmentService) Search(ctx context.Context, p *Principal, keyword string) ([]dto.ClassResponse, error) {
	if err := p.requireRole(model.RoleStudent); err != nil {
		return nil, err
	}
	classes, err := s.repo.Class.SearchActive(ctx, keyword)
	if err != nil {
		s.logger.Error("搜索班级失败", zap.String("keyword", keyword), zap.Error(err))
		return nil, err
	}
	list := make([]dto.ClassResponse, 0, len(classes))
	for i := range classes {
		list = append(list, toClassResponse(&classes[i]))
	}
	return list, nil
}
