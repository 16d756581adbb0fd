package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"class-portal/backend/config"
	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/model"
	"class-portal/backend/internal/repository"
	pkgerrors "class-portal/backend/pkg/errors"
	"class-portal/backend/pkg/storage"
)

var (
	ErrEmptyFile = errors.New("请选择要上传的文件")
)

// AssignmentService 作业、提交与成绩业务接口
type AssignmentService interface {
	// ── 教师 ──
	ListForTeacher(ctx context.Context, p *Principal, classID string) ([]dto.AssignmentResponse, error)
	Create(ctx context.Context, p *Principal, classID string, req *dto.CreateAssignmentRequest) (*dto.AssignmentResponse, error)
	ListSubmissions(ctx context.Context, p *Principal, assignmentID string) ([]dto.SubmissionResponse, error)
	Grade(ctx context.Context, p *Principal, submissionID string, req *dto.GradeSubmissionRequest) (*dto.SubmissionResponse, error)

	// ── 学生 ──
	ListForStudent(ctx context.Context, p *Principal, classID string) ([]dto.AssignmentResponse, error)
	Submit(ctx context.Context, p *Principal, assignmentID, fileName string, r io.Reader) (*dto.SubmissionResponse, error)
	MyGrades(ctx context.Context, p *Principal) ([]dto.GradeResponse, error)

	// OpenSubmission 下载提交文件：教师须拥有班级，学生只能下载自己的提交
	OpenSubmission(ctx context.Context, p *Principal, submissionID string) (*FileObject, error)
}

type assignmentService struct {
	dir    string
	repo   *repository.Repository
	guard  OwnershipGuard
	blobs  storage.BlobStore
	logger *zap.Logger
	now    func() time.Time
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(
	cfg *config.Config,
	repo *repository.Repository,
	guard OwnershipGuard,
	blobs storage.BlobStore,
	logger *zap.Logger,
) AssignmentService {
	return &assignmentService{
		dir:    cfg.Storage.SubmissionDir,
		repo:   repo,
		guard:  guard,
		blobs:  blobs,
		logger: logger,
		now:    time.Now,
	}
}

// ────────────────────── Teacher ──────────────────────

func (s *assignmentService) ListForTeacher(ctx context.Context, p *Principal, classID string) ([]dto.AssignmentResponse, error) {
	if _, err := s.guard.RequireOwner(ctx, p, classID); err != nil {
		return nil, err
	}
	assignments, err := s.repo.Assignment.ListByClass(ctx, classID)
	if err != nil {
		s.logger.Error("查询作业列表失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}
	list := make([]dto.AssignmentResponse, 0, len(assignments))
	for i := range assignments {
		list = append(list, toAssignmentResponse(&assignments[i]))
	}
	return list, nil
}

func (s *assignmentService) Create(ctx context.Context, p *Principal, classID string, req *dto.CreateAssignmentRequest) (*dto.AssignmentResponse, error) {
	if _, err := s.guard.RequireOwner(ctx, p, classID); err != nil {
		return nil, err
	}

	kind := req.AssignmentType
	if kind == "" {
		kind = model.AssignmentHomework
	}
	now := s.now()
	a := &model.Assignment{
		ClassID:        classID,
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		AssignmentType: kind,
		DueDate:        req.DueDate,
		MaxScore:       req.MaxScore,
		CreatedBy:      p.UserID,
		BaseModel:      model.BaseModel{CreatedAt: now, UpdatedAt: now},
	}
	if err := s.repo.Assignment.Create(ctx, a); err != nil {
		s.logger.Error("创建作业失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}

	resp := toAssignmentResponse(a)
	return &resp, nil
}

func (s *assignmentService) ListSubmissions(ctx context.Context, p *Principal, assignmentID string) ([]dto.SubmissionResponse, error) {
	a, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireOwner(ctx, p, a.ClassID); err != nil {
		return nil, err
	}

	subs, err := s.repo.Submission.ListByAssignment(ctx, assignmentID)
	if err != nil {
		s.logger.Error("查询提交列表失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		return nil, err
	}
	list := make([]dto.SubmissionResponse, 0, len(subs))
	for i := range subs {
		list = append(list, *toSubmissionResponse(&subs[i]))
	}
	return list, nil
}

func (s *assignmentService) Grade(ctx context.Context, p *Principal, submissionID string, req *dto.GradeSubmissionRequest) (*dto.SubmissionResponse, error) {
	sub, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Assignment == nil {
		return nil, ErrAssignmentNotFound
	}
	if _, err := s.guard.RequireOwner(ctx, p, sub.Assignment.ClassID); err != nil {
		return nil, err
	}

	score := *req.Score
	if score < 0 || score > sub.Assignment.MaxScore {
		return nil, &pkgerrors.ValidationError{Fields: []pkgerrors.FieldError{{
			Field:   "score",
			Message: fmt.Sprintf("分数必须在 0 到 %g 之间", sub.Assignment.MaxScore),
		}}}
	}

	gradedAt := s.now()
	sub.Score = &score
	sub.Feedback = strings.TrimSpace(req.Feedback)
	sub.Status = model.SubmissionGraded
	sub.GradedAt = &gradedAt

	if err := s.repo.Submission.Grade(ctx, sub); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		s.logger.Error("批改失败", zap.String("submission_id", submissionID), zap.Error(err))
		return nil, err
	}
	return toSubmissionResponse(sub), nil
}

// ────────────────────── Student ──────────────────────

func (s *assignmentService) ListForStudent(ctx context.Context, p *Principal, classID string) ([]dto.AssignmentResponse, error) {
	if err := s.requireEnrolled(ctx, p, classID); err != nil {
		return nil, err
	}
	assignments, err := s.repo.Assignment.ListByClass(ctx, classID)
	if err != nil {
		s.logger.Error("查询作业列表失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}

	list := make([]dto.AssignmentResponse, 0, len(assignments))
	for i := range assignments {
		resp := toAssignmentResponse(&assignments[i])
		sub, err := s.repo.Submission.GetByAssignmentAndStudent(ctx, assignments[i].AssignmentID, p.UserID)
		if err == nil {
			resp.MySubmission = toSubmissionResponse(sub)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询提交记录失败", zap.String("assignment_id", assignments[i].AssignmentID), zap.Error(err))
			return nil, err
		}
		list = append(list, resp)
	}
	return list, nil
}

// Submit 提交或重新提交作业文件
// 重新提交时覆盖原记录并删除旧文件
func (s *assignmentService) Submit(ctx context.Context, p *Principal, assignmentID, fileName string, r io.Reader) (*dto.SubmissionResponse, error) {
	if err := p.requireRole(model.RoleStudent); err != nil {
		return nil, err
	}
	a, err := s.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEnrolled(ctx, p, a.ClassID); err != nil {
		return nil, err
	}

	key, size, err := s.blobs.Save(ctx, s.dir, fileName, r)
	if err != nil {
		if !errors.Is(err, storage.ErrFileTooLarge) {
			s.logger.Error("保存提交文件失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		}
		return nil, err
	}
	if size == 0 {
		s.discard(ctx, key)
		return nil, ErrEmptyFile
	}

	sub := &model.Submission{
		AssignmentID:     assignmentID,
		StudentID:        p.UserID,
		FileKey:          key,
		OriginalFileName: filepath.Base(fileName),
		FileSize:         size,
		SubmittedAt:      s.now(),
		Status:           model.SubmissionSubmitted,
	}

	oldKey, err := s.upsertSubmission(ctx, sub)
	if err != nil {
		s.discard(ctx, key)
		s.logger.Error("保存提交记录失败",
			zap.String("assignment_id", assignmentID), zap.String("student_id", p.UserID), zap.Error(err))
		return nil, err
	}
	if oldKey != "" && oldKey != key {
		s.discard(ctx, oldKey)
	}

	return toSubmissionResponse(sub), nil
}

// upsertSubmission 写入提交记录，返回被替换的旧文件 key
func (s *assignmentService) upsertSubmission(ctx context.Context, sub *model.Submission) (string, error) {
	existing, err := s.repo.Submission.GetByAssignmentAndStudent(ctx, sub.AssignmentID, sub.StudentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	if existing == nil {
		err = s.repo.Submission.Create(ctx, sub)
		if !errors.Is(err, pkgerrors.ErrConstraintViolation) {
			return "", err
		}
		// 并发提交：另一请求已先写入，转为覆盖
		if existing, err = s.repo.Submission.GetByAssignmentAndStudent(ctx, sub.AssignmentID, sub.StudentID); err != nil {
			return "", err
		}
	}

	sub.SubmissionID = existing.SubmissionID
	sub.Score = existing.Score
	sub.Feedback = existing.Feedback
	sub.GradedAt = existing.GradedAt
	if err := s.repo.Submission.ReplaceFile(ctx, sub); err != nil {
		return "", err
	}
	return existing.FileKey, nil
}

func (s *assignmentService) discard(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("删除文件失败", zap.String("key", key), zap.Error(err))
	}
}

func (s *assignmentService) MyGrades(ctx context.Context, p *Principal) ([]dto.GradeResponse, error) {
	if err := p.requireRole(model.RoleStudent); err != nil {
		return nil, err
	}
	subs, err := s.repo.Submission.ListGradedByStudent(ctx, p.UserID)
	if err != nil {
		s.logger.Error("查询成绩失败", zap.String("student_id", p.UserID), zap.Error(err))
		return nil, err
	}

	list := make([]dto.GradeResponse, 0, len(subs))
	for _, sub := range subs {
		g := dto.GradeResponse{
			SubmissionID: sub.SubmissionID,
			AssignmentID: sub.AssignmentID,
			Score:        sub.Score,
			Feedback:     sub.Feedback,
			GradedAt:     formatTimePtr(sub.GradedAt),
		}
		if a := sub.Assignment; a != nil {
			g.AssignmentTitle = a.Title
			g.MaxScore = a.MaxScore
			if a.Class != nil {
				g.ClassName = a.Class.ClassName
				g.ClassCode = a.Class.ClassCode
			}
		}
		list = append(list, g)
	}
	return list, nil
}

// ────────────────────── Download ──────────────────────

func (s *assignmentService) OpenSubmission(ctx context.Context, p *Principal, submissionID string) (*FileObject, error) {
	if p == nil || p.UserID == "" {
		return nil, errUnauthenticated
	}
	sub, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	switch p.Role {
	case model.RoleStudent:
		if sub.StudentID != p.UserID {
			return nil, ErrNotYourFile
		}
	case model.RoleTeacher:
		if sub.Assignment == nil {
			return nil, ErrAssignmentNotFound
		}
		if _, err := s.guard.RequireOwner(ctx, p, sub.Assignment.ClassID); err != nil {
			return nil, err
		}
	default:
		return nil, errUnauthenticated
	}

	return openBlob(ctx, s.blobs, sub.FileKey, sub.OriginalFileName, sub.FileSize)
}

// ── 内部辅助 ──

func (s *assignmentService) getAssignment(ctx context.Context, id string) (*model.Assignment, error) {
	a, err := s.repo.Assignment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询作业失败", zap.String("assignment_id", id), zap.Error(err))
		return nil, err
	}
	return a, nil
}

func (s *assignmentService) getSubmission(ctx context.Context, id string) (*model.Submission, error) {
	sub, err := s.repo.Submission.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		s.logger.Error("查询提交记录失败", zap.String("submission_id", id), zap.Error(err))
		return nil, err
	}
	return sub, nil
}

func (s *assignmentService) requireEnrolled(ctx context.Context, p *Principal, classID string) error {
	return requireEnrolled(ctx, s.repo, s.logger, p, classID)
}

// requireEnrolled 学生必须持有该班级的已批准选课
func requireEnrolled(ctx context.Context, repo *repository.Repository, logger *zap.Logger, p *Principal, classID string) error {
	if err := p.requireRole(model.RoleStudent); err != nil {
		return err
	}
	ok, err := repo.Enrollment.IsApproved(ctx, classID, p.UserID)
	if err != nil {
		logger.Error("查询选课状态失败", zap.String("class_id", classID), zap.String("student_id", p.UserID), zap.Error(err))
		return err
	}
	if !ok {
		return ErrNotEnrolled
	}
	return nil
}

// openBlob 打开存储中的文件，存储中已丢失时返回 ErrFileNotFound
func openBlob(ctx context.Context, blobs storage.BlobStore, key, name string, size int64) (*FileObject, error) {
	body, err := blobs.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &FileObject{Name: name, Size: size, ContentType: ct, Body: body}, nil
}
