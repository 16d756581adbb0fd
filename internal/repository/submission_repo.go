package repository

import (
	"context"

	"gorm.io/gorm"

	"class-portal/backend/internal/model"
)

// SubmissionRepository 作业提交数据访问接口
type SubmissionRepository interface {
	Create(ctx context.Context, s *model.Submission) error
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*model.Submission, error)
	// ReplaceFile 重新提交：覆盖文件信息与提交时间，状态回到 submitted，已有分数保留
	ReplaceFile(ctx context.Context, s *model.Submission) error
	Grade(ctx context.Context, s *model.Submission) error
	ListByAssignment(ctx context.Context, assignmentID string) ([]model.Submission, error)
	ListGradedByStudent(ctx context.Context, studentID string) ([]model.Submission, error)
	Count(ctx context.Context) (int64, error)
}

type submissionRepo struct {
	db *gorm.DB
}

// NewSubmissionRepo 创建 SubmissionRepository 实例
func NewSubmissionRepo(db *gorm.DB) SubmissionRepository {
	return &submissionRepo{db: db}
}

func (r *submissionRepo) Create(ctx context.Context, s *model.Submission) error {
	return translateError(r.db.WithContext(ctx).Omit("Assignment", "Student").Create(s).Error)
}

func (r *submissionRepo) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	if !validIDs(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var s model.Submission
	err := r.db.WithContext(ctx).
		Preload("Assignment").
		Preload("Student").
		Where("submission_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepo) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*model.Submission, error) {
	if !validIDs(assignmentID, studentID) {
		return nil, gorm.ErrRecordNotFound
	}
	var s model.Submission
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepo) ReplaceFile(ctx context.Context, s *model.Submission) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("submission_id = ?", s.SubmissionID).
		Updates(map[string]interface{}{
			"file_key":           s.FileKey,
			"original_file_name": s.OriginalFileName,
			"file_size":          s.FileSize,
			"submitted_at":       s.SubmittedAt,
			"status":             s.Status,
		}))
}

func (r *submissionRepo) Grade(ctx context.Context, s *model.Submission) error {
	return affected(r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("submission_id = ?", s.SubmissionID).
		Updates(map[string]interface{}{
			"status":    s.Status,
			"score":     s.Score,
			"feedback":  s.Feedback,
			"graded_at": s.GradedAt,
		}))
}

func (r *submissionRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]model.Submission, error) {
	if !validIDs(assignmentID) {
		return nil, nil
	}
	var list []model.Submission
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("assignment_id = ?", assignmentID).
		Order("submitted_at ASC").
		Find(&list).Error
	return list, err
}

func (r *submissionRepo) ListGradedByStudent(ctx context.Context, studentID string) ([]model.Submission, error) {
	var list []model.Submission
	err := r.db.WithContext(ctx).
		Preload("Assignment").
		Preload("Assignment.Class").
		Where("student_id = ? AND score IS NOT NULL", studentID).
		Order("graded_at DESC NULLS LAST").
		Find(&list).Error
	return list, err
}

func (r *submissionRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Submission{}).Count(&count).Error
	return count, err
}
