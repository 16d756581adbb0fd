package service

import (
	"context"
	"errors"
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
	"class-portal/backend/pkg/storage"
)

// MaterialService 课程资料业务接口
type MaterialService interface {
	Upload(ctx context.Context, p *Principal, classID string, req *dto.CreateMaterialRequest, fileName, contentType string, r io.Reader) (*dto.MaterialResponse, error)
	ListForTeacher(ctx context.Context, p *Principal, classID string) ([]dto.MaterialResponse, error)
	ListForStudent(ctx context.Context, p *Principal, classID string) ([]dto.MaterialResponse, error)
	// Open 学生下载资料，须持有该班级的已批准选课
	Open(ctx context.Context, p *Principal, materialID string) (*FileObject, error)
}

type materialService struct {
	dir    string
	repo   *repository.Repository
	guard  OwnershipGuard
	blobs  storage.BlobStore
	logger *zap.Logger
	now    func() time.Time
}

// NewMaterialService 创建 MaterialService 实例
func NewMaterialService(
	cfg *config.Config,
	repo *repository.Repository,
	guard OwnershipGuard,
	blobs storage.BlobStore,
	logger *zap.Logger,
) MaterialService {
	return &materialService{
		dir:    cfg.Storage.MaterialDir,
		repo:   repo,
		guard:  guard,
		blobs:  blobs,
		logger: logger,
		now:    time.Now,
	}
}

// ────────────────────── Upload ──────────────────────

func (s *materialService) Upload(
	ctx context.Context,
	p *Principal,
	classID string,
	req *dto.CreateMaterialRequest,
	fileName, contentType string,
	r io.Reader,
) (*dto.MaterialResponse, error) {
	if _, err := s.guard.RequireOwner(ctx, p, classID); err != nil {
		return nil, err
	}

	key, size, err := s.blobs.Save(ctx, s.dir, fileName, r)
	if err != nil {
		if !errors.Is(err, storage.ErrFileTooLarge) {
			s.logger.Error("保存资料文件失败", zap.String("class_id", classID), zap.Error(err))
		}
		return nil, err
	}
	if size == 0 {
		s.discard(ctx, key)
		return nil, ErrEmptyFile
	}

	m := &model.CourseMaterial{
		ClassID:          classID,
		Title:            strings.TrimSpace(req.Title),
		Description:      strings.TrimSpace(req.Description),
		FileKey:          key,
		OriginalFileName: filepath.Base(fileName),
		FileType:         fileType(fileName, contentType),
		FileSize:         size,
		UploadedBy:       p.UserID,
		UploadedAt:       s.now(),
	}
	if err := s.repo.Material.Create(ctx, m); err != nil {
		s.discard(ctx, key)
		s.logger.Error("保存资料记录失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("课程资料已上传",
		zap.String("class_id", classID), zap.String("material_id", m.MaterialID), zap.Int64("size", size))
	resp := toMaterialResponse(m)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *materialService) ListForTeacher(ctx context.Context, p *Principal, classID string) ([]dto.MaterialResponse, error) {
	if _, err := s.guard.RequireOwner(ctx, p, classID); err != nil {
		return nil, err
	}
	return s.list(ctx, classID)
}

func (s *materialService) ListForStudent(ctx context.Context, p *Principal, classID string) ([]dto.MaterialResponse, error) {
	if err := requireEnrolled(ctx, s.repo, s.logger, p, classID); err != nil {
		return nil, err
	}
	return s.list(ctx, classID)
}

func (s *materialService) list(ctx context.Context, classID string) ([]dto.MaterialResponse, error) {
	materials, err := s.repo.Material.ListByClass(ctx, classID)
	if err != nil {
		s.logger.Error("查询课程资料失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}
	list := make([]dto.MaterialResponse, 0, len(materials))
	for i := range materials {
		list = append(list, toMaterialResponse(&materials[i]))
	}
	return list, nil
}

// ────────────────────── Download ──────────────────────

func (s *materialService) Open(ctx context.Context, p *Principal, materialID string) (*FileObject, error) {
	if err := p.requireRole(model.RoleStudent); err != nil {
		return nil, err
	}
	m, err := s.repo.Material.GetByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMaterialNotFound
		}
		s.logger.Error("查询课程资料失败", zap.String("material_id", materialID), zap.Error(err))
		return nil, err
	}
	if err := requireEnrolled(ctx, s.repo, s.logger, p, m.ClassID); err != nil {
		return nil, err
	}
	return openBlob(ctx, s.blobs, m.FileKey, m.OriginalFileName, m.FileSize)
}

func (s *materialService) discard(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("删除文件失败", zap.String("key", key), zap.Error(err))
	}
}

// fileType 优先使用客户端声明的 Content-Type，其次按扩展名推断
func fileType(name, declared string) string {
	if declared != "" && declared != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
	}
	if mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); mt != "" {
		if base, _, err := mime.ParseMediaType(mt); err == nil {
			return base
		}
	}
	return "application/octet-stream"
}
