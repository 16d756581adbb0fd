package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/model"
	"class-portal/backend/internal/repository"
	pkgerrors "class-portal/backend/pkg/errors"
	"class-portal/backend/pkg/timeutil"
)

// 未填写结束日期的时段默认持续 4 个月
const defaultSessionMonths = 4

// ClassService 班级业务接口
type ClassService interface {
	// ── 教师 ──
	ListMine(ctx context.Context, p *Principal) ([]dto.ClassResponse, error)
	Create(ctx context.Context, p *Principal, req *dto.CreateClassRequest) (*dto.ClassDetailResponse, error)
	GetMine(ctx context.Context, p *Principal, classID string) (*dto.ClassDetailResponse, error)
	Update(ctx context.Context, p *Principal, classID string, req *dto.UpdateClassRequest) (*dto.ClassResponse, error)
	Delete(ctx context.Context, p *Principal, classID string) error
	Roster(ctx context.Context, p *Principal, classID string) ([]dto.RosterEntry, error)
	ExportRoster(ctx context.Context, p *Principal, classID string) (*ExportedFile, error)

	// ── 管理员 ──
	List(ctx context.Context, req *dto.ClassListRequest) ([]dto.ClassResponse, int64, error)
	GetByID(ctx context.Context, classID string) (*dto.ClassDetailResponse, error)
	// SetActive 启用/停用班级，只修改状态与 updated_at，从不删除记录
	SetActive(ctx context.Context, classID string, active bool) error
}

type classService struct {
	repo   *repository.Repository
	guard  OwnershipGuard
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewClassService 创建 ClassService 实例
func NewClassService(repo *repository.Repository, guard OwnershipGuard, loc *time.Location, logger *zap.Logger) ClassService {
	return &classService{repo: repo, guard: guard, loc: loc, logger: logger, now: time.Now}
}

// ────────────────────── ListMine ──────────────────────

func (s *classService) ListMine(ctx context.Context, p *Principal) ([]dto.ClassResponse, error) {
	if err := p.requireRole(model.RoleTeacher); err != nil {
		return nil, err
	}
	classes, err := s.repo.Class.ListByTeacher(ctx, p.UserID)
	if err != nil {
		s.logger.Error("查询教师班级失败", zap.String("teacher_id", p.UserID), zap.Error(err))
		return nil, err
	}
	list := make([]dto.ClassResponse, 0, len(classes))
	for i := range classes {
		list = append(list, toClassResponse(&classes[i]))
	}
	return list, nil
}

// ────────────────────── Create ──────────────────────

func (s *classService) Create(ctx context.Context, p *Principal, req *dto.CreateClassRequest) (*dto.ClassDetailResponse, error) {
	if err := p.requireRole(model.RoleTeacher); err != nil {
		return nil, err
	}

	ve := &pkgerrors.ValidationError{}
	code := strings.TrimSpace(req.ClassCode)
	if err := s.checkCodeFree(ctx, code, "", ve); err != nil {
		return nil, err
	}
	sessions := s.buildSessions(req.Sessions, ve)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	class := &model.Class{
		ClassName:    strings.TrimSpace(req.ClassName),
		ClassCode:    code,
		Description:  strings.TrimSpace(req.Description),
		AcademicYear: strings.TrimSpace(req.AcademicYear),
		Semester:     strings.TrimSpace(req.Semester),
		MaxStudents:  req.MaxStudents,
		TeacherID:    p.UserID,
		Status:       model.StatusActive,
		BaseModel:    model.BaseModel{CreatedAt: now, UpdatedAt: now},
	}

	// 班级与时段在同一事务中写入
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()
	txRepo := s.repo.WithTx(tx)

	if err := txRepo.Class.Create(ctx, class); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, pkgerrors.ErrConstraintViolation) {
			ve.Add("class_code", "班级代码已存在")
			return nil, ve
		}
		s.logger.Error("创建班级失败", zap.String("class_code", code), zap.Error(err))
		return nil, err
	}

	for i := range sessions {
		sessions[i].ClassID = class.ClassID
	}
	if err := txRepo.ClassSession.CreateBatch(ctx, sessions); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建上课时段失败", zap.String("class_id", class.ClassID), zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("班级已创建",
		zap.String("class_id", class.ClassID), zap.String("teacher_id", p.UserID), zap.Int("sessions", len(sessions)))

	resp := &dto.ClassDetailResponse{
		ClassResponse: toClassResponse(class),
		Sessions:      make([]dto.SessionResponse, 0, len(sessions)),
	}
	for i := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(&sessions[i]))
	}
	return resp, nil
}

// checkCodeFree 班级代码已被其他班级占用时追加字段错误
func (s *classService) checkCodeFree(ctx context.Context, code, selfID string, ve *pkgerrors.ValidationError) error {
	existing, err := s.repo.Class.GetByCode(ctx, code)
	if err == nil {
		if existing.ClassID != selfID {
			ve.Add("class_code", "班级代码已存在")
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询班级代码失败", zap.String("class_code", code), zap.Error(err))
		return err
	}
	return nil
}

// buildSessions 校验并转换时段输入
// 整行为空的输入被忽略；填写了任意字段的行必须完整，结束日期缺省为开始日期后 4 个月
func (s *classService) buildSessions(inputs []dto.SessionInput, ve *pkgerrors.ValidationError) []model.ClassSession {
	var sessions []model.ClassSession
	for i := range inputs {
		in := &inputs[i]
		if in.IsBlank() {
			continue
		}
		field := func(name string) string { return fmt.Sprintf("sessions[%d].%s", i, name) }
		before := len(ve.Fields)

		if in.DayOfWeek < 1 || in.DayOfWeek > 7 {
			ve.Add(field("day_of_week"), "请选择星期几")
		}
		start, errStart := timeutil.ParseClock(in.StartTime)
		if errStart != nil {
			ve.Add(field("start_time"), "开始时间无效")
		}
		end, errEnd := timeutil.ParseClock(in.EndTime)
		if errEnd != nil {
			ve.Add(field("end_time"), "结束时间无效")
		}
		startDate, errSD := timeutil.ParseDate(in.StartDate, s.loc)
		if errSD != nil {
			ve.Add(field("start_date"), "开始日期无效")
		}
		var endDate time.Time
		if strings.TrimSpace(in.EndDate) == "" {
			if errSD == nil {
				endDate = startDate.AddDate(0, defaultSessionMonths, 0)
			}
		} else if d, err := timeutil.ParseDate(in.EndDate, s.loc); err != nil {
			ve.Add(field("end_date"), "结束日期无效")
		} else {
			endDate = d
		}

		if len(ve.Fields) > before {
			continue
		}
		if start >= end {
			ve.Add(field("end_time"), "结束时间必须晚于开始时间")
		}
		if startDate.After(endDate) {
			ve.Add(field("end_date"), "结束日期不能早于开始日期")
		}
		if len(ve.Fields) > before {
			continue
		}

		sessions = append(sessions, model.ClassSession{
			DayOfWeek: in.DayOfWeek,
			StartTime: start,
			EndTime:   end,
			StartDate: startDate,
			EndDate:   endDate,
			Location:  strings.TrimSpace(in.Location),
		})
	}

	if len(sessions) == 0 && len(ve.Fields) == 0 {
		ve.Add("sessions", "请至少添加一个完整的上课时段（星期、开始时间、结束时间、开始日期）")
	}
	return sessions
}

// ────────────────────── GetMine / GetByID ──────────────────────

func (s *classService) GetMine(ctx context.Context, p *Principal, classID string) (*dto.ClassDetailResponse, error) {
	class, err := s.guard.RequireOwner(ctx, p, classID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, class)
}

func (s *classService) GetByID(ctx context.Context, classID string) (*dto.ClassDetailResponse, error) {
	class, err := s.repo.Class.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询班级失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}
	return s.detail(ctx, class)
}

func (s *classService) detail(ctx context.Context, class *model.Class) (*dto.ClassDetailResponse, error) {
	sessions, err := s.repo.ClassSession.ListByClass(ctx, class.ClassID)
	if err != nil {
		s.logger.Error("查询上课时段失败", zap.String("class_id", class.ClassID), zap.Error(err))
		return nil, err
	}
	count, err := s.repo.Enrollment.CountByClass(ctx, class.ClassID)
	if err != nil {
		s.logger.Error("统计选课人数失败", zap.String("class_id", class.ClassID), zap.Error(err))
		return nil, err
	}

	resp := &dto.ClassDetailResponse{
		ClassResponse: toClassResponse(class),
		Sessions:      make([]dto.SessionResponse, 0, len(sessions)),
		StudentCount:  count,
	}
	for i := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(&sessions[i]))
	}
	return resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *classService) Update(ctx context.Context, p *Principal, classID string, req *dto.UpdateClassRequest) (*dto.ClassResponse, error) {
	class, err := s.guard.RequireOwner(ctx, p, classID)
	if err != nil {
		return nil, err
	}

	ve := &pkgerrors.ValidationError{}
	code := strings.TrimSpace(req.ClassCode)
	if code != class.ClassCode {
		if err := s.checkCodeFree(ctx, code, class.ClassID, ve); err != nil {
			return nil, err
		}
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	class.ClassName = strings.TrimSpace(req.ClassName)
	class.ClassCode = code
	class.Description = strings.TrimSpace(req.Description)
	class.AcademicYear = strings.TrimSpace(req.AcademicYear)
	class.Semester = strings.TrimSpace(req.Semester)
	class.MaxStudents = req.MaxStudents
	class.UpdatedAt = s.now()

	if err := s.repo.Class.Update(ctx, class); err != nil {
		if errors.Is(err, pkgerrors.ErrConstraintViolation) {
			ve.Add("class_code", "班级代码已存在")
			return nil, ve
		}
		s.logger.Error("更新班级失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}

	resp := toClassResponse(class)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

// Delete 教师删除班级：停用而非物理删除
func (s *classService) Delete(ctx context.Context, p *Principal, classID string) error {
	if _, err := s.guard.RequireOwner(ctx, p, classID); err != nil {
		return err
	}
	return s.SetActive(ctx, classID, false)
}

// ────────────────────── SetActive ──────────────────────

func (s *classService) SetActive(ctx context.Context, classID string, active bool) error {
	if err := s.repo.Class.SetStatus(ctx, classID, model.StatusOf(active), s.now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassNotFound
		}
		s.logger.Error("修改班级状态失败", zap.String("class_id", classID), zap.Bool("active", active), zap.Error(err))
		return err
	}
	s.logger.Info("班级状态已变更", zap.String("class_id", classID), zap.Bool("active", active))
	return nil
}

// ────────────────────── List ──────────────────────

func (s *classService) List(ctx context.Context, req *dto.ClassListRequest) ([]dto.ClassResponse, int64, error) {
	classes, total, err := s.repo.Class.List(ctx, repository.ClassFilter{
		Keyword: req.Keyword,
		Status:  model.Status(req.Status),
	}, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询班级列表失败", zap.Error(err))
		return nil, 0, err
	}
	list := make([]dto.ClassResponse, 0, len(classes))
	for i := range classes {
		list = append(list, toClassResponse(&classes[i]))
	}
	return list, total, nil
}

// ────────────────────── Roster ──────────────────────

func (s *classService) Roster(ctx context.Context, p *Principal, classID string) ([]dto.RosterEntry, error) {
	if _, err := s.guard.RequireOwner(ctx, p, classID); err != nil {
		return nil, err
	}
	return s.roster(ctx, classID)
}

func (s *classService) roster(ctx context.Context, classID string) ([]dto.RosterEntry, error) {
	enrollments, err := s.repo.Enrollment.ListByClass(ctx, classID)
	if err != nil {
		s.logger.Error("查询班级学生失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}
	list := make([]dto.RosterEntry, 0, len(enrollments))
	for _, e := range enrollments {
		entry := dto.RosterEntry{
			StudentID:  e.StudentID,
			Status:     string(e.Status),
			EnrolledAt: formatTime(e.EnrolledAt),
			Grade:      e.Grade,
		}
		if e.Student != nil {
			entry.FullName = e.Student.FullName
			entry.Email = e.Student.Email
			entry.PhoneNumber = e.Student.PhoneNumber
		}
		list = append(list, entry)
	}
	return list, nil
}

// ────────────────────── ExportRoster ──────────────────────

// ExportRoster 导出班级花名册为 Excel
func (s *classService) ExportRoster(ctx context.Context, p *Principal, classID string) (*ExportedFile, error) {
	class, err := s.guard.RequireOwner(ctx, p, classID)
	if err != nil {
		return nil, err
	}
	entries, err := s.roster(ctx, classID)
	if err != nil {
		return nil, err
	}

	data, err := renderRosterWorkbook(class, entries)
	if err != nil {
		s.logger.Error("生成花名册 Excel 失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}

	return &ExportedFile{
		FileName: fmt.Sprintf("%s_students_%s.xlsx", class.ClassCode, s.now().In(s.loc).Format("20060102")),
		Data:     data,
	}, nil
}
