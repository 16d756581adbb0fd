package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/model"
	"class-portal/backend/internal/repository"
	"class-portal/backend/pkg/timeutil"
)

// dashboardDays 新用户趋势统计的天数
const dashboardDays = 30

// DashboardService 管理后台概览接口
type DashboardService interface {
	Overview(ctx context.Context) (*dto.DashboardResponse, error)
}

type dashboardService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService 创建 DashboardService 实例
func NewDashboardService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) DashboardService {
	return &dashboardService{repo: repo, loc: loc, logger: logger, now: time.Now}
}

func (s *dashboardService) Overview(ctx context.Context) (*dto.DashboardResponse, error) {
	byRole, err := s.repo.User.CountByRole(ctx)
	if err != nil {
		s.logger.Error("统计用户数失败", zap.Error(err))
		return nil, err
	}
	totalClasses, activeClasses, err := s.repo.Class.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("统计班级数失败", zap.Error(err))
		return nil, err
	}
	assignments, err := s.repo.Assignment.Count(ctx)
	if err != nil {
		s.logger.Error("统计作业数失败", zap.Error(err))
		return nil, err
	}
	submissions, err := s.repo.Submission.Count(ctx)
	if err != nil {
		s.logger.Error("统计提交数失败", zap.Error(err))
		return nil, err
	}

	today := timeutil.DateOf(s.now().In(s.loc))
	since := today.AddDate(0, 0, -(dashboardDays - 1))
	daily, err := s.repo.User.CountCreatedSince(ctx, since)
	if err != nil {
		s.logger.Error("统计新用户失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.DashboardResponse{
		TotalAdmins:      byRole[model.RoleAdmin],
		TotalTeachers:    byRole[model.RoleTeacher],
		TotalStudents:    byRole[model.RoleStudent],
		TotalClasses:     totalClasses,
		ActiveClasses:    activeClasses,
		TotalAssignments: assignments,
		TotalSubmissions: submissions,
		NewUsers:         fillDays(since, dashboardDays, daily),
	}
	for _, n := range byRole {
		resp.TotalUsers += n
	}
	return resp, nil
}

// fillDays 把按天聚合结果展开为连续日期，缺失日期计 0
func fillDays(start time.Time, days int, counts []repository.DailyCount) []dto.DailyCount {
	byDay := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDay[c.Day] = c.Count
	}
	out := make([]dto.DailyCount, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format(timeutil.DateLayout)
		out = append(out, dto.DailyCount{Date: day, Count: byDay[day]})
	}
	return out
}
