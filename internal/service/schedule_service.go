package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"class-portal/backend/internal/dto"
	"class-portal/backend/internal/model"
	"class-portal/backend/internal/repository"
	"class-portal/backend/pkg/timeutil"
)

// ScheduleService 学生课表业务接口，全部为只读计算
type ScheduleService interface {
	// ResolveWeek 计算 anchor 所在周（周一开始）的课表；anchor 为 nil 表示今天
	ResolveWeek(ctx context.Context, p *Principal, anchor *time.Time) (*dto.WeeklyScheduleView, error)
	// WeekOptions 某年的周选择器
	WeekOptions(year int) []dto.WeekOption
	// ResolveMonth 计算 month 所在月每一天的课表；month 为 nil 表示本月
	ResolveMonth(ctx context.Context, p *Principal, month *time.Time) (*dto.MonthlyScheduleView, error)
	// ExportICS 导出学生全部课程为 iCalendar（每个时段一条按周重复的事件）
	ExportICS(ctx context.Context, p *Principal) (*ExportedFile, error)
}

type scheduleService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, loc: loc, logger: logger, now: time.Now}
}

func (s *scheduleService) today() time.Time {
	return timeutil.DateOf(s.now().In(s.loc))
}

// ────────────────────── ResolveWeek ──────────────────────

func (s *scheduleService) ResolveWeek(ctx context.Context, p *Principal, anchor *time.Time) (*dto.WeeklyScheduleView, error) {
	if err := p.requireRole(model.RoleStudent); err != nil {
		return nil, err
	}

	day := s.today()
	if anchor != nil {
		day = timeutil.DateOf(anchor.In(s.loc))
	}
	weekStart := timeutil.WeekStart(day)
	weekEnd := weekStart.AddDate(0, 0, 6)

	sessions, err := s.repo.ClassSession.ListForStudent(ctx, p.UserID, weekStart, weekEnd)
	if err != nil {
		s.logger.Error("查询周课表失败",
			zap.String("student_id", p.UserID), zap.String("week_start", formatDate(weekStart)), zap.Error(err))
		return nil, err
	}
	sortSessions(sessions)

	// 按星期分桶，每个时段恰好落入一个 (星期, 上午/下午) 格
	days := make([]dto.DaySchedule, 7)
	for i := range days {
		date := weekStart.AddDate(0, 0, i)
		days[i] = dto.DaySchedule{
			Date:      formatDate(date),
			DayOfWeek: timeutil.ISOWeekday(date),
			Morning:   []dto.ScheduleEntry{},
			Afternoon: []dto.ScheduleEntry{},
		}
	}
	for i := range sessions {
		sess := &sessions[i]
		if sess.DayOfWeek < 1 || sess.DayOfWeek > 7 {
			continue
		}
		d := &days[sess.DayOfWeek-1]
		if timeutil.IsMorning(sess.StartTime) {
			d.Morning = append(d.Morning, toScheduleEntry(sess))
		} else {
			d.Afternoon = append(d.Afternoon, toScheduleEntry(sess))
		}
	}

	return &dto.WeeklyScheduleView{
		WeekStart:    formatDate(weekStart),
		WeekEnd:      formatDate(weekEnd),
		Days:         days,
		SelectedWeek: formatDate(weekStart),
		Weeks:        s.WeekOptions(s.today().Year()),
	}, nil
}

// sortSessions 桶内顺序：开始时间，其次班级代码，最后时段 ID
func sortSessions(sessions []model.ClassSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := &sessions[i], &sessions[j]
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if ca, cb := classCode(a), classCode(b); ca != cb {
			return ca < cb
		}
		return a.SessionID < b.SessionID
	})
}

func classCode(s *model.ClassSession) string {
	if s.Class == nil {
		return ""
	}
	return s.Class.ClassCode
}

// ────────────────────── WeekOptions ──────────────────────

func (s *scheduleService) WeekOptions(year int) []dto.WeekOption {
	weeks := timeutil.YearWeeks(year, s.loc)
	opts := make([]dto.WeekOption, 0, len(weeks))
	for _, w := range weeks {
		opts = append(opts, dto.WeekOption{
			Index: w.Index,
			Label: w.Label(),
			Value: formatDate(w.Start),
		})
	}
	return opts
}

// ────────────────────── ResolveMonth ──────────────────────

func (s *scheduleService) ResolveMonth(ctx context.Context, p *Principal, month *time.Time) (*dto.MonthlyScheduleView, error) {
	if err := p.requireRole(model.RoleStudent); err != nil {
		return nil, err
	}

	ref := s.today()
	if month != nil {
		ref = month.In(s.loc)
	}
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, s.loc)
	last := first.AddDate(0, 1, -1)

	sessions, err := s.repo.ClassSession.ListForStudent(ctx, p.UserID, first, last)
	if err != nil {
		s.logger.Error("查询月课表失败",
			zap.String("student_id", p.UserID), zap.String("month", first.Format(timeutil.MonthLayout)), zap.Error(err))
		return nil, err
	}
	sortSessions(sessions)

	view := &dto.MonthlyScheduleView{
		Month: first.Format(timeutil.MonthLayout),
		Days:  make([]dto.MonthDay, 0, last.Day()),
	}
	for date := first; !date.After(last); date = date.AddDate(0, 0, 1) {
		dow := timeutil.ISOWeekday(date)
		day := dto.MonthDay{
			Date:      formatDate(date),
			DayOfWeek: dow,
			Sessions:  []dto.ScheduleEntry{},
		}
		// 月视图按具体日期展示，只保留当天处于有效期内的时段
		for i := range sessions {
			if sessions[i].DayOfWeek == dow && sessions[i].ActiveOn(date) {
				day.Sessions = append(day.Sessions, toScheduleEntry(&sessions[i]))
			}
		}
		view.Days = append(view.Days, day)
	}
	return view, nil
}

// ────────────────────── ExportICS ──────────────────────

const icsLocalLayout = "20060102T150405"

var (
	icsRangeStart = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	icsRangeEnd   = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
)

func (s *scheduleService) ExportICS(ctx context.Context, p *Principal) (*ExportedFile, error) {
	if err := p.requireRole(model.RoleStudent); err != nil {
		return nil, err
	}

	sessions, err := s.repo.ClassSession.ListForStudent(ctx, p.UserID, icsRangeStart, icsRangeEnd)
	if err != nil {
		s.logger.Error("查询课表失败", zap.String("student_id", p.UserID), zap.Error(err))
		return nil, err
	}
	sortSessions(sessions)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//class-portal//schedule//ZH")
	cal.SetXWRCalName("课程表")
	cal.SetXWRTimezone(s.loc.String())

	// 起止时刻按业务时区本地时间输出并带 TZID，跨夏令时后仍落在同一钟点
	tzid := &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{s.loc.String()}}
	stamp := s.now().UTC()
	for i := range sessions {
		sess := &sessions[i]
		start, end, ok := s.firstOccurrence(sess)
		if !ok {
			continue
		}

		ev := cal.AddEvent(sess.SessionID + "@class-portal")
		ev.SetDtStampTime(stamp)
		ev.SetProperty(ics.ComponentPropertyDtStart, start.Format(icsLocalLayout), tzid)
		ev.SetProperty(ics.ComponentPropertyDtEnd, end.Format(icsLocalLayout), tzid)
		summary := sess.ClassID
		if sess.Class != nil {
			summary = fmt.Sprintf("%s (%s)", sess.Class.ClassName, sess.Class.ClassCode)
		}
		ev.SetSummary(summary)
		if sess.Location != "" {
			ev.SetLocation(sess.Location)
		}
		until := time.Date(sess.EndDate.Year(), sess.EndDate.Month(), sess.EndDate.Day(), 23, 59, 59, 0, s.loc).UTC()
		ev.SetProperty(ics.ComponentPropertyRrule, "FREQ=WEEKLY;UNTIL="+until.Format("20060102T150405Z"))
	}

	return &ExportedFile{
		FileName: "schedule.ics",
		Data:     []byte(cal.Serialize()),
	}, nil
}

// firstOccurrence 有效期内第一次上课的起止时刻；有效期内没有对应星期时返回 false
func (s *scheduleService) firstOccurrence(sess *model.ClassSession) (time.Time, time.Time, bool) {
	startDate := time.Date(sess.StartDate.Year(), sess.StartDate.Month(), sess.StartDate.Day(), 0, 0, 0, 0, s.loc)
	endDate := time.Date(sess.EndDate.Year(), sess.EndDate.Month(), sess.EndDate.Day(), 0, 0, 0, 0, s.loc)

	shift := (sess.DayOfWeek - timeutil.ISOWeekday(startDate) + 7) % 7
	day := startDate.AddDate(0, 0, shift)
	if day.After(endDate) {
		return time.Time{}, time.Time{}, false
	}

	at := func(clock string) (time.Time, bool) {
		c, err := time.Parse(timeutil.ClockLayout, clock)
		if err != nil {
			return time.Time{}, false
		}
		return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), c.Second(), 0, s.loc), true
	}
	start, ok1 := at(sess.StartTime)
	end, ok2 := at(sess.EndTime)
	if !ok1 || !ok2 {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
