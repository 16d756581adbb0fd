// Package timeutil 提供课表计算所需的日期与时刻工具
// 日期统一以业务时区的零点表示，时刻统一为 "HH:MM:SS" 字符串
package timeutil

import (
	"errors"
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
	ClockLayout = "15:04:05"

	// Noon 上午/下午分界，开始时刻严格早于该值归入上午
	Noon = "12:00:00"

	// 单年周选择器最多展示的周数
	maxWeeksPerYear = 53
)

var ErrInvalidClock = errors.New("时间格式无效，应为 HH:MM 或 HH:MM:SS")

// ParseClock 解析 "HH:MM" 或 "HH:MM:SS"，返回规范化的 "HH:MM:SS"
// 规范化后的字符串可直接按字典序比较先后
func ParseClock(s string) (string, error) {
	for _, layout := range []string{ClockLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ClockLayout), nil
		}
	}
	return "", ErrInvalidClock
}

// IsMorning 开始时刻是否属于上午
func IsMorning(clock string) bool {
	return clock < Noon
}

// ParseDate 在指定时区解析 "YYYY-MM-DD"
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式无效，应为 YYYY-MM-DD: %w", err)
	}
	return t, nil
}

// ParseMonth 在指定时区解析 "YYYY-MM"，返回该月 1 日零点
func ParseMonth(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(MonthLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("月份格式无效，应为 YYYY-MM: %w", err)
	}
	return t, nil
}

// DateOf 截取 t 在其所属时区中的日期部分（零点）
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ISOWeekday 周一=1 … 周日=7
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// WeekStart 返回 t 所在周的周一（零点）
// 偏移量 (weekday+6)%7：周一为 0，周日为 6
func WeekStart(t time.Time) time.Time {
	d := DateOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// Week 周选择器中的一项
type Week struct {
	Index int       // 从 1 开始
	Start time.Time // 周一
	End   time.Time // 周日
}

// Label 展示文案，例如 "第 2 周 (08/01 - 14/01)"
func (w Week) Label() string {
	return fmt.Sprintf("第 %d 周 (%s - %s)", w.Index, w.Start.Format("02/01"), w.End.Format("02/01"))
}

// YearWeeks 生成某年的周列表
// 第 1 周从 1 月 1 日当天或之前的周一开始，依次排列，周一跨入下一年即停止
func YearWeeks(year int, loc *time.Location) []Week {
	first := WeekStart(time.Date(year, time.January, 1, 0, 0, 0, 0, loc))
	weeks := make([]Week, 0, maxWeeksPerYear)
	for i := 0; i < maxWeeksPerYear; i++ {
		start := first.AddDate(0, 0, 7*i)
		if start.Year() > year {
			break
		}
		weeks = append(weeks, Week{
			Index: i + 1,
			Start: start,
			End:   start.AddDate(0, 0, 6),
		})
	}
	return weeks
}

// Overlaps 闭区间 [aStart, aEnd] 与 [bStart, bEnd] 是否相交
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}
