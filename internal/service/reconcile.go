package service

import (
	"fmt"
	"sort"
	"time"

	"staffhub/backend/internal/model"
)

// ── 考勤对账 ──
//
// 设计说明：
//   - Reconcile 是纯函数：输入为某区间的班次集、考勤事件集与当前时刻，
//     输出逐日对账记录与聚合计数。幂等，不触达任何仓储。
//   - 上游唯一约束保证同 (用户, 日期, 类型) 至多一条事件；
//     若约束被打破（打卡与修正竞争产生重复），对账不崩溃：
//     确定性地取时间戳最早的一条，并经 Warnings 旁路上报异常。
//   - 日记录按日期非降序输出，保证快照与测试的稳定性。

// ReconciledDay 单日对账记录（派生值，不落库）
// IsLate / IsAbsent 为三态指针：nil 表示未评定
// （无班次的日子不评定迟到与缺勤；当日未到判定时刻的缺勤同样悬置）
type ReconciledDay struct {
	Date          time.Time
	Shift         *model.Shift
	WakeUpAt      *time.Time
	DepartureAt   *time.Time
	ClockInAt     *time.Time
	ClockOutAt    *time.Time
	WorkedMinutes int
	IsLate        *bool
	IsAbsent      *bool
}

// AttendanceTotals 区间聚合计数
type AttendanceTotals struct {
	WorkedMinutes int // 实働分钟合计
	WorkDays      int // 上下班打卡齐全的天数
	LateCount     int // 迟到次数
	AbsentDays    int // 缺勤天数
	ScheduledDays int // 区间内有班次的天数
}

// ReconcileResult 对账输出
type ReconcileResult struct {
	Days     []ReconciledDay
	Totals   AttendanceTotals
	Warnings []string // 数据异常旁路通道，不中断整月视图
}

// absenceJudgeDelay 当日缺勤判定的缓冲：班次结束后 1 小时仍无上班打卡才判缺勤
const absenceJudgeDelay = time.Hour

// Reconcile 将班次与考勤事件配对为逐日记录与聚合
//
// 规则：
//   - 实働分钟 = max(0, (下班 − 上班) − 休息)；休息取班次值，无班次时取 defaultBreakMinutes。
//   - 迟到仅在班次与上班打卡同时存在时评定：clockIn > 班次开始 ⇒ 迟到。
//   - 缺勤仅对有班次的日期评定，按日期顺序三支判定：
//     未来日期跳过；当日在 班次结束+1小时 之前悬置、之后无上班打卡判缺勤；
//     过去日期无上班打卡即缺勤（只有下班打卡视同无打卡——数据异常不在对账职权内修复）。
func Reconcile(shifts []model.Shift, events []model.AttendanceEvent, now time.Time, defaultBreakMinutes int) ReconcileResult {
	result := ReconcileResult{}

	type dayBucket struct {
		shift  *model.Shift
		byType map[string]*model.AttendanceEvent
	}
	buckets := make(map[string]*dayBucket)

	bucketOf := func(key string) *dayBucket {
		b, ok := buckets[key]
		if !ok {
			b = &dayBucket{byType: make(map[string]*model.AttendanceEvent)}
			buckets[key] = b
		}
		return b
	}

	// 1. 以有班次的日期为种子
	for i := range shifts {
		s := &shifts[i]
		key := s.ShiftDate.Format("2006-01-02")
		b := bucketOf(key)
		if b.shift != nil {
			// 唯一不变量被上游打破：保留先到的一条
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: 同日存在多条班次，仅采用其一", key))
			continue
		}
		b.shift = s
	}

	// 2. 合并事件；仅有事件无班次的日期也生成记录（无班次打卡）
	for i := range events {
		e := &events[i]
		key := e.EventDate.Format("2006-01-02")
		b := bucketOf(key)
		if prev, ok := b.byType[e.EventType]; ok {
			// 同类型重复：确定性取最早时间戳，经旁路上报
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: %s 事件重复，采用最早时间戳", key, e.EventType))
			if e.EventAt.Before(prev.EventAt) {
				b.byType[e.EventType] = e
			}
			continue
		}
		b.byType[e.EventType] = e
	}

	// 3. 日期升序展开
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	today := civilDate(now)

	for _, key := range keys {
		b := buckets[key]
		day, _ := time.ParseInLocation("2006-01-02", key, now.Location())

		rec := ReconciledDay{Date: day, Shift: b.shift}
		rec.WakeUpAt = eventAt(b.byType, model.EventTypeWakeUp)
		rec.DepartureAt = eventAt(b.byType, model.EventTypeDeparture)
		rec.ClockInAt = eventAt(b.byType, model.EventTypeClockIn)
		rec.ClockOutAt = eventAt(b.byType, model.EventTypeClockOut)

		// 实働分钟
		if rec.ClockInAt != nil && rec.ClockOutAt != nil {
			breakMinutes := defaultBreakMinutes
			if b.shift != nil {
				breakMinutes = b.shift.BreakMinutes
			}
			worked := int(rec.ClockOutAt.Sub(*rec.ClockInAt).Minutes()) - breakMinutes
			if worked < 0 {
				worked = 0
			}
			rec.WorkedMinutes = worked
		}

		// 迟到：班次与上班打卡齐备才评定
		if b.shift != nil && rec.ClockInAt != nil {
			late := rec.ClockInAt.After(b.shift.StartTime)
			rec.IsLate = &late
		}

		// 缺勤：仅评定有班次的日期
		if b.shift != nil {
			switch {
			case day.After(today):
				// 未来日期不评定
			case day.Equal(today):
				threshold := b.shift.EndTime.Add(absenceJudgeDelay)
				if !now.Before(threshold) {
					absent := rec.ClockInAt == nil
					rec.IsAbsent = &absent
				}
			default:
				absent := rec.ClockInAt == nil
				rec.IsAbsent = &absent
			}
		}

		// 聚合
		if b.shift != nil {
			result.Totals.ScheduledDays++
		}
		if rec.ClockInAt != nil && rec.ClockOutAt != nil {
			result.Totals.WorkDays++
			result.Totals.WorkedMinutes += rec.WorkedMinutes
		}
		if rec.IsLate != nil && *rec.IsLate {
			result.Totals.LateCount++
		}
		if rec.IsAbsent != nil && *rec.IsAbsent {
			result.Totals.AbsentDays++
		}

		result.Days = append(result.Days, rec)
	}

	return result
}

// FormatWorkedTime 将分钟数格式化为 "H:MM" 文本
func FormatWorkedTime(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}

// civilDate 取时刻所在时区的日历日（零点）
func civilDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// eventAt 取某类型事件的时间戳指针
func eventAt(byType map[string]*model.AttendanceEvent, eventType string) *time.Time {
	if e, ok := byType[eventType]; ok {
		at := e.EventAt
		return &at
	}
	return nil
}
