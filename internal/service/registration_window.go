package service

import (
	"fmt"
	"time"

	"staffhub/backend/internal/model"
)

// ── 登记窗口判定 ──
//
// 设计说明：
//   - 判定函数是五元输入（目标日期、当前时刻、截止日、解锁记录、——）的纯函数：
//     相同输入必得相同输出。唯一的状态变更（解锁过期后的自动回锁）
//     被隔离到 LockRepository.ExpireIfDue，由调用方按 NeedsRelock 标志执行。
//   - forceRegister 能力的绕过由调用方（ShiftService）施加，
//     判定函数自身对能力一无所知，保持能力无关。

// DenialReason 登记被拒的机器可读原因
type DenialReason string

const (
	DenialDeadlinePassed   DenialReason = "DEADLINE_PASSED"    // 截止日已过且无有效解锁
	DenialUnlockExpired    DenialReason = "UNLOCK_EXPIRED"     // 解锁覆盖已过 1 小时有效期
	DenialUnlockWrongMonth DenialReason = "UNLOCK_WRONG_MONTH" // 解锁仅对当前日历月有效
)

// WindowDecision 登记窗口判定结果
type WindowDecision struct {
	Allowed bool
	Reason  DenialReason // 仅 Allowed=false 时有值
	// NeedsRelock 为 true 表示解锁已过有效期，
	// 调用方应执行 LockRepository.ExpireIfDue（幂等）后再返回拒绝
	NeedsRelock bool
}

// RegistrationDeniedError 登记被拒的类型化错误，原因原样透传给 UI 层
type RegistrationDeniedError struct {
	Reason DenialReason
}

func (e *RegistrationDeniedError) Error() string {
	return fmt.Sprintf("班次登记被拒绝: %s", e.Reason)
}

// EvaluateRegistrationWindow 判定目标日期当前是否可登记/修改班次
//
// 算法：
//  1. 截止时刻 = 目标月份截止日的 23:59:59（截止日超出短月时收敛到该月最后一天）。
//     now 未超过截止时刻 ⇒ 允许。
//  2. 无解锁记录或 is_unlocked=false ⇒ 拒绝 DEADLINE_PASSED。
//  3. 解锁已过有效期（发放后 1 小时）⇒ 拒绝 UNLOCK_EXPIRED 并要求回锁。
//     有效性每次调用都以 now 重新判定，不信任过期的 is_unlocked。
//  4. 解锁仅对 now 所在日历月有效；目标月份不同 ⇒ 拒绝 UNLOCK_WRONG_MONTH。
//  5. 其余情况允许——包括早于 now 的过去日期（解锁期内唯一允许补登过去日期的场景）。
func EvaluateRegistrationWindow(targetDate, now time.Time, deadlineDay int, lock *model.ShiftRegistrationLock) WindowDecision {
	deadline := registrationDeadline(targetDate, deadlineDay)
	if !now.After(deadline) {
		return WindowDecision{Allowed: true}
	}

	if lock == nil || !lock.IsUnlocked {
		return WindowDecision{Allowed: false, Reason: DenialDeadlinePassed}
	}

	if lock.IsExpired(now) {
		return WindowDecision{Allowed: false, Reason: DenialUnlockExpired, NeedsRelock: true}
	}

	if targetDate.Year() != now.Year() || targetDate.Month() != now.Month() {
		return WindowDecision{Allowed: false, Reason: DenialUnlockWrongMonth}
	}

	return WindowDecision{Allowed: true}
}

// registrationDeadline 目标月份的登记截止时刻（该月截止日的 23:59:59，本地时区）
// 截止日超出该月天数时取该月最后一天，如 31 日在 30 天的月份收敛为 30 日
func registrationDeadline(targetDate time.Time, deadlineDay int) time.Time {
	year, month := targetDate.Year(), targetDate.Month()
	loc := targetDate.Location()

	day := deadlineDay
	if last := daysInMonth(year, month, loc); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}

	return time.Date(year, month, day, 23, 59, 59, 0, loc)
}

// daysInMonth 某年某月的天数
func daysInMonth(year int, month time.Month, loc *time.Location) int {
	// 下月第 0 天即本月最后一天
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
