package dto

// ── 考勤模块 DTO ──

// PunchRequest 本人打卡 / 报告请求
type PunchRequest struct {
	EventType string `json:"event_type" binding:"required,oneof=WAKE_UP DEPARTURE CLOCK_IN CLOCK_OUT"`
}

// ForceClockRequest 管理员代打卡请求
type ForceClockRequest struct {
	UserID    string `json:"user_id"    binding:"required,uuid"`
	Date      string `json:"date"       binding:"required"`
	EventType string `json:"event_type" binding:"required,oneof=WAKE_UP DEPARTURE CLOCK_IN CLOCK_OUT"`
	EventAt   string `json:"event_at"   binding:"required"` // RFC3339
}

// CorrectEventRequest 修正打卡时间请求（审计仅追加）
type CorrectEventRequest struct {
	EventID string `json:"event_id" binding:"required,uuid"`
	NewAt   string `json:"new_at"   binding:"required"` // RFC3339
	Reason  string `json:"reason"   binding:"omitempty,max=500"`
}

// AttendanceEventResponse 考勤事件响应
type AttendanceEventResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Date      string `json:"date"`
	EventType string `json:"event_type"`
	EventAt   string `json:"event_at"`
}

// CorrectionResponse 修正审计响应
type CorrectionResponse struct {
	ID         string `json:"id"`
	EventID    string `json:"event_id"`
	OldEventAt string `json:"old_event_at"`
	NewEventAt string `json:"new_event_at"`
	ApproverID string `json:"approver_id"`
	Reason     string `json:"reason"`
	CreatedAt  string `json:"created_at"`
}

// ReconciledDayResponse 对账后的单日记录
// IsLate / IsAbsent 为三态：无班次的日子不评定，输出 null
type ReconciledDayResponse struct {
	Date          string         `json:"date"`
	Shift         *ShiftResponse `json:"shift,omitempty"`
	WakeUpAt      *string        `json:"wake_up_at,omitempty"`
	DepartureAt   *string        `json:"departure_at,omitempty"`
	ClockInAt     *string        `json:"clock_in_at,omitempty"`
	ClockOutAt    *string        `json:"clock_out_at,omitempty"`
	WorkedMinutes int            `json:"worked_minutes"`
	IsLate        *bool          `json:"is_late,omitempty"`
	IsAbsent      *bool          `json:"is_absent,omitempty"`
}

// AttendanceTotalsResponse 月度聚合
type AttendanceTotalsResponse struct {
	WorkedMinutes     int    `json:"worked_minutes"`
	WorkedTimeText    string `json:"worked_time_text"` // "H:MM"
	WorkDays          int    `json:"work_days"`
	LateCount         int    `json:"late_count"`
	AbsentDays        int    `json:"absent_days"`
	ScheduledDays     int    `json:"scheduled_days"`
}

// MonthlyAttendanceResponse 单用户月度视图
type MonthlyAttendanceResponse struct {
	UserID   string                   `json:"user_id"`
	UserName string                   `json:"user_name,omitempty"`
	Year     int                      `json:"year"`
	Month    int                      `json:"month"`
	Days     []ReconciledDayResponse  `json:"days"`
	Totals   AttendanceTotalsResponse `json:"totals"`
	Warnings []string                 `json:"warnings,omitempty"` // 数据异常旁路通道
}

// TeamMonthlySummaryResponse 团队月度汇总（操作者可见范围内的所有用户）
type TeamMonthlySummaryResponse struct {
	Year    int                         `json:"year"`
	Month   int                         `json:"month"`
	Members []MonthlyAttendanceResponse `json:"members"`
}
