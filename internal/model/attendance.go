package model

import "time"

// 考勤事件类型
const (
	EventTypeWakeUp    = "WAKE_UP"   // 起床报告
	EventTypeDeparture = "DEPARTURE" // 出发报告
	EventTypeClockIn   = "CLOCK_IN"  // 上班打卡
	EventTypeClockOut  = "CLOCK_OUT" // 下班打卡
)

// AttendanceEvent 考勤事件表 — 对应 attendance_events
// 不变量：同一用户同一日期同一类型至多一条；修正流程改写 EventAt 而非插入重复行
type AttendanceEvent struct {
	EventID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"event_id"`
	UserID    string    `gorm:"type:uuid;not null"                             json:"user_id"`
	EventDate time.Time `gorm:"type:date;not null;column:event_date"           json:"event_date"`
	EventType string    `gorm:"type:varchar(20);not null;column:event_type"    json:"event_type"`
	EventAt   time.Time `gorm:"not null;column:event_at"                       json:"event_at"`
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (AttendanceEvent) TableName() string { return "attendance_events" }

// AttendanceCorrection 考勤修正审计表 — 对应 attendance_corrections（仅追加）
type AttendanceCorrection struct {
	CorrectionID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"correction_id"`
	EventID      string    `gorm:"type:uuid;not null"                             json:"event_id"`
	OldEventAt   time.Time `gorm:"not null"                                       json:"old_event_at"`
	NewEventAt   time.Time `gorm:"not null"                                       json:"new_event_at"`
	ApproverID   string    `gorm:"type:uuid;not null"                             json:"approver_id"`
	Reason       string    `gorm:"type:varchar(500);not null;default:''"          json:"reason"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AttendanceCorrection) TableName() string { return "attendance_corrections" }
