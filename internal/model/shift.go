package model

import "time"

// 班次类型
const (
	ShiftTypeRegular = "REGULAR" // 常规班
	ShiftTypeSpot    = "SPOT"    // 临时班
)

// 班次状态
// 审批流水线在结构上保留，但当前业务规则下登记即自动通过
const (
	ShiftStatusApproved = "approved"
)

// Shift 班次表 — 对应 shifts
// 不变量：同一用户同一日期至多一条（部分唯一索引保证，软删除行除外）
type Shift struct {
	ShiftID      string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_id"`
	UserID       string    `gorm:"type:uuid;not null"                             json:"user_id"`
	ShiftDate    time.Time `gorm:"type:date;not null;column:shift_date"           json:"shift_date"`
	StartTime    time.Time `gorm:"not null"                                       json:"start_time"`
	EndTime      time.Time `gorm:"not null"                                       json:"end_time"`
	BreakMinutes int       `gorm:"not null;default:60"                            json:"break_minutes"`
	ShiftType    string    `gorm:"type:varchar(20);not null;default:'REGULAR'"    json:"shift_type"`
	Location     string    `gorm:"type:varchar(200);not null;default:''"          json:"location"`
	Status       string    `gorm:"type:varchar(20);not null;default:'approved'"   json:"status"`
	SoftDeleteModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Shift) TableName() string { return "shifts" }
