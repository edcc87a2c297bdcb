package dto

// ── 班次模块 DTO ──
//
// 日期统一使用 "2006-01-02"，时刻使用 "15:04"（业务统一时区）。
// Handler 层只做绑定，格式解析与校验在 Service 层完成，
// 保证核心判定函数永远不会收到畸形时间值。

// ShiftItemRequest 单条班次内容
type ShiftItemRequest struct {
	UserID       string `json:"user_id"       binding:"omitempty,uuid"` // 省略时为操作者本人
	Date         string `json:"date"          binding:"required"`
	StartTime    string `json:"start_time"    binding:"required"`
	EndTime      string `json:"end_time"      binding:"required"`
	BreakMinutes *int   `json:"break_minutes" binding:"omitempty,min=0,max=480"`
	ShiftType    string `json:"shift_type"    binding:"omitempty,oneof=REGULAR SPOT"`
	Location     string `json:"location"      binding:"omitempty,max=200"`
}

// BatchCreateShiftRequest 批量登记请求（单事务）
type BatchCreateShiftRequest struct {
	Shifts []ShiftItemRequest `json:"shifts" binding:"required,min=1,max=62,dive"`
}

// UpdateShiftRequest 更新班次请求
type UpdateShiftRequest struct {
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
	BreakMinutes *int    `json:"break_minutes" binding:"omitempty,min=0,max=480"`
	ShiftType    *string `json:"shift_type"    binding:"omitempty,oneof=REGULAR SPOT"`
	Location     *string `json:"location"      binding:"omitempty,max=200"`
}

// BulkShiftIDsRequest 批量删除 / 批量操作的目标集合
type BulkShiftIDsRequest struct {
	ShiftIDs []string `json:"shift_ids" binding:"required,min=1,dive,uuid"`
}

// BulkUpdateShiftItem 批量更新的单条目标与变更内容
type BulkUpdateShiftItem struct {
	ID string `json:"id" binding:"required,uuid"`
	UpdateShiftRequest
}

// BulkUpdateShiftRequest 批量更新请求（逐条原子，允许部分成功）
type BulkUpdateShiftRequest struct {
	Shifts []BulkUpdateShiftItem `json:"shifts" binding:"required,min=1,max=62,dive"`
}

// ShiftResponse 班次响应
type ShiftResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name,omitempty"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	BreakMinutes int    `json:"break_minutes"`
	ShiftType    string `json:"shift_type"`
	Location     string `json:"location"`
	Status       string `json:"status"`
}

// ShiftBatchItemResult 批量操作的单条结果
// 整批在一个事务内执行写入；被过滤 / 被拒绝的条目逐条报告原因
type ShiftBatchItemResult struct {
	Index  int    `json:"index"`            // 请求中的下标
	Date   string `json:"date,omitempty"`   // 目标日期（创建场景）
	ID     string `json:"id,omitempty"`     // 目标班次（更新/删除场景）
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"` // 失败原因（机器可读码或错误消息）
}

// ShiftBatchResponse 批量操作汇总
type ShiftBatchResponse struct {
	SucceededCount int                    `json:"succeeded_count"`
	FailedCount    int                    `json:"failed_count"`
	Results        []ShiftBatchItemResult `json:"results"`
	Shifts         []ShiftResponse        `json:"shifts,omitempty"` // 创建 / 更新成功的班次
}

// UnlockRegistrationRequest 管理员发放解锁覆盖请求
type UnlockRegistrationRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Year   int    `json:"year"    binding:"required,min=2000,max=2100"`
	Month  int    `json:"month"   binding:"required,min=1,max=12"`
}

// UnlockRegistrationResponse 解锁覆盖响应
type UnlockRegistrationResponse struct {
	UserID     string `json:"user_id"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	IsUnlocked bool   `json:"is_unlocked"`
	UnlockedAt string `json:"unlocked_at"`
	ExpiresAt  string `json:"expires_at"` // 解锁自动失效时刻（发放后 1 小时）
}

// RegistrationWindowResponse 登记窗口查询响应
type RegistrationWindowResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"` // DEADLINE_PASSED | UNLOCK_EXPIRED | UNLOCK_WRONG_MONTH
}
