package dto

// ── 系统设置模块 DTO ──

// UpdateSettingsRequest 更新系统设置请求
type UpdateSettingsRequest struct {
	RegistrationDeadlineDay *int `json:"registration_deadline_day" binding:"omitempty,min=1,max=31"`
}

// SettingsResponse 系统设置响应
type SettingsResponse struct {
	RegistrationDeadlineDay int    `json:"registration_deadline_day"`
	UpdatedAt               string `json:"updated_at"`
}
