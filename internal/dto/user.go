package dto

// ── 用户模块 DTO ──

// CompanyResponse 企业信息
type CompanyResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserResponse 用户信息（列表 / 嵌入场景）
type UserResponse struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	RoleID           string           `json:"role_id"`
	RoleName         string           `json:"role_name,omitempty"`
	Company          *CompanyResponse `json:"company,omitempty"`
	WakeUpEnabled    bool             `json:"wake_up_enabled"`
	DepartureEnabled bool             `json:"departure_enabled"`
	DefaultLocation  string           `json:"default_location"`
}

// UserDetailResponse 用户详情（含担当者）
type UserDetailResponse struct {
	UserResponse
	ManagerIDs []string `json:"manager_ids"`
}

// UpdateUserRequest 更新用户请求（字段均可选，nil 表示不修改）
type UpdateUserRequest struct {
	Name             *string   `json:"name"              binding:"omitempty,min=1,max=100"`
	CompanyID        *string   `json:"company_id"        binding:"omitempty,uuid"`
	WakeUpEnabled    *bool     `json:"wake_up_enabled"`
	DepartureEnabled *bool     `json:"departure_enabled"`
	DefaultLocation  *string   `json:"default_location"  binding:"omitempty,max=200"`
	ManagerIDs       *[]string `json:"manager_ids"       binding:"omitempty,dive,uuid"`
}
