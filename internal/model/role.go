package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ── 权限矩阵的封闭类型定义 ──
//
// 权限矩阵是 分类 → 能力 → 布尔值 的两层结构。
// 分类与能力均为封闭枚举：载入或更新时校验，未知名称立即报错，
// 避免拼写错误在请求处理深处被静默解析为 false。

// Category 权限分类
type Category string

const (
	CategoryShift      Category = "shift_management"      // 班次登记与变更
	CategoryAttendance Category = "attendance_management" // 考勤事件与月度视图
	CategoryUser       Category = "user_management"       // 用户资料
	CategorySettings   Category = "system_settings"       // 系统设置
)

// Capability 分类内的具名能力
type Capability string

const (
	// 范围型能力：global / company / assigned 三级视野与编辑
	CapabilityViewAll      Capability = "viewAll"
	CapabilityViewCompany  Capability = "viewCompany"
	CapabilityViewAssigned Capability = "viewAssigned"
	CapabilityEditAll      Capability = "editAll"
	CapabilityEditCompany  Capability = "editCompany"
	CapabilityEditAssigned Capability = "editAssigned"

	// 班次分类专属
	CapabilityForceRegister Capability = "forceRegister" // 绕过登记窗口
	CapabilityUnlock        Capability = "unlock"        // 发放解锁覆盖

	// 考勤分类专属
	CapabilityForceClock Capability = "forceClock" // 代打卡
	CapabilityCorrect    Capability = "correct"    // 修正打卡时间

	// 设置分类专属
	CapabilityEdit Capability = "edit"
)

// capabilitiesByCategory 每个分类允许出现的能力集合
var capabilitiesByCategory = map[Category]map[Capability]bool{
	CategoryShift: {
		CapabilityViewAll: true, CapabilityViewCompany: true, CapabilityViewAssigned: true,
		CapabilityEditAll: true, CapabilityEditCompany: true, CapabilityEditAssigned: true,
		CapabilityForceRegister: true, CapabilityUnlock: true,
	},
	CategoryAttendance: {
		CapabilityViewAll: true, CapabilityViewCompany: true, CapabilityViewAssigned: true,
		CapabilityEditAll: true, CapabilityEditCompany: true, CapabilityEditAssigned: true,
		CapabilityForceClock: true, CapabilityCorrect: true,
	},
	CategoryUser: {
		CapabilityViewAll: true, CapabilityViewCompany: true, CapabilityViewAssigned: true,
		CapabilityEditAll: true, CapabilityEditCompany: true, CapabilityEditAssigned: true,
	},
	CategorySettings: {
		CapabilityEdit: true,
	},
}

// PermissionMatrix 角色权限矩阵，持久化为 JSONB
type PermissionMatrix map[Category]map[Capability]bool

// Scan 实现 sql.Scanner：从 JSONB 反序列化
func (m *PermissionMatrix) Scan(src interface{}) error {
	if src == nil {
		*m = PermissionMatrix{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("PermissionMatrix.Scan: 不支持的类型 %T", src)
	}
	var parsed PermissionMatrix
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("PermissionMatrix.Scan: %w", err)
	}
	if err := parsed.Validate(); err != nil {
		return fmt.Errorf("PermissionMatrix.Scan: %w", err)
	}
	*m = parsed
	return nil
}

// Value 实现 driver.Valuer：序列化为 JSONB
func (m PermissionMatrix) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Validate 校验矩阵中的分类与能力名称均在封闭集合内
func (m PermissionMatrix) Validate() error {
	for cat, caps := range m {
		allowed, ok := capabilitiesByCategory[cat]
		if !ok {
			return fmt.Errorf("未知权限分类: %q", cat)
		}
		for cap := range caps {
			if !allowed[cap] {
				return fmt.Errorf("分类 %q 中存在未知能力: %q", cat, cap)
			}
		}
	}
	return nil
}

// Has 查询某分类下某能力是否开启；缺失的分类或能力视为 false
func (m PermissionMatrix) Has(cat Category, cap Capability) bool {
	caps, ok := m[cat]
	if !ok {
		return false
	}
	return caps[cap]
}

// PageAccess 角色可访问页面映射，持久化为 JSONB
// 页面渲染不在核心范围内，此处仅做存取，不做封闭校验
type PageAccess map[string]bool

// Scan 实现 sql.Scanner
func (p *PageAccess) Scan(src interface{}) error {
	if src == nil {
		*p = PageAccess{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("PageAccess.Scan: 不支持的类型 %T", src)
	}
	return json.Unmarshal(data, p)
}

// Value 实现 driver.Valuer
func (p PageAccess) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Role 角色表 — 对应 roles
type Role struct {
	RoleID           string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"role_id"`
	Name             string           `gorm:"type:varchar(100);not null;uniqueIndex"         json:"name"`
	PermissionMatrix PermissionMatrix `gorm:"type:jsonb;not null;default:'{}'"               json:"permission_matrix"`
	PageAccess       PageAccess       `gorm:"type:jsonb;not null;default:'{}'"               json:"page_access"`
	BaseModel
}

// TableName 指定表名
func (Role) TableName() string { return "roles" }
