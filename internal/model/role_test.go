package model

import "testing"

func TestPermissionMatrix_Validate(t *testing.T) {
	valid := PermissionMatrix{
		CategoryShift:    {CapabilityViewAll: true, CapabilityForceRegister: true},
		CategorySettings: {CapabilityEdit: true},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("合法矩阵不应报错: %v", err)
	}

	unknownCategory := PermissionMatrix{
		"payroll_management": {CapabilityViewAll: true},
	}
	if err := unknownCategory.Validate(); err == nil {
		t.Error("未知分类应校验失败")
	}

	// forceClock 属于考勤分类，放在班次分类下应被拒
	misplacedCapability := PermissionMatrix{
		CategoryShift: {CapabilityForceClock: true},
	}
	if err := misplacedCapability.Validate(); err == nil {
		t.Error("分类外的能力名应校验失败")
	}
}

func TestPermissionMatrix_Has(t *testing.T) {
	m := PermissionMatrix{
		CategoryShift: {CapabilityViewAll: true, CapabilityEditAll: false},
	}
	if !m.Has(CategoryShift, CapabilityViewAll) {
		t.Error("显式开启的能力应为 true")
	}
	if m.Has(CategoryShift, CapabilityEditAll) {
		t.Error("显式关闭的能力应为 false")
	}
	if m.Has(CategoryShift, CapabilityUnlock) {
		t.Error("缺失的能力应视为 false")
	}
	if m.Has(CategoryUser, CapabilityViewAll) {
		t.Error("缺失的分类应视为 false")
	}
}

func TestPermissionMatrix_ScanRejectsUnknownNames(t *testing.T) {
	// 载入时即校验，拼写错误不会被静默解析为 false
	var m PermissionMatrix
	err := m.Scan([]byte(`{"shift_management":{"viewAlll":true}}`))
	if err == nil {
		t.Error("含未知能力名的 JSONB 应在 Scan 时报错")
	}
}
