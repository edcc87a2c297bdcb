package model

// DefaultRegistrationDeadlineDay 每月登记截止日的默认值
// 首次读取 system_settings 时若记录不存在，以该值懒创建；
// 并发首读竞争下后写覆盖是安全的——所有写入者写的是同一默认值
const DefaultRegistrationDeadlineDay = 3

// SystemSettings 系统设置表 — 对应 system_settings（单行强类型）
type SystemSettings struct {
	Singleton               bool `gorm:"primaryKey;default:true"            json:"-"`
	RegistrationDeadlineDay int  `gorm:"not null;default:3"                 json:"registration_deadline_day"`
	BaseModel
}

// TableName 指定表名
func (SystemSettings) TableName() string { return "system_settings" }
