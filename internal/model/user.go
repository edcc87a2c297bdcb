package model

// Company 合作企业表 — 对应 companies
type Company struct {
	CompanyID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"company_id"`
	Name      string `gorm:"type:varchar(200);not null"                     json:"name"`
	BaseModel
}

// TableName 指定表名
func (Company) TableName() string { return "companies" }

// User 用户表 — 对应 users
// CompanyID 为 NULL 表示内勤员工；担当关系经由 user_managers 多对多维护
type User struct {
	UserID           string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name             string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Email            string  `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	PasswordHash     string  `gorm:"type:varchar(255);not null"                     json:"-"`
	RoleID           string  `gorm:"type:uuid;not null"                             json:"role_id"`
	CompanyID        *string `gorm:"type:uuid"                                      json:"company_id,omitempty"`
	WakeUpEnabled    bool    `gorm:"not null;default:false"                         json:"wake_up_enabled"`
	DepartureEnabled bool    `gorm:"not null;default:false"                         json:"departure_enabled"`
	DefaultLocation  string  `gorm:"type:varchar(200);not null;default:''"          json:"default_location"`
	SoftDeleteModel

	// 关联
	Role     *Role    `gorm:"foreignKey:RoleID;references:RoleID"          json:"role,omitempty"`
	Company  *Company `gorm:"foreignKey:CompanyID;references:CompanyID"    json:"company,omitempty"`
	Managers []User   `gorm:"many2many:user_managers;foreignKey:UserID;joinForeignKey:UserID;References:UserID;joinReferences:ManagerID" json:"managers,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }
