package model

// PlatformSuperAdmin is the single platform-scoped principal. The singleton
// column is a constant 1 with a unique index, so the at-most-one rule holds
// at the database level as well as in the create path.
type PlatformSuperAdmin struct {
	BaseModel
	Username  string `gorm:"column:username;not null;uniqueIndex" json:"username"`
	Password  string `gorm:"column:password;not null" json:"-"`
	IsActive  int    `gorm:"column:is_active;not null;default:1" json:"isActive"`
	Singleton int    `gorm:"column:singleton;not null;default:1;uniqueIndex" json:"-"`
}

func (PlatformSuperAdmin) TableName() string {
	return "core_platform_superadmins"
}

// SuperAdminLoginReq is the platform-superadmin login payload.
type SuperAdminLoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
