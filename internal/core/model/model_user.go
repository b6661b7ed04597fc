package model

import "time"

// User is a tenant-scoped principal. Username is unique within the tenant:
// uk(tenant_id, username).
type User struct {
	TenantModel
	Username      string     `gorm:"column:username;not null;index" json:"username"`
	Email         string     `gorm:"column:email" json:"email"`
	Password      string     `gorm:"column:password;not null" json:"-"`
	IsTenantAdmin int        `gorm:"column:is_tenant_admin;not null;default:0" json:"isTenantAdmin"`
	LastLogin     *time.Time `gorm:"column:last_login" json:"lastLogin"`
}

func (User) TableName() string {
	return "core_users"
}

// LoginReq is the tenant-user login payload. The tenant is resolved by its
// domain before the user lookup.
type LoginReq struct {
	TenantDomain string `json:"tenantDomain"`
	Username     string `json:"username"`
	Password     string `json:"password"`
}

// LoginResp carries the minted token pair and the principal profile.
type LoginResp struct {
	UserInfo UserInfo          `json:"userInfo"`
	Token    map[string]string `json:"token"`
}

// UserInfo is the externally visible user profile.
type UserInfo struct {
	UserId        string     `json:"userId"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	IsTenantAdmin bool       `json:"isTenantAdmin"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
}

// AddUserReq creates a user within the current tenant.
type AddUserReq struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	IsTenantAdmin *int   `json:"isTenantAdmin,omitempty"`
}

// UpdateUserReq updates mutable user fields.
type UpdateUserReq struct {
	Email         *string `json:"email,omitempty"`
	IsTenantAdmin *int    `json:"isTenantAdmin,omitempty"`
}
