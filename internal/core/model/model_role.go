package model

// Role is tenant-scoped; code is unique within the tenant: uk(tenant_id, code).
type Role struct {
	TenantModel
	Code string `gorm:"column:code;not null;index" json:"code"`
	Name string `gorm:"column:name;not null" json:"name"`
}

func (Role) TableName() string {
	return "core_roles"
}

// RolePermission is the role-to-permission grant relation.
type RolePermission struct {
	TenantModel
	RoleId       uint64 `gorm:"column:role_id;not null;index" json:"-"`
	PermissionId uint64 `gorm:"column:permission_id;not null;index" json:"-"`
}

func (RolePermission) TableName() string {
	return "core_role_permissions"
}

// UserRole assigns a role to a user within the tenant.
type UserRole struct {
	TenantModel
	UserId uint64 `gorm:"column:user_id;not null;index" json:"-"`
	RoleId uint64 `gorm:"column:role_id;not null;index" json:"-"`
}

func (UserRole) TableName() string {
	return "core_user_roles"
}

// CreateRoleReq creates a role.
type CreateRoleReq struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// UpdateRoleReq updates mutable role fields.
type UpdateRoleReq struct {
	Name *string `json:"name,omitempty"`
}

// RoleResp is the external role payload.
type RoleResp struct {
	RoleId string `json:"roleId"`
	Code   string `json:"code"`
	Name   string `json:"name"`
}
