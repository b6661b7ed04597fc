package model

// Permission is a grantable capability, code convention "resource:action".
// Tenant-scoped; platform operations use tenant_id = 0 rows.
type Permission struct {
	TenantModel
	Code     string `gorm:"column:code;not null;index" json:"code"`
	Resource string `gorm:"column:resource;not null" json:"resource"`
	Action   string `gorm:"column:action;not null" json:"action"`
}

func (Permission) TableName() string {
	return "core_permissions"
}

// PermissionVersion is the per-tenant (and optionally per-user) counter used
// to invalidate cached authorization state. user_id = 0 is the tenant-wide
// sentinel. uk(tenant_id, user_id).
type PermissionVersion struct {
	ID       uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	TenantId uint64 `gorm:"column:tenant_id;not null;index"`
	UserId   uint64 `gorm:"column:user_id;not null;default:0"`
	Version  uint64 `gorm:"column:version;not null;default:0"`
}

func (PermissionVersion) TableName() string {
	return "core_permission_versions"
}

// TenantWideVersion is the sentinel user id for tenant-wide version bumps.
const TenantWideVersion uint64 = 0

// CreatePermissionReq creates a permission definition.
type CreatePermissionReq struct {
	Code     string `json:"code"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// PermissionResp is the external permission payload.
type PermissionResp struct {
	PermissionId string `json:"permissionId"`
	Code         string `json:"code"`
	Resource     string `json:"resource"`
	Action       string `json:"action"`
}
