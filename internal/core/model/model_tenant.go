package model

import "time"

// Tenant is a platform-scoped customer workspace. All business data is
// partitioned by its internal id.
type Tenant struct {
	BaseModel
	Name         string     `gorm:"column:name;not null" json:"name"`
	Domain       string     `gorm:"column:domain;not null;uniqueIndex" json:"domain"`
	Status       string     `gorm:"column:status;not null;default:inactive" json:"status"`
	Plan         string     `gorm:"column:plan;not null;default:trial" json:"plan"`
	MaxUsers     int        `gorm:"column:max_users;default:10" json:"maxUsers"`
	MaxStorageMB int        `gorm:"column:max_storage_mb;default:1024" json:"maxStorageMb"`
	ExpiresAt    *time.Time `gorm:"column:expires_at" json:"expiresAt"`
}

func (Tenant) TableName() string {
	return "core_tenants"
}

const (
	TenantStatusInactive  = "inactive"
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
	TenantStatusExpired   = "expired"
)

const (
	TenantPlanTrial        = "trial"
	TenantPlanBasic        = "basic"
	TenantPlanProfessional = "professional"
	TenantPlanEnterprise   = "enterprise"
)

// CreateTenantReq is the superadmin request for creating a tenant.
type CreateTenantReq struct {
	Name         string     `json:"name"`
	Domain       string     `json:"domain"`
	Plan         string     `json:"plan"`
	MaxUsers     int        `json:"maxUsers"`
	MaxStorageMB int        `json:"maxStorageMb"`
	ExpiresAt    *time.Time `json:"expiresAt"`
}

// UpdateTenantReq updates mutable tenant fields.
type UpdateTenantReq struct {
	Name         *string    `json:"name,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Plan         *string    `json:"plan,omitempty"`
	MaxUsers     *int       `json:"maxUsers,omitempty"`
	MaxStorageMB *int       `json:"maxStorageMb,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}
