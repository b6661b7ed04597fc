package model

import (
	"time"

	"gorm.io/datatypes"
)

// ApplicationDefinition is a platform-scoped catalog entry sourced from an
// on-disk manifest. Upserted by code at startup.
type ApplicationDefinition struct {
	BaseModel
	Code                string         `gorm:"column:code;not null;uniqueIndex" json:"code"`
	Name                string         `gorm:"column:name;not null" json:"name"`
	Version             string         `gorm:"column:version;not null" json:"version"`
	Icon                string         `gorm:"column:icon" json:"icon"`
	RoutePath           string         `gorm:"column:route_path;not null" json:"routePath"`
	EntryPoint          string         `gorm:"column:entry_point;not null" json:"entryPoint"`
	MenuTree            datatypes.JSON `gorm:"column:menu_tree" json:"menuTree,omitempty"`
	DeclaredPermissions datatypes.JSON `gorm:"column:declared_permissions" json:"declaredPermissions,omitempty"`
}

func (ApplicationDefinition) TableName() string {
	return "core_application_definitions"
}

// ApplicationInstallation binds a catalog entry to a tenant.
// uk(tenant_id, application_code).
type ApplicationInstallation struct {
	TenantModel
	ApplicationCode string    `gorm:"column:application_code;not null;index" json:"applicationCode"`
	IsInstalled     int       `gorm:"column:is_installed;not null;default:1" json:"isInstalled"`
	IsActive        int       `gorm:"column:is_active;not null;default:1" json:"isActive"`
	InstallTime     time.Time `gorm:"column:install_time" json:"installTime"`
}

func (ApplicationInstallation) TableName() string {
	return "core_application_installations"
}

// CatalogEntry is a catalog listing annotated with the current tenant's
// install state.
type CatalogEntry struct {
	ApplicationId string `json:"applicationId"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	Version       string `json:"version"`
	Icon          string `json:"icon"`
	RoutePath     string `json:"routePath"`
	IsInstalled   bool   `json:"isInstalled"`
	IsActive      bool   `json:"isActive"`
	InstallId     string `json:"installId,omitempty"`
}
