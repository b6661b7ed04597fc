package model

// Menu is the tenant-local projection of one node of a manifest menu_tree.
// Disabling an installation flips is_active on all its menus in the same
// transaction.
type Menu struct {
	TenantModel
	ApplicationCode string `gorm:"column:application_code;not null;index" json:"applicationCode"`
	ParentId        string `gorm:"column:parent_id;index" json:"parentId"` // external id of the parent menu, empty for roots
	Title           string `gorm:"column:title;not null" json:"title"`
	Path            string `gorm:"column:path" json:"path"`
	Icon            string `gorm:"column:icon" json:"icon"`
	Permission      string `gorm:"column:permission" json:"permission"` // optional "resource:action" gate
	SortOrder       int    `gorm:"column:sort_order;default:0" json:"sortOrder"`
	IsActive        int    `gorm:"column:is_active;not null;default:1" json:"isActive"`
}

func (Menu) TableName() string {
	return "core_menus"
}

// MenuNode is the tree shape returned to clients.
type MenuNode struct {
	MenuId   string      `json:"menuId"`
	Title    string      `json:"title"`
	Path     string      `json:"path,omitempty"`
	Icon     string      `json:"icon,omitempty"`
	Children []*MenuNode `json:"children,omitempty"`
}
