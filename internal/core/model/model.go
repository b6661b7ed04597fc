package model

import "time"

// BaseModel is the identity envelope shared by every persistent entity.
// ID is the internal key and never crosses the HTTP boundary; ExternalId is
// the only identifier clients see. DeletedAt is an explicit soft-delete
// column: the repo layer appends the deleted_at IS NULL predicate itself
// rather than relying on ORM query rewriting.
type BaseModel struct {
	ID         uint64     `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	ExternalId string     `gorm:"column:external_id;size:20;not null;uniqueIndex" json:"externalId"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
	DeletedAt  *time.Time `gorm:"column:deleted_at;index" json:"-"`
}

// TenantModel extends the envelope with the tenant partition key.
// Natural-key uniqueness on tenant-scoped tables is always composite with
// tenant_id, never global.
type TenantModel struct {
	BaseModel
	TenantId uint64 `gorm:"column:tenant_id;not null;index" json:"-"`
}

// enabled/installed flags follow the 0/1 convention used across tables
const (
	FlagDisabled = 0
	FlagEnabled  = 1
)
