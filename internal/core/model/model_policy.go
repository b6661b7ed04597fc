package model

import "gorm.io/datatypes"

// AccessPolicy is a prioritized allow/deny rule for a (resource, action)
// target. Condition holds the JSON predicate, validated at write time.
// Smaller priority wins.
type AccessPolicy struct {
	TenantModel
	Name           string         `gorm:"column:name;not null" json:"name"`
	Effect         string         `gorm:"column:effect;not null" json:"effect"`
	Priority       int            `gorm:"column:priority;not null;default:100" json:"priority"`
	TargetResource string         `gorm:"column:target_resource;not null" json:"targetResource"`
	TargetAction   string         `gorm:"column:target_action;not null" json:"targetAction"`
	Condition      datatypes.JSON `gorm:"column:condition" json:"condition,omitempty"`
	Enabled        int            `gorm:"column:enabled;not null;default:1" json:"enabled"`
}

func (AccessPolicy) TableName() string {
	return "core_access_policies"
}

const (
	PolicyEffectAllow = "allow"
	PolicyEffectDeny  = "deny"

	// TargetWildcard matches any resource or action.
	TargetWildcard = "*"
)

// PolicyBinding attaches a policy to a subject.
type PolicyBinding struct {
	TenantModel
	PolicyId    uint64 `gorm:"column:policy_id;not null;index" json:"-"`
	SubjectType string `gorm:"column:subject_type;not null" json:"subjectType"`
	SubjectId   uint64 `gorm:"column:subject_id;not null;default:0" json:"-"`
}

func (PolicyBinding) TableName() string {
	return "core_policy_bindings"
}

const (
	SubjectUser   = "user"
	SubjectRole   = "role"
	SubjectTenant = "tenant"
	SubjectGroup  = "group"
)

// Group is a named collection of users used as a policy subject.
type Group struct {
	TenantModel
	Code string `gorm:"column:code;not null;index" json:"code"`
	Name string `gorm:"column:name;not null" json:"name"`
}

func (Group) TableName() string {
	return "core_groups"
}

// GroupMember relates users to groups.
type GroupMember struct {
	TenantModel
	GroupId uint64 `gorm:"column:group_id;not null;index" json:"-"`
	UserId  uint64 `gorm:"column:user_id;not null;index" json:"-"`
}

func (GroupMember) TableName() string {
	return "core_group_members"
}

// CreatePolicyReq creates a policy with optional bindings.
type CreatePolicyReq struct {
	Name           string          `json:"name"`
	Effect         string          `json:"effect"`
	Priority       int             `json:"priority"`
	TargetResource string          `json:"targetResource"`
	TargetAction   string          `json:"targetAction"`
	Condition      map[string]any  `json:"condition,omitempty"`
	Enabled        *int            `json:"enabled,omitempty"`
	Bindings       []BindSubjectTo `json:"bindings,omitempty"`
}

// BindSubjectTo names one subject to attach a policy to. SubjectId is the
// subject's external id (the group code for group bindings); empty for
// tenant-wide bindings.
type BindSubjectTo struct {
	SubjectType string `json:"subjectType"`
	SubjectId   string `json:"subjectId,omitempty"`
}

// CreateGroupReq creates a user group usable as a policy binding subject.
type CreateGroupReq struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// AddGroupMemberReq adds a user to a group.
type AddGroupMemberReq struct {
	UserId string `json:"userId"`
}

// PolicyResp is the external policy payload.
type PolicyResp struct {
	PolicyId       string         `json:"policyId"`
	Name           string         `json:"name"`
	Effect         string         `json:"effect"`
	Priority       int            `json:"priority"`
	TargetResource string         `json:"targetResource"`
	TargetAction   string         `json:"targetAction"`
	Condition      map[string]any `json:"condition,omitempty"`
	Enabled        int            `json:"enabled"`
}
