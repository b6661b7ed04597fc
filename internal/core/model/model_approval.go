package model

import (
	"time"

	"gorm.io/datatypes"
)

// ApprovalFlow is an admin-defined flow template. At most one active flow
// per (tenant_id, entity_type, business_mode).
type ApprovalFlow struct {
	TenantModel
	FlowCode     string `gorm:"column:flow_code;not null;index" json:"flowCode"`
	Name         string `gorm:"column:name;not null" json:"name"`
	EntityType   string `gorm:"column:entity_type;not null;index" json:"entityType"`
	BusinessMode string `gorm:"column:business_mode;not null;default:''" json:"businessMode"`
	CallbackURL  string `gorm:"column:callback_url" json:"callbackUrl"`
	TaskTTLHours int    `gorm:"column:task_ttl_hours;not null;default:0" json:"taskTtlHours"`
	IsActive     int    `gorm:"column:is_active;not null;default:1" json:"isActive"`
}

func (ApprovalFlow) TableName() string {
	return "core_approval_flows"
}

// ApprovalFlowStep is one ordered step of a flow. Approvers are resolved at
// submit time from the user and role lists. Precondition is an optional
// expression over the instance payload; a step whose precondition evaluates
// false is skipped.
type ApprovalFlowStep struct {
	TenantModel
	FlowId        uint64         `gorm:"column:flow_id;not null;index" json:"-"`
	StepOrder     int            `gorm:"column:step_order;not null" json:"stepOrder"`
	Name          string         `gorm:"column:name" json:"name"`
	Mode          string         `gorm:"column:mode;not null;default:'all'" json:"mode"`
	ApproverUsers datatypes.JSON `gorm:"column:approver_users" json:"approverUsers,omitempty"`
	ApproverRoles datatypes.JSON `gorm:"column:approver_roles" json:"approverRoles,omitempty"`
	Precondition  string         `gorm:"column:precondition" json:"precondition,omitempty"`
}

func (ApprovalFlowStep) TableName() string {
	return "core_approval_flow_steps"
}

const (
	StepModeSequential = "sequential"
	StepModeAll        = "all"
	StepModeAny        = "any"
)

// ApprovalInstance is one run of a flow against a business entity.
type ApprovalInstance struct {
	TenantModel
	FlowId           uint64         `gorm:"column:flow_id;not null;index" json:"-"`
	EntityType       string         `gorm:"column:entity_type;not null;index" json:"entityType"`
	EntityExternalId string         `gorm:"column:entity_external_id;not null;index" json:"entityId"`
	SubmitterId      string         `gorm:"column:submitter_id;not null" json:"submitterId"`
	CurrentStepOrder int            `gorm:"column:current_step_order;not null;default:1" json:"currentStepOrder"`
	Status           string         `gorm:"column:status;not null;default:'in_progress'" json:"status"`
	Payload          datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	CompletionSent   int            `gorm:"column:completion_sent;not null;default:0" json:"-"`
	CompletedAt      *time.Time     `gorm:"column:completed_at" json:"completedAt,omitempty"`
}

func (ApprovalInstance) TableName() string {
	return "core_approval_instances"
}

const (
	InstanceInProgress = "in_progress"
	InstanceApproved   = "approved"
	InstanceRejected   = "rejected"
	InstanceCancelled  = "cancelled"
)

// ApprovalTask is one approver's unit of work on one step.
type ApprovalTask struct {
	TenantModel
	InstanceId uint64     `gorm:"column:instance_id;not null;index" json:"-"`
	StepOrder  int        `gorm:"column:step_order;not null" json:"stepOrder"`
	ApproverId string     `gorm:"column:approver_id;not null;index" json:"approverId"`
	Status     string     `gorm:"column:status;not null;default:'pending'" json:"status"`
	Comment    string     `gorm:"column:comment" json:"comment,omitempty"`
	DecidedAt  *time.Time `gorm:"column:decided_at" json:"decidedAt,omitempty"`
	ExpiresAt  *time.Time `gorm:"column:expires_at" json:"expiresAt,omitempty"`
}

func (ApprovalTask) TableName() string {
	return "core_approval_tasks"
}

const (
	TaskPending   = "pending"
	TaskApproved  = "approved"
	TaskRejected  = "rejected"
	TaskExpired   = "expired"
	TaskCancelled = "cancelled"
)

// ApprovalRecord is the append-only audit trail of an instance. Seq is
// strictly increasing per instance.
type ApprovalRecord struct {
	TenantModel
	InstanceId uint64 `gorm:"column:instance_id;not null;index" json:"-"`
	Seq        int    `gorm:"column:seq;not null" json:"seq"`
	StepOrder  int    `gorm:"column:step_order;not null" json:"stepOrder"`
	ApproverId string `gorm:"column:approver_id;not null" json:"approverId"`
	Result     string `gorm:"column:result;not null" json:"result"`
	Comment    string `gorm:"column:comment" json:"comment,omitempty"`
}

func (ApprovalRecord) TableName() string {
	return "core_approval_records"
}

const (
	RecordSubmitted = "submitted"
	RecordApproved  = "approved"
	RecordRejected  = "rejected"
	RecordCancelled = "cancelled"
	RecordSkipped   = "skipped"
)

// IdempotencyKey stores the outcome of a completed mutating operation so a
// retried request replays the same outcome. uk(tenant_id, operation, idem_key).
type IdempotencyKey struct {
	TenantModel
	IdemKey     string         `gorm:"column:idem_key;not null;index" json:"idemKey"`
	Operation   string         `gorm:"column:operation;not null" json:"operation"`
	PayloadHash string         `gorm:"column:payload_hash;not null" json:"-"`
	Outcome     datatypes.JSON `gorm:"column:outcome" json:"outcome,omitempty"`
}

func (IdempotencyKey) TableName() string {
	return "core_idempotency_keys"
}

// SubmitApprovalReq starts an approval instance for a business entity.
type SubmitApprovalReq struct {
	EntityType     string         `json:"entityType"`
	EntityId       string         `json:"entityId"`
	BusinessMode   string         `json:"businessMode,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	IdempotencyKey string         `json:"idempotencyKey,omitempty"`
}

// DecideTaskReq records an approver's decision on a task.
type DecideTaskReq struct {
	Result         string `json:"result"` // approve | reject (past-tense forms accepted)
	Comment        string `json:"comment,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// CreateFlowReq defines a flow and its ordered steps.
type CreateFlowReq struct {
	FlowCode     string        `json:"flowCode"`
	Name         string        `json:"name"`
	EntityType   string        `json:"entityType"`
	BusinessMode string        `json:"businessMode,omitempty"`
	CallbackURL  string        `json:"callbackUrl,omitempty"`
	TaskTTLHours int           `json:"taskTtlHours,omitempty"`
	Steps        []FlowStepReq `json:"steps"`
}

// FlowStepReq is one step definition inside CreateFlowReq.
type FlowStepReq struct {
	Name          string   `json:"name,omitempty"`
	Mode          string   `json:"mode"`
	ApproverUsers []string `json:"approverUsers,omitempty"`
	ApproverRoles []string `json:"approverRoles,omitempty"`
	Precondition  string   `json:"precondition,omitempty"`
}

// InstanceResp is the external view of an approval instance.
type InstanceResp struct {
	InstanceId       string         `json:"instanceId"`
	EntityType       string         `json:"entityType"`
	EntityId         string         `json:"entityId"`
	SubmitterId      string         `json:"submitterId"`
	CurrentStepOrder int            `json:"currentStepOrder"`
	Status           string         `json:"status"`
	Payload          map[string]any `json:"payload,omitempty"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
	Tasks            []TaskResp     `json:"tasks,omitempty"`
	Records          []RecordResp   `json:"records,omitempty"`
}

// TaskResp is the external view of one approval task.
type TaskResp struct {
	TaskId     string     `json:"taskId"`
	InstanceId string     `json:"instanceId,omitempty"`
	StepOrder  int        `json:"stepOrder"`
	ApproverId string     `json:"approverId"`
	Status     string     `json:"status"`
	Comment    string     `json:"comment,omitempty"`
	DecidedAt  *time.Time `json:"decidedAt,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// RecordResp is the external view of one audit record.
type RecordResp struct {
	Seq        int    `json:"seq"`
	StepOrder  int    `json:"stepOrder"`
	ApproverId string `json:"approverId"`
	Result     string `json:"result"`
	Comment    string `json:"comment,omitempty"`
}
