package repo

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/database"
	"github.com/riveredge/riveredge/pkg/errs"
)

// IApprovalRepository persists flows, instances, tasks and the audit trail.
// Decision handling runs inside Transaction with the instance row locked, so
// concurrent decisions on one instance serialize at the database.
type IApprovalRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error

	CreateFlow(flow *model.ApprovalFlow, steps []model.ApprovalFlowStep) error
	GetFlowByExternalId(tenantId uint64, externalId string) (*model.ApprovalFlow, error)
	GetActiveFlow(tenantId uint64, entityType, businessMode string) (*model.ApprovalFlow, error)
	ListFlows(tenantId uint64, offset, pageSize int) ([]model.ApprovalFlow, int64, error)
	GetFlowSteps(tenantId, flowId uint64) ([]model.ApprovalFlowStep, error)
	SetFlowActive(tenantId, flowId uint64, active int) error

	CreateInstance(tx *gorm.DB, inst *model.ApprovalInstance) error
	GetInstanceByExternalId(tenantId uint64, externalId string) (*model.ApprovalInstance, error)
	GetInstanceForUpdate(tx *gorm.DB, tenantId, id uint64) (*model.ApprovalInstance, error)
	UpdateInstance(tx *gorm.DB, tenantId, id uint64, fields map[string]any) error
	ListInstancesByEntity(tenantId uint64, entityType, entityExternalId string) ([]model.ApprovalInstance, error)

	CreateTasks(tx *gorm.DB, tasks []model.ApprovalTask) error
	GetTaskByExternalId(tenantId uint64, externalId string) (*model.ApprovalTask, error)
	UpdateTask(tx *gorm.DB, tenantId, id uint64, fields map[string]any) error
	TasksOfInstanceStep(tx *gorm.DB, tenantId, instanceId uint64, stepOrder int) ([]model.ApprovalTask, error)
	TasksOfInstance(tenantId, instanceId uint64) ([]model.ApprovalTask, error)
	CancelOpenTasks(tx *gorm.DB, tenantId, instanceId uint64) error
	CancelOpenStepTasks(tx *gorm.DB, tenantId, instanceId uint64, stepOrder int) error
	ListPendingTasksForApprover(tenantId uint64, approverId string, offset, pageSize int) ([]model.ApprovalTask, int64, error)
	ExpireOverdueTasks(now time.Time) ([]model.ApprovalTask, error)

	AppendRecord(tx *gorm.DB, rec *model.ApprovalRecord) error
	RecordsOfInstance(tenantId, instanceId uint64) ([]model.ApprovalRecord, error)

	GetIdempotent(tenantId uint64, operation, key string) (*model.IdempotencyKey, error)
	PutIdempotent(tx *gorm.DB, ik *model.IdempotencyKey) error

	ListUnsentCompleted(limit int) ([]model.ApprovalInstance, error)
	MarkCompletionSent(tenantId, id uint64) error
}

type ApprovalRepo struct {
	db database.IDatabase
}

func NewApprovalRepo(db database.IDatabase) IApprovalRepository {
	return &ApprovalRepo{db: db}
}

func (ar *ApprovalRepo) Transaction(fn func(tx *gorm.DB) error) error {
	return ar.db.Database().Transaction(fn)
}

// CreateFlow writes the flow and its ordered steps together. Only one
// active flow may exist per (entity_type, business_mode) within the tenant.
func (ar *ApprovalRepo) CreateFlow(flow *model.ApprovalFlow, steps []model.ApprovalFlowStep) error {
	return ar.db.Database().Transaction(func(tx *gorm.DB) error {
		var existing model.ApprovalFlow
		err := tx.Scopes(tenantScope(flow.TenantId)).
			Where("entity_type = ? AND business_mode = ? AND is_active = ?",
				flow.EntityType, flow.BusinessMode, model.FlagEnabled).
			First(&existing).Error
		if err == nil && flow.IsActive == model.FlagEnabled {
			return errs.Conflictf("an active flow already exists for %s/%s", flow.EntityType, flow.BusinessMode)
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(flow).Error; err != nil {
			return err
		}
		for i := range steps {
			steps[i].TenantId = flow.TenantId
			steps[i].FlowId = flow.ID
			if err := tx.Create(&steps[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (ar *ApprovalRepo) GetFlowByExternalId(tenantId uint64, externalId string) (*model.ApprovalFlow, error) {
	var flow model.ApprovalFlow
	err := ar.db.Database().Scopes(tenantScope(tenantId)).
		Where("external_id = ?", externalId).
		First(&flow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("flow %s not found", externalId)
	}
	return &flow, err
}

func (ar *ApprovalRepo) GetActiveFlow(tenantId uint64, entityType, businessMode string) (*model.ApprovalFlow, error) {
	var flow model.ApprovalFlow
	err := ar.db.Database().Scopes(tenantScope(tenantId)).
		Where("entity_type = ? AND business_mode = ? AND is_active = ?",
			entityType, businessMode, model.FlagEnabled).
		First(&flow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("no active flow for %s/%s", entityType, businessMode)
	}
	return &flow, err
}

func (ar *ApprovalRepo) ListFlows(tenantId uint64, offset, pageSize int) ([]model.ApprovalFlow, int64, error) {
	var flows []model.ApprovalFlow
	tx := ar.db.Database().Model(&model.ApprovalFlow{}).Scopes(tenantScope(tenantId))
	count, err := Count(tx.Session(&gorm.Session{}))
	if err != nil {
		return nil, 0, err
	}
	err = tx.Offset(offset).Limit(pageSize).
		Order("created_at DESC").
		Find(&flows).Error
	return flows, count, err
}

func (ar *ApprovalRepo) GetFlowSteps(tenantId, flowId uint64) ([]model.ApprovalFlowStep, error) {
	var steps []model.ApprovalFlowStep
	err := ar.db.Database().Scopes(tenantScope(tenantId)).
		Where("flow_id = ?", flowId).
		Order("step_order ASC").
		Find(&steps).Error
	return steps, err
}

func (ar *ApprovalRepo) SetFlowActive(tenantId, flowId uint64, active int) error {
	return ar.db.Database().Model(&model.ApprovalFlow{}).
		Scopes(tenantScope(tenantId)).
		Where("id = ?", flowId).
		Update("is_active", active).Error
}

func (ar *ApprovalRepo) CreateInstance(tx *gorm.DB, inst *model.ApprovalInstance) error {
	return tx.Create(inst).Error
}

func (ar *ApprovalRepo) GetInstanceByExternalId(tenantId uint64, externalId string) (*model.ApprovalInstance, error) {
	var inst model.ApprovalInstance
	err := ar.db.Database().Scopes(tenantScope(tenantId)).
		Where("external_id = ?", externalId).
		First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("approval instance %s not found", externalId)
	}
	return &inst, err
}

// GetInstanceForUpdate reads the instance under SELECT ... FOR UPDATE so
// every decision on it serializes within the surrounding transaction.
func (ar *ApprovalRepo) GetInstanceForUpdate(tx *gorm.DB, tenantId, id uint64) (*model.ApprovalInstance, error) {
	var inst model.ApprovalInstance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(tenantScope(tenantId)).
		Where("id = ?", id).
		First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("approval instance not found")
	}
	return &inst, err
}

func (ar *ApprovalRepo) UpdateInstance(tx *gorm.DB, tenantId, id uint64, fields map[string]any) error {
	return tx.Model(&model.ApprovalInstance{}).
		Scopes(tenantScope(tenantId)).
		Where("id = ?", id).
		Updates(fields).Error
}

func (ar *ApprovalRepo) ListInstancesByEntity(tenantId uint64, entityType, entityExternalId string) ([]model.ApprovalInstance, error) {
	var insts []model.ApprovalInstance
	err := ar.db.Database().Scopes(tenantScope(tenantId)).
		Where("entity_type = ? AND entity_external_id = ?", entityType, entityExternalId).
		Order("created_at DESC").
		Find(&insts).Error
	return insts, err
}

func (ar *ApprovalRepo) CreateTasks(tx *gorm.DB, tasks []model.ApprovalTask) error {
	for i := range tasks {
		if err := tx.Create(&tasks[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (ar *ApprovalRepo) GetTaskByExternalId(tenantId uint64, externalId string) (*model.ApprovalTask, error) {
	var task model.ApprovalTask
	err := ar.db.Database().Scopes(tenantScope(tenantId)).
		Where("external_id = ?", externalId).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("approval task %s not found", externalId)
	}
	return &task, err
}

func (ar *ApprovalRepo) UpdateTask(tx *gorm.DB, tenantId, id uint64, fields map[string]any) error {
	return tx.Model(&model.ApprovalTask{}).
		Scopes(tenantScope(tenantId)).
		Where("id = ?", id).
		Updates(fields).Error
}

func (ar *ApprovalRepo) TasksOfInstanceStep(tx *gorm.DB, tenantId, instanceId uint64, stepOrder int) ([]model.ApprovalTask, error) {
	var tasks []model.ApprovalTask
	err := tx.Scopes(tenantScope(tenantId)).
		Where("instance_id = ? AND step_order = ?", instanceId, stepOrder).
		Order("id ASC").
		Find(&tasks).Error
	return tasks, err
}

func (ar *ApprovalRepo) TasksOfInstance(tenantId, instanceId uint64) ([]model.ApprovalTask, error) {
	var tasks []model.ApprovalTask
	err := ar.db.Database().Scopes(tenantScope(tenantId)).
		Where("instance_id = ?", instanceId).
		Order("step_order ASC, id ASC").
		Find(&tasks).Error
	return tasks, err
}

// CancelOpenTasks flips all still-pending tasks of an instance to
// cancelled. Used when the instance reaches a terminal state.
func (ar *ApprovalRepo) CancelOpenTasks(tx *gorm.DB, tenantId, instanceId uint64) error {
	return tx.Model(&model.ApprovalTask{}).
		Scopes(tenantScope(tenantId)).
		Where("instance_id = ? AND status = ?", instanceId, model.TaskPending).
		Update("status", model.TaskCancelled).Error
}

// CancelOpenStepTasks flips one step's still-pending tasks to cancelled.
// Any-mode steps resolve on the first approval with siblings still open.
func (ar *ApprovalRepo) CancelOpenStepTasks(tx *gorm.DB, tenantId, instanceId uint64, stepOrder int) error {
	return tx.Model(&model.ApprovalTask{}).
		Scopes(tenantScope(tenantId)).
		Where("instance_id = ? AND step_order = ? AND status = ?", instanceId, stepOrder, model.TaskPending).
		Update("status", model.TaskCancelled).Error
}

func (ar *ApprovalRepo) ListPendingTasksForApprover(tenantId uint64, approverId string, offset, pageSize int) ([]model.ApprovalTask, int64, error) {
	var tasks []model.ApprovalTask
	tx := ar.db.Database().Model(&model.ApprovalTask{}).
		Scopes(tenantScope(tenantId)).
		Where("approver_id = ? AND status = ?", approverId, model.TaskPending)
	count, err := Count(tx.Session(&gorm.Session{}))
	if err != nil {
		return nil, 0, err
	}
	err = tx.Offset(offset).Limit(pageSize).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, count, err
}

// ExpireOverdueTasks marks pending tasks past their deadline as expired and
// returns them so the sweep can re-evaluate their instances.
func (ar *ApprovalRepo) ExpireOverdueTasks(now time.Time) ([]model.ApprovalTask, error) {
	var overdue []model.ApprovalTask
	err := ar.db.Database().
		Where("deleted_at IS NULL AND status = ? AND expires_at IS NOT NULL AND expires_at < ?",
			model.TaskPending, now).
		Find(&overdue).Error
	if err != nil || len(overdue) == 0 {
		return overdue, err
	}
	ids := make([]uint64, len(overdue))
	for i, t := range overdue {
		ids[i] = t.ID
	}
	err = ar.db.Database().Model(&model.ApprovalTask{}).
		Where("id IN ?", ids).
		Update("status", model.TaskExpired).Error
	return overdue, err
}

// AppendRecord writes the next audit entry. Seq is assigned as max+1 under
// the caller's transaction, which holds the instance row lock.
func (ar *ApprovalRepo) AppendRecord(tx *gorm.DB, rec *model.ApprovalRecord) error {
	var maxSeq int
	err := tx.Model(&model.ApprovalRecord{}).
		Where("tenant_id = ? AND instance_id = ?", rec.TenantId, rec.InstanceId).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return err
	}
	rec.Seq = maxSeq + 1
	return tx.Create(rec).Error
}

func (ar *ApprovalRepo) RecordsOfInstance(tenantId, instanceId uint64) ([]model.ApprovalRecord, error) {
	var records []model.ApprovalRecord
	err := ar.db.Database().Scopes(tenantScope(tenantId)).
		Where("instance_id = ?", instanceId).
		Order("seq ASC").
		Find(&records).Error
	return records, err
}

func (ar *ApprovalRepo) GetIdempotent(tenantId uint64, operation, key string) (*model.IdempotencyKey, error) {
	var ik model.IdempotencyKey
	err := ar.db.Database().Scopes(tenantScope(tenantId)).
		Where("operation = ? AND idem_key = ?", operation, key).
		First(&ik).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ik, nil
}

func (ar *ApprovalRepo) PutIdempotent(tx *gorm.DB, ik *model.IdempotencyKey) error {
	return tx.Create(ik).Error
}

// ListUnsentCompleted returns terminal instances whose completion callback
// has not been delivered yet.
func (ar *ApprovalRepo) ListUnsentCompleted(limit int) ([]model.ApprovalInstance, error) {
	var insts []model.ApprovalInstance
	err := ar.db.Database().
		Where("deleted_at IS NULL AND completion_sent = 0 AND status IN ?",
			[]string{model.InstanceApproved, model.InstanceRejected, model.InstanceCancelled}).
		Order("completed_at ASC").
		Limit(limit).
		Find(&insts).Error
	return insts, err
}

func (ar *ApprovalRepo) MarkCompletionSent(tenantId, id uint64) error {
	return ar.db.Database().Model(&model.ApprovalInstance{}).
		Scopes(tenantScope(tenantId)).
		Where("id = ?", id).
		Update("completion_sent", 1).Error
}
