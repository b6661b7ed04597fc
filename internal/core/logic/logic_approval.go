package logic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/bytedance/sonic"
	"github.com/expr-lang/expr"
	"github.com/go-resty/resty/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/riveredge/riveredge/internal/core/config"
	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/internal/core/repo"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/errs"
	"github.com/riveredge/riveredge/pkg/id"
	"github.com/riveredge/riveredge/pkg/log"
	"github.com/riveredge/riveredge/pkg/retry"
	"github.com/riveredge/riveredge/pkg/statemachine"
)

const (
	opSubmitApproval = "approval.submit"
	opDecideTask     = "approval.decide"
)

// Step outcomes during aggregation.
const (
	stepPending  = "pending"
	stepApproved = "approved"
	stepRejected = "rejected"
)

type ApprovalLogic struct {
	approvalRepo repo.IApprovalRepository
	userRepo     repo.IUserRepository
	roleRepo     repo.IRoleRepository
	conf         config.ApprovalConfig
	webhook      *resty.Client
}

func NewApprovalLogic(approvalRepo repo.IApprovalRepository, userRepo repo.IUserRepository,
	roleRepo repo.IRoleRepository, conf config.ApprovalConfig) *ApprovalLogic {
	client := resty.New().
		SetTimeout(time.Duration(conf.WebhookTimeoutSec) * time.Second).
		SetHeader("Content-Type", "application/json")
	return &ApprovalLogic{
		approvalRepo: approvalRepo,
		userRepo:     userRepo,
		roleRepo:     roleRepo,
		conf:         conf,
		webhook:      client,
	}
}

// CreateFlow validates the template before writing it: known step modes,
// at least one approver source per step, and preconditions that compile.
func (al *ApprovalLogic) CreateFlow(ac *ctx.AuthContext, req *model.CreateFlowReq) (*model.ApprovalFlow, error) {
	if req.FlowCode == "" || req.Name == "" || req.EntityType == "" {
		return nil, errs.Validationf("flowCode, name and entityType are required")
	}
	if len(req.Steps) == 0 {
		return nil, errs.Validationf("a flow needs at least one step")
	}

	steps := make([]model.ApprovalFlowStep, len(req.Steps))
	for i, s := range req.Steps {
		switch s.Mode {
		case model.StepModeSequential, model.StepModeAll, model.StepModeAny:
		default:
			return nil, errs.Validationf("step %d: unknown mode %q", i+1, s.Mode)
		}
		if len(s.ApproverUsers) == 0 && len(s.ApproverRoles) == 0 {
			return nil, errs.Validationf("step %d: at least one approver user or role is required", i+1)
		}
		if s.Precondition != "" {
			if _, err := expr.Compile(s.Precondition, expr.AsBool(), expr.AllowUndefinedVariables()); err != nil {
				return nil, errs.Validationf("step %d: precondition does not compile: %v", i+1, err)
			}
		}
		users, err := sonic.Marshal(s.ApproverUsers)
		if err != nil {
			return nil, errs.Wrap(err, errs.Internal, "failed to marshal approver users")
		}
		roles, err := sonic.Marshal(s.ApproverRoles)
		if err != nil {
			return nil, errs.Wrap(err, errs.Internal, "failed to marshal approver roles")
		}
		steps[i] = model.ApprovalFlowStep{
			TenantModel: model.TenantModel{
				BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
			},
			StepOrder:     i + 1,
			Name:          s.Name,
			Mode:          s.Mode,
			ApproverUsers: datatypes.JSON(users),
			ApproverRoles: datatypes.JSON(roles),
			Precondition:  s.Precondition,
		}
	}

	flow := &model.ApprovalFlow{
		TenantModel: model.TenantModel{
			BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
			TenantId:  ac.TenantId,
		},
		FlowCode:     req.FlowCode,
		Name:         req.Name,
		EntityType:   req.EntityType,
		BusinessMode: req.BusinessMode,
		CallbackURL:  req.CallbackURL,
		TaskTTLHours: req.TaskTTLHours,
		IsActive:     model.FlagEnabled,
	}
	if err := al.approvalRepo.CreateFlow(flow, steps); err != nil {
		return nil, err
	}
	log.Infow("approval flow created", "tenantId", ac.TenantId, "flow", flow.ExternalId, "steps", len(steps))
	return flow, nil
}

func (al *ApprovalLogic) ListFlows(ac *ctx.AuthContext, offset, pageSize int) ([]model.ApprovalFlow, int64, error) {
	return al.approvalRepo.ListFlows(ac.TenantId, offset, pageSize)
}

func (al *ApprovalLogic) SetFlowActive(ac *ctx.AuthContext, flowExternalId string, active bool) error {
	flow, err := al.approvalRepo.GetFlowByExternalId(ac.TenantId, flowExternalId)
	if err != nil {
		return err
	}
	flag := model.FlagDisabled
	if active {
		flag = model.FlagEnabled
	}
	return al.approvalRepo.SetFlowActive(ac.TenantId, flow.ID, flag)
}

// Submit starts an approval instance. With an idempotency key, a retried
// submit replays the original outcome instead of opening a second instance;
// the same key with a different payload is a conflict.
func (al *ApprovalLogic) Submit(ac *ctx.AuthContext, req *model.SubmitApprovalReq) (*model.InstanceResp, error) {
	if req.EntityType == "" || req.EntityId == "" {
		return nil, errs.Validationf("entityType and entityId are required")
	}

	payloadRaw, err := sonic.Marshal(req.Payload)
	if err != nil {
		return nil, errs.Validationf("payload is not valid JSON: %v", err)
	}
	payloadHash := hashPayload(payloadRaw)

	if req.IdempotencyKey != "" {
		prior, err := al.approvalRepo.GetIdempotent(ac.TenantId, opSubmitApproval, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			if prior.PayloadHash != payloadHash {
				return nil, errs.Conflictf("idempotency key reused with a different payload").
					WithReason("idempotency_payload_mismatch")
			}
			var resp model.InstanceResp
			if err := sonic.Unmarshal(prior.Outcome, &resp); err != nil {
				return nil, errs.Wrap(err, errs.Internal, "stored idempotent outcome is corrupt")
			}
			return &resp, nil
		}
	}

	flow, err := al.approvalRepo.GetActiveFlow(ac.TenantId, req.EntityType, req.BusinessMode)
	if err != nil {
		return nil, err
	}
	steps, err := al.approvalRepo.GetFlowSteps(ac.TenantId, flow.ID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, errs.BusinessRulef("flow %s has no steps", flow.FlowCode)
	}

	open, err := al.approvalRepo.ListInstancesByEntity(ac.TenantId, req.EntityType, req.EntityId)
	if err != nil {
		return nil, err
	}
	for _, inst := range open {
		if inst.Status == model.InstanceInProgress {
			return nil, errs.Conflictf("entity %s already has an approval in progress", req.EntityId).
				WithReason("approval_in_progress")
		}
	}

	inst := &model.ApprovalInstance{
		TenantModel: model.TenantModel{
			BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
			TenantId:  ac.TenantId,
		},
		FlowId:           flow.ID,
		EntityType:       req.EntityType,
		EntityExternalId: req.EntityId,
		SubmitterId:      ac.UserId,
		Status:           model.InstanceInProgress,
		Payload:          datatypes.JSON(payloadRaw),
	}

	err = al.approvalRepo.Transaction(func(tx *gorm.DB) error {
		// Steps whose precondition rejects the payload are skipped up front.
		firstStep, skipped, err := al.firstApplicableStep(steps, req.Payload, 1)
		if err != nil {
			return err
		}
		if firstStep == nil {
			// Every step was skipped: the submission auto-approves.
			now := time.Now()
			inst.Status = model.InstanceApproved
			inst.CompletedAt = &now
			inst.CurrentStepOrder = 0
		} else {
			inst.CurrentStepOrder = firstStep.StepOrder
		}
		if err := al.approvalRepo.CreateInstance(tx, inst); err != nil {
			return err
		}

		if err := al.approvalRepo.AppendRecord(tx, &model.ApprovalRecord{
			TenantModel: model.TenantModel{
				BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
				TenantId:  ac.TenantId,
			},
			InstanceId: inst.ID,
			StepOrder:  0,
			ApproverId: ac.UserId,
			Result:     model.RecordSubmitted,
		}); err != nil {
			return err
		}
		for _, s := range skipped {
			if err := al.recordSkip(tx, ac.TenantId, inst.ID, s); err != nil {
				return err
			}
		}
		if firstStep != nil {
			if err := al.openStepTasks(tx, ac.TenantId, inst, flow.TaskTTLHours, firstStep); err != nil {
				return err
			}
		}

		if req.IdempotencyKey != "" {
			outcome, err := sonic.Marshal(al.toInstanceResp(inst, nil, nil))
			if err != nil {
				return errs.Wrap(err, errs.Internal, "failed to marshal idempotent outcome")
			}
			return al.approvalRepo.PutIdempotent(tx, &model.IdempotencyKey{
				TenantModel: model.TenantModel{
					BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
					TenantId:  ac.TenantId,
				},
				IdemKey:     req.IdempotencyKey,
				Operation:   opSubmitApproval,
				PayloadHash: payloadHash,
				Outcome:     datatypes.JSON(outcome),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infow("approval submitted", "tenantId", ac.TenantId, "instance", inst.ExternalId,
		"entityType", req.EntityType, "entityId", req.EntityId)
	return al.toInstanceResp(inst, nil, nil), nil
}

// Decide records one approver's verdict. The instance row is locked for the
// whole evaluation, so two approvers deciding at once serialize and the
// second sees the first's effect. A retried decide with the same idempotency
// key and payload replays the original outcome; one record, not two.
func (al *ApprovalLogic) Decide(ac *ctx.AuthContext, taskExternalId string, req *model.DecideTaskReq) (*model.InstanceResp, error) {
	result, err := normalizeDecision(req.Result)
	if err != nil {
		return nil, err
	}

	// The canonical verb goes into the hash, so "approve" and "approved"
	// retries match the same idempotency record.
	decideRaw, err := sonic.Marshal(map[string]string{
		"taskId": taskExternalId, "result": result, "comment": req.Comment,
	})
	if err != nil {
		return nil, errs.Wrap(err, errs.Internal, "failed to marshal decision payload")
	}
	payloadHash := hashPayload(decideRaw)

	if req.IdempotencyKey != "" {
		prior, err := al.approvalRepo.GetIdempotent(ac.TenantId, opDecideTask, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			if prior.PayloadHash != payloadHash {
				return nil, errs.Conflictf("idempotency key reused with a different payload").
					WithReason("idempotency_payload_mismatch")
			}
			var resp model.InstanceResp
			if err := sonic.Unmarshal(prior.Outcome, &resp); err != nil {
				return nil, errs.Wrap(err, errs.Internal, "stored idempotent outcome is corrupt")
			}
			return &resp, nil
		}
	}

	task, err := al.approvalRepo.GetTaskByExternalId(ac.TenantId, taskExternalId)
	if err != nil {
		return nil, err
	}
	if task.ApproverId != ac.UserId {
		return nil, errs.Forbiddenf("task belongs to another approver")
	}

	var inst *model.ApprovalInstance
	err = al.approvalRepo.Transaction(func(tx *gorm.DB) error {
		inst, err = al.approvalRepo.GetInstanceForUpdate(tx, ac.TenantId, task.InstanceId)
		if err != nil {
			return err
		}
		if inst.Status != model.InstanceInProgress {
			return errs.BusinessRulef("approval is already %s", inst.Status).
				WithReason("approval_closed")
		}
		if task.StepOrder != inst.CurrentStepOrder {
			return errs.BusinessRulef("task is not on the current step").
				WithReason("stale_step")
		}

		// Re-read under the lock; the pre-lock copy may be stale.
		tasks, err := al.approvalRepo.TasksOfInstanceStep(tx, ac.TenantId, inst.ID, inst.CurrentStepOrder)
		if err != nil {
			return err
		}
		var locked *model.ApprovalTask
		for i := range tasks {
			if tasks[i].ID == task.ID {
				locked = &tasks[i]
				break
			}
		}
		if locked == nil || locked.Status != model.TaskPending {
			return errs.BusinessRulef("task is no longer pending").
				WithReason("task_closed")
		}

		step, err := al.stepOf(ac.TenantId, inst.FlowId, inst.CurrentStepOrder)
		if err != nil {
			return err
		}
		if step.Mode == model.StepModeSequential && !priorApproved(tasks, locked.ID) {
			return errs.BusinessRulef("earlier approvers have not decided yet").
				WithReason("not_your_turn")
		}

		now := time.Now()
		if err := al.approvalRepo.UpdateTask(tx, ac.TenantId, locked.ID, map[string]any{
			"status":     result,
			"comment":    req.Comment,
			"decided_at": now,
		}); err != nil {
			return err
		}
		locked.Status = result

		recResult := model.RecordApproved
		if result == model.TaskRejected {
			recResult = model.RecordRejected
		}
		if err := al.approvalRepo.AppendRecord(tx, &model.ApprovalRecord{
			TenantModel: model.TenantModel{
				BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
				TenantId:  ac.TenantId,
			},
			InstanceId: inst.ID,
			StepOrder:  inst.CurrentStepOrder,
			ApproverId: ac.UserId,
			Result:     recResult,
			Comment:    req.Comment,
		}); err != nil {
			return err
		}

		if err := al.advance(tx, ac.TenantId, inst, step.Mode, tasks); err != nil {
			return err
		}

		if req.IdempotencyKey != "" {
			outcome, err := sonic.Marshal(al.toInstanceResp(inst, nil, nil))
			if err != nil {
				return errs.Wrap(err, errs.Internal, "failed to marshal idempotent outcome")
			}
			return al.approvalRepo.PutIdempotent(tx, &model.IdempotencyKey{
				TenantModel: model.TenantModel{
					BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
					TenantId:  ac.TenantId,
				},
				IdemKey:     req.IdempotencyKey,
				Operation:   opDecideTask,
				PayloadHash: payloadHash,
				Outcome:     datatypes.JSON(outcome),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return al.Status(ac, inst.ExternalId)
}

// advance aggregates the current step and moves the instance forward. Runs
// with the instance row locked.
func (al *ApprovalLogic) advance(tx *gorm.DB, tenantId uint64, inst *model.ApprovalInstance,
	mode string, tasks []model.ApprovalTask) error {

	switch stepOutcome(mode, tasks) {
	case stepPending:
		return nil
	case stepRejected:
		return al.finish(tx, tenantId, inst, model.InstanceRejected)
	}

	// The step resolved; siblings still pending (any mode) close now so
	// they cannot be decided or swept after the step has moved on.
	if err := al.approvalRepo.CancelOpenStepTasks(tx, tenantId, inst.ID, inst.CurrentStepOrder); err != nil {
		return err
	}

	// Step approved: find the next applicable step or finish.
	steps, err := al.approvalRepo.GetFlowSteps(tenantId, inst.FlowId)
	if err != nil {
		return err
	}
	var payload map[string]any
	if len(inst.Payload) > 0 {
		if err := sonic.Unmarshal(inst.Payload, &payload); err != nil {
			return errs.Wrap(err, errs.Internal, "stored payload is corrupt")
		}
	}
	next, skipped, err := al.firstApplicableStep(steps, payload, inst.CurrentStepOrder+1)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		if err := al.recordSkip(tx, tenantId, inst.ID, s); err != nil {
			return err
		}
	}
	if next == nil {
		return al.finish(tx, tenantId, inst, model.InstanceApproved)
	}

	if err := al.openStepTasks(tx, tenantId, inst, al.flowTTLHours(tenantId, inst.FlowId), next); err != nil {
		return err
	}
	inst.CurrentStepOrder = next.StepOrder
	return al.approvalRepo.UpdateInstance(tx, tenantId, inst.ID, map[string]any{
		"current_step_order": next.StepOrder,
	})
}

// instanceStates declares the legal instance status transitions. The three
// completed statuses are terminal.
func instanceStates(current string) *statemachine.StateMachine[string] {
	return statemachine.NewWithState(current).
		AddTransition(model.InstanceInProgress,
			model.InstanceApproved, model.InstanceRejected, model.InstanceCancelled)
}

func (al *ApprovalLogic) finish(tx *gorm.DB, tenantId uint64, inst *model.ApprovalInstance, status string) error {
	if err := instanceStates(inst.Status).TransitionTo(status); err != nil {
		return errs.BusinessRulef("approval is already %s", inst.Status).
			WithReason("approval_closed")
	}
	now := time.Now()
	inst.Status = status
	inst.CompletedAt = &now
	if err := al.approvalRepo.CancelOpenTasks(tx, tenantId, inst.ID); err != nil {
		return err
	}
	return al.approvalRepo.UpdateInstance(tx, tenantId, inst.ID, map[string]any{
		"status":       status,
		"completed_at": now,
	})
}

// Cancel withdraws an in-progress instance. Only the submitter or a tenant
// admin may cancel.
func (al *ApprovalLogic) Cancel(ac *ctx.AuthContext, instanceExternalId string) error {
	inst, err := al.approvalRepo.GetInstanceByExternalId(ac.TenantId, instanceExternalId)
	if err != nil {
		return err
	}
	if inst.SubmitterId != ac.UserId && !ac.IsTenantAdmin && !ac.IsSuperAdmin() {
		return errs.Forbiddenf("only the submitter may cancel")
	}

	return al.approvalRepo.Transaction(func(tx *gorm.DB) error {
		locked, err := al.approvalRepo.GetInstanceForUpdate(tx, ac.TenantId, inst.ID)
		if err != nil {
			return err
		}
		if locked.Status != model.InstanceInProgress {
			return errs.BusinessRulef("approval is already %s", locked.Status).
				WithReason("approval_closed")
		}
		if err := al.finish(tx, ac.TenantId, locked, model.InstanceCancelled); err != nil {
			return err
		}
		return al.approvalRepo.AppendRecord(tx, &model.ApprovalRecord{
			TenantModel: model.TenantModel{
				BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
				TenantId:  ac.TenantId,
			},
			InstanceId: locked.ID,
			StepOrder:  locked.CurrentStepOrder,
			ApproverId: ac.UserId,
			Result:     model.RecordCancelled,
		})
	})
}

// Status returns the instance with its tasks and audit trail.
func (al *ApprovalLogic) Status(ac *ctx.AuthContext, instanceExternalId string) (*model.InstanceResp, error) {
	inst, err := al.approvalRepo.GetInstanceByExternalId(ac.TenantId, instanceExternalId)
	if err != nil {
		return nil, err
	}
	tasks, err := al.approvalRepo.TasksOfInstance(ac.TenantId, inst.ID)
	if err != nil {
		return nil, err
	}
	records, err := al.approvalRepo.RecordsOfInstance(ac.TenantId, inst.ID)
	if err != nil {
		return nil, err
	}
	return al.toInstanceResp(inst, tasks, records), nil
}

func (al *ApprovalLogic) InstancesOfEntity(ac *ctx.AuthContext, entityType, entityId string) ([]model.InstanceResp, error) {
	insts, err := al.approvalRepo.ListInstancesByEntity(ac.TenantId, entityType, entityId)
	if err != nil {
		return nil, err
	}
	resp := make([]model.InstanceResp, len(insts))
	for i := range insts {
		resp[i] = *al.toInstanceResp(&insts[i], nil, nil)
	}
	return resp, nil
}

func (al *ApprovalLogic) MyTasks(ac *ctx.AuthContext, offset, pageSize int) ([]model.TaskResp, int64, error) {
	tasks, count, err := al.approvalRepo.ListPendingTasksForApprover(ac.TenantId, ac.UserId, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	resp := make([]model.TaskResp, len(tasks))
	for i, t := range tasks {
		resp[i] = toTaskResp(&t)
	}
	return resp, count, nil
}

// SweepExpiredTasks is the cron hook: overdue tasks expire, and each
// affected instance is re-aggregated with expiry counting as rejection.
func (al *ApprovalLogic) SweepExpiredTasks() {
	expired, err := al.approvalRepo.ExpireOverdueTasks(time.Now())
	if err != nil {
		log.Errorw("task expiry sweep failed", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}
	seen := make(map[uint64]bool)
	for _, t := range expired {
		if seen[t.InstanceId] {
			continue
		}
		seen[t.InstanceId] = true
		if err := al.reaggregate(t.TenantId, t.InstanceId); err != nil {
			log.Errorw("failed to re-aggregate after task expiry", "instanceId", t.InstanceId, "error", err)
		}
	}
	log.Infow("task expiry sweep", "expiredTasks", len(expired), "instances", len(seen))
}

func (al *ApprovalLogic) reaggregate(tenantId, instanceId uint64) error {
	return al.approvalRepo.Transaction(func(tx *gorm.DB) error {
		inst, err := al.approvalRepo.GetInstanceForUpdate(tx, tenantId, instanceId)
		if err != nil {
			return err
		}
		if inst.Status != model.InstanceInProgress {
			return nil
		}
		step, err := al.stepOf(tenantId, inst.FlowId, inst.CurrentStepOrder)
		if err != nil {
			return err
		}
		tasks, err := al.approvalRepo.TasksOfInstanceStep(tx, tenantId, inst.ID, inst.CurrentStepOrder)
		if err != nil {
			return err
		}
		return al.advance(tx, tenantId, inst, step.Mode, tasks)
	})
}

// SendCompletions is the cron hook delivering completion webhooks for
// terminal instances. Delivery is at-least-once; the flag flips only after
// a 2xx response.
func (al *ApprovalLogic) SendCompletions(ctx context.Context) {
	insts, err := al.approvalRepo.ListUnsentCompleted(50)
	if err != nil {
		log.Errorw("failed to list unsent completions", "error", err)
		return
	}
	for i := range insts {
		inst := &insts[i]
		flow, err := al.flowById(inst.TenantId, inst.FlowId)
		if err != nil {
			log.Errorw("completion webhook: flow lookup failed", "instance", inst.ExternalId, "error", err)
			continue
		}
		if flow.CallbackURL == "" {
			if err := al.approvalRepo.MarkCompletionSent(inst.TenantId, inst.ID); err != nil {
				log.Errorw("failed to mark completion sent", "instance", inst.ExternalId, "error", err)
			}
			continue
		}
		if err := al.deliverCompletion(ctx, flow.CallbackURL, inst); err != nil {
			log.Warnw("completion webhook delivery failed", "instance", inst.ExternalId,
				"url", flow.CallbackURL, "error", err)
			continue
		}
		if err := al.approvalRepo.MarkCompletionSent(inst.TenantId, inst.ID); err != nil {
			log.Errorw("failed to mark completion sent", "instance", inst.ExternalId, "error", err)
		}
	}
}

func (al *ApprovalLogic) deliverCompletion(ctx context.Context, url string, inst *model.ApprovalInstance) error {
	// Delivery is at-least-once; the sortable deliveryId lets receivers
	// deduplicate retried posts.
	body := map[string]any{
		"deliveryId":  id.GetULID(),
		"instanceId":  inst.ExternalId,
		"entityType":  inst.EntityType,
		"entityId":    inst.EntityExternalId,
		"status":      inst.Status,
		"completedAt": inst.CompletedAt,
	}
	return retry.Do(ctx, func(ctx context.Context) error {
		resp, err := al.webhook.R().SetContext(ctx).SetBody(body).Post(url)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return errs.Transientf("callback returned %d", resp.StatusCode())
		}
		return nil
	}, retry.WithMaxAttempts(al.conf.WebhookMaxRetries), retry.WithBackoff(retry.Exponential(time.Second)))
}

// firstApplicableStep walks steps from the given order, returning the first
// whose precondition accepts the payload, plus the ones skipped on the way.
func (al *ApprovalLogic) firstApplicableStep(steps []model.ApprovalFlowStep, payload map[string]any,
	fromOrder int) (*model.ApprovalFlowStep, []model.ApprovalFlowStep, error) {

	var skipped []model.ApprovalFlowStep
	for i := range steps {
		s := &steps[i]
		if s.StepOrder < fromOrder {
			continue
		}
		applies, err := stepApplies(s, payload)
		if err != nil {
			return nil, nil, err
		}
		if applies {
			return s, skipped, nil
		}
		skipped = append(skipped, *s)
	}
	return nil, skipped, nil
}

// stepApplies evaluates the step precondition against the payload. An empty
// precondition always applies.
func stepApplies(step *model.ApprovalFlowStep, payload map[string]any) (bool, error) {
	if step.Precondition == "" {
		return true, nil
	}
	env := payload
	if env == nil {
		env = map[string]any{}
	}
	program, err := expr.Compile(step.Precondition, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return false, errs.Wrap(err, errs.Internal, "stored precondition does not compile")
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, errs.BusinessRulef("precondition evaluation failed: %v", err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, errs.BusinessRulef("precondition did not yield a boolean")
	}
	return ok, nil
}

// openStepTasks resolves the step's approver set and creates one pending
// task per approver. Sequential steps get their whole task set up front
// too; Decide enforces the turn order, so later approvers hold a visible
// but not-yet-actionable task.
func (al *ApprovalLogic) openStepTasks(tx *gorm.DB, tenantId uint64, inst *model.ApprovalInstance,
	ttlHours int, step *model.ApprovalFlowStep) error {

	approvers, err := al.resolveApprovers(tenantId, step)
	if err != nil {
		return err
	}
	if len(approvers) == 0 {
		return errs.BusinessRulef("step %d resolves to no approvers", step.StepOrder).
			WithReason("no_approvers")
	}

	var expiresAt *time.Time
	if ttlHours > 0 {
		t := time.Now().Add(time.Duration(ttlHours) * time.Hour)
		expiresAt = &t
	}

	tasks := make([]model.ApprovalTask, len(approvers))
	for i, approver := range approvers {
		tasks[i] = model.ApprovalTask{
			TenantModel: model.TenantModel{
				BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
				TenantId:  tenantId,
			},
			InstanceId: inst.ID,
			StepOrder:  step.StepOrder,
			ApproverId: approver,
			Status:     model.TaskPending,
			ExpiresAt:  expiresAt,
		}
	}
	return al.approvalRepo.CreateTasks(tx, tasks)
}

// resolveApprovers unions the step's user list with the members of its role
// list, deduplicated, in declaration order.
func (al *ApprovalLogic) resolveApprovers(tenantId uint64, step *model.ApprovalFlowStep) ([]string, error) {
	var userIds, roleCodes []string
	if len(step.ApproverUsers) > 0 {
		if err := sonic.Unmarshal(step.ApproverUsers, &userIds); err != nil {
			return nil, errs.Wrap(err, errs.Internal, "stored approver users are corrupt")
		}
	}
	if len(step.ApproverRoles) > 0 {
		if err := sonic.Unmarshal(step.ApproverRoles, &roleCodes); err != nil {
			return nil, errs.Wrap(err, errs.Internal, "stored approver roles are corrupt")
		}
	}

	seen := make(map[string]bool)
	var approvers []string
	add := func(externalId string) {
		if !seen[externalId] {
			seen[externalId] = true
			approvers = append(approvers, externalId)
		}
	}

	if len(userIds) > 0 {
		users, err := al.userRepo.GetUsersByExternalIds(tenantId, userIds)
		if err != nil {
			return nil, err
		}
		byId := make(map[string]bool, len(users))
		for _, u := range users {
			byId[u.ExternalId] = true
		}
		for _, uid := range userIds {
			if byId[uid] {
				add(uid)
			}
		}
	}
	for _, code := range roleCodes {
		role, err := al.roleRepo.GetRoleByCode(tenantId, code)
		if err != nil {
			if errs.IsKind(err, errs.NotFound) {
				continue
			}
			return nil, err
		}
		memberIds, err := al.roleRepo.UserIdsWithRole(tenantId, role.ID)
		if err != nil {
			return nil, err
		}
		for _, mid := range memberIds {
			u, err := al.userRepo.GetUserById(tenantId, mid)
			if err != nil {
				continue
			}
			add(u.ExternalId)
		}
	}
	return approvers, nil
}

func (al *ApprovalLogic) recordSkip(tx *gorm.DB, tenantId, instanceId uint64, step model.ApprovalFlowStep) error {
	return al.approvalRepo.AppendRecord(tx, &model.ApprovalRecord{
		TenantModel: model.TenantModel{
			BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
			TenantId:  tenantId,
		},
		InstanceId: instanceId,
		StepOrder:  step.StepOrder,
		ApproverId: "",
		Result:     model.RecordSkipped,
	})
}

func (al *ApprovalLogic) stepOf(tenantId, flowId uint64, stepOrder int) (*model.ApprovalFlowStep, error) {
	steps, err := al.approvalRepo.GetFlowSteps(tenantId, flowId)
	if err != nil {
		return nil, err
	}
	for i := range steps {
		if steps[i].StepOrder == stepOrder {
			return &steps[i], nil
		}
	}
	return nil, errs.Internalf("flow step %d missing", stepOrder)
}

func (al *ApprovalLogic) flowById(tenantId, flowId uint64) (*model.ApprovalFlow, error) {
	flows, _, err := al.approvalRepo.ListFlows(tenantId, 0, 1000)
	if err != nil {
		return nil, err
	}
	for i := range flows {
		if flows[i].ID == flowId {
			return &flows[i], nil
		}
	}
	return nil, errs.NotFoundf("flow not found")
}

func (al *ApprovalLogic) flowTTLHours(tenantId, flowId uint64) int {
	flow, err := al.flowById(tenantId, flowId)
	if err != nil {
		return 0
	}
	return flow.TaskTTLHours
}

// stepOutcome aggregates one step's tasks under its mode. Expired tasks
// count against approval: sequential and all-mode reject on any expiry,
// any-mode rejects only when no task can still approve.
func stepOutcome(mode string, tasks []model.ApprovalTask) string {
	var pending, approved, negative int
	for _, t := range tasks {
		switch t.Status {
		case model.TaskPending:
			pending++
		case model.TaskApproved:
			approved++
		case model.TaskRejected, model.TaskExpired:
			negative++
		}
	}

	switch mode {
	case model.StepModeAny:
		if approved > 0 {
			return stepApproved
		}
		if pending == 0 {
			return stepRejected
		}
		return stepPending
	default: // sequential and all share the unanimity rule
		if negative > 0 {
			return stepRejected
		}
		if pending == 0 {
			return stepApproved
		}
		return stepPending
	}
}

// normalizeDecision maps a request verb onto the task status it produces.
// The imperative and past-tense forms are both accepted.
func normalizeDecision(result string) (string, error) {
	switch result {
	case "approve", model.TaskApproved:
		return model.TaskApproved, nil
	case "reject", model.TaskRejected:
		return model.TaskRejected, nil
	}
	return "", errs.Validationf("result must be approve or reject")
}

// priorApproved reports whether every task created before the given one has
// approved. Sequential steps gate on it.
func priorApproved(tasks []model.ApprovalTask, taskId uint64) bool {
	for _, t := range tasks {
		if t.ID == taskId {
			return true
		}
		if t.Status != model.TaskApproved {
			return false
		}
	}
	return true
}

func (al *ApprovalLogic) toInstanceResp(inst *model.ApprovalInstance,
	tasks []model.ApprovalTask, records []model.ApprovalRecord) *model.InstanceResp {

	resp := &model.InstanceResp{
		InstanceId:       inst.ExternalId,
		EntityType:       inst.EntityType,
		EntityId:         inst.EntityExternalId,
		SubmitterId:      inst.SubmitterId,
		CurrentStepOrder: inst.CurrentStepOrder,
		Status:           inst.Status,
		CompletedAt:      inst.CompletedAt,
	}
	if len(inst.Payload) > 0 {
		var payload map[string]any
		if err := sonic.Unmarshal(inst.Payload, &payload); err == nil {
			resp.Payload = payload
		}
	}
	for i := range tasks {
		resp.Tasks = append(resp.Tasks, toTaskResp(&tasks[i]))
	}
	for _, r := range records {
		resp.Records = append(resp.Records, model.RecordResp{
			Seq:        r.Seq,
			StepOrder:  r.StepOrder,
			ApproverId: r.ApproverId,
			Result:     r.Result,
			Comment:    r.Comment,
		})
	}
	return resp
}

func toTaskResp(t *model.ApprovalTask) model.TaskResp {
	return model.TaskResp{
		TaskId:     t.ExternalId,
		StepOrder:  t.StepOrder,
		ApproverId: t.ApproverId,
		Status:     t.Status,
		Comment:    t.Comment,
		DecidedAt:  t.DecidedAt,
		ExpiresAt:  t.ExpiresAt,
	}
}

func hashPayload(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
