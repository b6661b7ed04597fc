package logic

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/errs"
	"github.com/riveredge/riveredge/pkg/http"
)

// In-memory repository doubles. They keep just enough state to drive the
// logic layer end to end without a database.

type fakeUserRepo struct {
	users []*model.User
}

func (f *fakeUserRepo) AddUser(u *model.User) error {
	if u.ID == 0 {
		u.ID = uint64(len(f.users) + 1)
	}
	f.users = append(f.users, u)
	return nil
}

func (f *fakeUserRepo) GetUserByUsername(tenantId uint64, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.TenantId == tenantId && u.Username == username {
			return u, nil
		}
	}
	return nil, errs.NotFoundf("user not found")
}

func (f *fakeUserRepo) GetUserByExternalId(tenantId uint64, externalId string) (*model.User, error) {
	for _, u := range f.users {
		if u.TenantId == tenantId && u.ExternalId == externalId {
			return u, nil
		}
	}
	return nil, errs.NotFoundf("user %s not found", externalId)
}

func (f *fakeUserRepo) GetUserById(tenantId, id uint64) (*model.User, error) {
	for _, u := range f.users {
		if u.TenantId == tenantId && u.ID == id {
			return u, nil
		}
	}
	return nil, errs.NotFoundf("user not found")
}

func (f *fakeUserRepo) GetUsersByExternalIds(tenantId uint64, externalIds []string) ([]model.User, error) {
	wanted := make(map[string]bool, len(externalIds))
	for _, id := range externalIds {
		wanted[id] = true
	}
	var out []model.User
	for _, u := range f.users {
		if u.TenantId == tenantId && wanted[u.ExternalId] {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) ListUsers(tenantId uint64, offset, pageSize int) ([]model.User, int64, error) {
	var out []model.User
	for _, u := range f.users {
		if u.TenantId == tenantId {
			out = append(out, *u)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) UpdateUser(tenantId, id uint64, fields map[string]any) error    { return nil }
func (f *fakeUserRepo) DeleteUser(tenantId, id uint64) error                           { return nil }
func (f *fakeUserRepo) UpdateLastLogin(tenantId, id uint64, at time.Time) error        { return nil }
func (f *fakeUserRepo) SetToken(context.Context, string, string, http.Auth) error      { return nil }
func (f *fakeUserRepo) GetToken(context.Context, string, http.Auth) (string, error)    { return "", nil }
func (f *fakeUserRepo) DelToken(ctx context.Context, userId string, a http.Auth) error { return nil }

type fakeRoleRepo struct {
	roles     []*model.Role
	userRoles map[uint64][]uint64 // user id -> role ids
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{userRoles: make(map[uint64][]uint64)}
}

func (f *fakeRoleRepo) CreateRole(r *model.Role) error {
	if r.ID == 0 {
		r.ID = uint64(len(f.roles) + 1)
	}
	f.roles = append(f.roles, r)
	return nil
}

func (f *fakeRoleRepo) GetRoleByExternalId(tenantId uint64, externalId string) (*model.Role, error) {
	for _, r := range f.roles {
		if r.TenantId == tenantId && r.ExternalId == externalId {
			return r, nil
		}
	}
	return nil, errs.NotFoundf("role %s not found", externalId)
}

func (f *fakeRoleRepo) GetRoleByCode(tenantId uint64, code string) (*model.Role, error) {
	for _, r := range f.roles {
		if r.TenantId == tenantId && r.Code == code {
			return r, nil
		}
	}
	return nil, errs.NotFoundf("role %s not found", code)
}

func (f *fakeRoleRepo) GetRolesByCodes(tenantId uint64, codes []string) ([]model.Role, error) {
	var out []model.Role
	for _, code := range codes {
		if r, err := f.GetRoleByCode(tenantId, code); err == nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRoleRepo) ListRoles(tenantId uint64, offset, pageSize int) ([]model.Role, int64, error) {
	var out []model.Role
	for _, r := range f.roles {
		if r.TenantId == tenantId {
			out = append(out, *r)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeRoleRepo) UpdateRole(tenantId, id uint64, fields map[string]any) error { return nil }
func (f *fakeRoleRepo) DeleteRole(tenantId, id uint64) error                        { return nil }
func (f *fakeRoleRepo) ReplaceRolePermissions(tenantId, roleId uint64, permissionIds []uint64) error {
	return nil
}

func (f *fakeRoleRepo) RolesOfUser(tenantId, userId uint64) ([]model.Role, error) {
	var out []model.Role
	for _, rid := range f.userRoles[userId] {
		for _, r := range f.roles {
			if r.ID == rid && r.TenantId == tenantId {
				out = append(out, *r)
			}
		}
	}
	return out, nil
}

func (f *fakeRoleRepo) AssignRoleToUser(tenantId, userId, roleId uint64) error {
	f.userRoles[userId] = append(f.userRoles[userId], roleId)
	return nil
}

func (f *fakeRoleRepo) RemoveRoleFromUser(tenantId, userId, roleId uint64) error {
	kept := f.userRoles[userId][:0]
	for _, rid := range f.userRoles[userId] {
		if rid != roleId {
			kept = append(kept, rid)
		}
	}
	f.userRoles[userId] = kept
	return nil
}

func (f *fakeRoleRepo) UserIdsWithRole(tenantId, roleId uint64) ([]uint64, error) {
	var out []uint64
	for uid, rids := range f.userRoles {
		for _, rid := range rids {
			if rid == roleId {
				out = append(out, uid)
			}
		}
	}
	return out, nil
}

type fakePolicyRepo struct {
	policies   []model.AccessPolicy
	bindings   []model.PolicyBinding
	userGroups map[uint64][]model.Group
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{userGroups: make(map[uint64][]model.Group)}
}

func (f *fakePolicyRepo) CreatePolicy(p *model.AccessPolicy, bindings []model.PolicyBinding) error {
	p.ID = uint64(len(f.policies) + 1)
	for i := range bindings {
		bindings[i].PolicyId = p.ID
	}
	f.policies = append(f.policies, *p)
	f.bindings = append(f.bindings, bindings...)
	return nil
}

func (f *fakePolicyRepo) GetPolicyByExternalId(tenantId uint64, externalId string) (*model.AccessPolicy, error) {
	for i := range f.policies {
		if f.policies[i].TenantId == tenantId && f.policies[i].ExternalId == externalId {
			return &f.policies[i], nil
		}
	}
	return nil, errs.NotFoundf("policy %s not found", externalId)
}

func (f *fakePolicyRepo) ListPolicies(tenantId uint64, offset, pageSize int) ([]model.AccessPolicy, int64, error) {
	return f.policies, int64(len(f.policies)), nil
}

func (f *fakePolicyRepo) UpdatePolicy(tenantId, id uint64, fields map[string]any) error { return nil }
func (f *fakePolicyRepo) DeletePolicy(tenantId, id uint64) error                        { return nil }

func (f *fakePolicyRepo) ListEnabledPolicies(tenantId uint64) ([]model.AccessPolicy, error) {
	var out []model.AccessPolicy
	for _, p := range f.policies {
		if p.TenantId == tenantId && p.Enabled == model.FlagEnabled {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePolicyRepo) BindingsOfPolicies(tenantId uint64, policyIds []uint64) ([]model.PolicyBinding, error) {
	wanted := make(map[uint64]bool, len(policyIds))
	for _, id := range policyIds {
		wanted[id] = true
	}
	var out []model.PolicyBinding
	for _, b := range f.bindings {
		if wanted[b.PolicyId] {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakePolicyRepo) GroupsOfUser(tenantId, userId uint64) ([]model.Group, error) {
	return f.userGroups[userId], nil
}

func (f *fakePolicyRepo) GetGroupByCode(tenantId uint64, code string) (*model.Group, error) {
	return nil, errs.NotFoundf("group %s not found", code)
}

func (f *fakePolicyRepo) CreateGroup(g *model.Group) error                      { return nil }
func (f *fakePolicyRepo) AddGroupMember(tenantId, groupId, userId uint64) error { return nil }

type fakePermissionRepo struct {
	userCodes map[uint64][]string
	versions  map[uint64]uint64
}

func newFakePermissionRepo() *fakePermissionRepo {
	return &fakePermissionRepo{
		userCodes: make(map[uint64][]string),
		versions:  make(map[uint64]uint64),
	}
}

func (f *fakePermissionRepo) CreatePermission(p *model.Permission) error { return nil }
func (f *fakePermissionRepo) GetPermissionByCode(tenantId uint64, code string) (*model.Permission, error) {
	return nil, errs.NotFoundf("permission %s not found", code)
}
func (f *fakePermissionRepo) GetPermissionsByCodes(tenantId uint64, codes []string) ([]model.Permission, error) {
	return nil, nil
}
func (f *fakePermissionRepo) ListPermissions(tenantId uint64, offset, pageSize int) ([]model.Permission, int64, error) {
	return nil, 0, nil
}
func (f *fakePermissionRepo) DeletePermission(tenantId, id uint64) error { return nil }

func (f *fakePermissionRepo) PermissionCodesOfUser(tenantId, userId uint64) ([]string, error) {
	return f.userCodes[userId], nil
}

func (f *fakePermissionRepo) PermissionsOfRole(tenantId, roleId uint64) ([]model.Permission, error) {
	return nil, nil
}

func (f *fakePermissionRepo) GetVersion(tenantId, userId uint64) (uint64, error) {
	return f.versions[userId], nil
}

func (f *fakePermissionRepo) BumpVersion(tenantId, userId uint64) error {
	f.versions[userId]++
	return nil
}

func (f *fakePermissionRepo) UpsertPermissions(tenantId uint64, perms []model.Permission) error {
	return nil
}

type fakeApprovalRepo struct {
	flows     []*model.ApprovalFlow
	steps     []model.ApprovalFlowStep
	instances []*model.ApprovalInstance
	tasks     []*model.ApprovalTask
	records   []*model.ApprovalRecord
	idem      map[string]*model.IdempotencyKey
	lastId    uint64
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{idem: make(map[string]*model.IdempotencyKey)}
}

func (f *fakeApprovalRepo) nextId() uint64 {
	f.lastId++
	return f.lastId
}

func (f *fakeApprovalRepo) Transaction(fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (f *fakeApprovalRepo) CreateFlow(flow *model.ApprovalFlow, steps []model.ApprovalFlowStep) error {
	flow.ID = f.nextId()
	f.flows = append(f.flows, flow)
	for i := range steps {
		steps[i].ID = f.nextId()
		steps[i].TenantId = flow.TenantId
		steps[i].FlowId = flow.ID
		f.steps = append(f.steps, steps[i])
	}
	return nil
}

func (f *fakeApprovalRepo) GetFlowByExternalId(tenantId uint64, externalId string) (*model.ApprovalFlow, error) {
	for _, fl := range f.flows {
		if fl.TenantId == tenantId && fl.ExternalId == externalId {
			return fl, nil
		}
	}
	return nil, errs.NotFoundf("flow %s not found", externalId)
}

func (f *fakeApprovalRepo) GetActiveFlow(tenantId uint64, entityType, businessMode string) (*model.ApprovalFlow, error) {
	for _, fl := range f.flows {
		if fl.TenantId == tenantId && fl.EntityType == entityType &&
			fl.BusinessMode == businessMode && fl.IsActive == model.FlagEnabled {
			return fl, nil
		}
	}
	return nil, errs.NotFoundf("no active flow for %s", entityType)
}

func (f *fakeApprovalRepo) ListFlows(tenantId uint64, offset, pageSize int) ([]model.ApprovalFlow, int64, error) {
	var out []model.ApprovalFlow
	for _, fl := range f.flows {
		if fl.TenantId == tenantId {
			out = append(out, *fl)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeApprovalRepo) GetFlowSteps(tenantId, flowId uint64) ([]model.ApprovalFlowStep, error) {
	var out []model.ApprovalFlowStep
	for _, s := range f.steps {
		if s.FlowId == flowId {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeApprovalRepo) SetFlowActive(tenantId, flowId uint64, active int) error {
	for _, fl := range f.flows {
		if fl.ID == flowId {
			fl.IsActive = active
		}
	}
	return nil
}

func (f *fakeApprovalRepo) CreateInstance(tx *gorm.DB, inst *model.ApprovalInstance) error {
	inst.ID = f.nextId()
	f.instances = append(f.instances, inst)
	return nil
}

func (f *fakeApprovalRepo) GetInstanceByExternalId(tenantId uint64, externalId string) (*model.ApprovalInstance, error) {
	for _, inst := range f.instances {
		if inst.TenantId == tenantId && inst.ExternalId == externalId {
			cp := *inst
			return &cp, nil
		}
	}
	return nil, errs.NotFoundf("approval %s not found", externalId)
}

func (f *fakeApprovalRepo) GetInstanceForUpdate(tx *gorm.DB, tenantId, id uint64) (*model.ApprovalInstance, error) {
	for _, inst := range f.instances {
		if inst.TenantId == tenantId && inst.ID == id {
			cp := *inst
			return &cp, nil
		}
	}
	return nil, errs.NotFoundf("approval not found")
}

func (f *fakeApprovalRepo) UpdateInstance(tx *gorm.DB, tenantId, id uint64, fields map[string]any) error {
	for _, inst := range f.instances {
		if inst.TenantId != tenantId || inst.ID != id {
			continue
		}
		if v, ok := fields["status"].(string); ok {
			inst.Status = v
		}
		if v, ok := fields["current_step_order"].(int); ok {
			inst.CurrentStepOrder = v
		}
		if v, ok := fields["completed_at"].(time.Time); ok {
			inst.CompletedAt = &v
		}
	}
	return nil
}

func (f *fakeApprovalRepo) ListInstancesByEntity(tenantId uint64, entityType, entityExternalId string) ([]model.ApprovalInstance, error) {
	var out []model.ApprovalInstance
	for _, inst := range f.instances {
		if inst.TenantId == tenantId && inst.EntityType == entityType &&
			inst.EntityExternalId == entityExternalId {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (f *fakeApprovalRepo) CreateTasks(tx *gorm.DB, tasks []model.ApprovalTask) error {
	for i := range tasks {
		cp := tasks[i]
		cp.ID = f.nextId()
		f.tasks = append(f.tasks, &cp)
	}
	return nil
}

func (f *fakeApprovalRepo) GetTaskByExternalId(tenantId uint64, externalId string) (*model.ApprovalTask, error) {
	for _, t := range f.tasks {
		if t.TenantId == tenantId && t.ExternalId == externalId {
			cp := *t
			return &cp, nil
		}
	}
	return nil, errs.NotFoundf("task %s not found", externalId)
}

func (f *fakeApprovalRepo) UpdateTask(tx *gorm.DB, tenantId, id uint64, fields map[string]any) error {
	for _, t := range f.tasks {
		if t.TenantId != tenantId || t.ID != id {
			continue
		}
		if v, ok := fields["status"].(string); ok {
			t.Status = v
		}
		if v, ok := fields["comment"].(string); ok {
			t.Comment = v
		}
		if v, ok := fields["decided_at"].(time.Time); ok {
			t.DecidedAt = &v
		}
	}
	return nil
}

func (f *fakeApprovalRepo) TasksOfInstanceStep(tx *gorm.DB, tenantId, instanceId uint64, stepOrder int) ([]model.ApprovalTask, error) {
	var out []model.ApprovalTask
	for _, t := range f.tasks {
		if t.TenantId == tenantId && t.InstanceId == instanceId && t.StepOrder == stepOrder {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeApprovalRepo) TasksOfInstance(tenantId, instanceId uint64) ([]model.ApprovalTask, error) {
	var out []model.ApprovalTask
	for _, t := range f.tasks {
		if t.TenantId == tenantId && t.InstanceId == instanceId {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeApprovalRepo) CancelOpenTasks(tx *gorm.DB, tenantId, instanceId uint64) error {
	for _, t := range f.tasks {
		if t.TenantId == tenantId && t.InstanceId == instanceId && t.Status == model.TaskPending {
			t.Status = model.TaskCancelled
		}
	}
	return nil
}

func (f *fakeApprovalRepo) CancelOpenStepTasks(tx *gorm.DB, tenantId, instanceId uint64, stepOrder int) error {
	for _, t := range f.tasks {
		if t.TenantId == tenantId && t.InstanceId == instanceId &&
			t.StepOrder == stepOrder && t.Status == model.TaskPending {
			t.Status = model.TaskCancelled
		}
	}
	return nil
}

func (f *fakeApprovalRepo) ListPendingTasksForApprover(tenantId uint64, approverId string, offset, pageSize int) ([]model.ApprovalTask, int64, error) {
	var out []model.ApprovalTask
	for _, t := range f.tasks {
		if t.TenantId == tenantId && t.ApproverId == approverId && t.Status == model.TaskPending {
			out = append(out, *t)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeApprovalRepo) ExpireOverdueTasks(now time.Time) ([]model.ApprovalTask, error) {
	var out []model.ApprovalTask
	for _, t := range f.tasks {
		if t.Status == model.TaskPending && t.ExpiresAt != nil && t.ExpiresAt.Before(now) {
			t.Status = model.TaskExpired
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeApprovalRepo) AppendRecord(tx *gorm.DB, rec *model.ApprovalRecord) error {
	rec.ID = f.nextId()
	rec.Seq = len(f.records) + 1
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeApprovalRepo) RecordsOfInstance(tenantId, instanceId uint64) ([]model.ApprovalRecord, error) {
	var out []model.ApprovalRecord
	for _, r := range f.records {
		if r.TenantId == tenantId && r.InstanceId == instanceId {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeApprovalRepo) GetIdempotent(tenantId uint64, operation, key string) (*model.IdempotencyKey, error) {
	return f.idem[operation+"|"+key], nil
}

func (f *fakeApprovalRepo) PutIdempotent(tx *gorm.DB, ik *model.IdempotencyKey) error {
	f.idem[ik.Operation+"|"+ik.IdemKey] = ik
	return nil
}

func (f *fakeApprovalRepo) ListUnsentCompleted(limit int) ([]model.ApprovalInstance, error) {
	var out []model.ApprovalInstance
	for _, inst := range f.instances {
		if inst.Status != model.InstanceInProgress && inst.CompletionSent == 0 {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (f *fakeApprovalRepo) MarkCompletionSent(tenantId, id uint64) error {
	for _, inst := range f.instances {
		if inst.TenantId == tenantId && inst.ID == id {
			inst.CompletionSent = 1
		}
	}
	return nil
}
