package repo

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/pkg/database"
	"github.com/riveredge/riveredge/pkg/errs"
)

type IPolicyRepository interface {
	CreatePolicy(p *model.AccessPolicy, bindings []model.PolicyBinding) error
	GetPolicyByExternalId(tenantId uint64, externalId string) (*model.AccessPolicy, error)
	ListPolicies(tenantId uint64, offset, pageSize int) ([]model.AccessPolicy, int64, error)
	UpdatePolicy(tenantId, id uint64, fields map[string]any) error
	DeletePolicy(tenantId, id uint64) error
	ListEnabledPolicies(tenantId uint64) ([]model.AccessPolicy, error)
	BindingsOfPolicies(tenantId uint64, policyIds []uint64) ([]model.PolicyBinding, error)
	GroupsOfUser(tenantId, userId uint64) ([]model.Group, error)
	GetGroupByCode(tenantId uint64, code string) (*model.Group, error)
	CreateGroup(g *model.Group) error
	AddGroupMember(tenantId, groupId, userId uint64) error
}

type PolicyRepo struct {
	db          database.IDatabase
	policyModel *model.AccessPolicy
}

func NewPolicyRepo(db database.IDatabase) IPolicyRepository {
	return &PolicyRepo{
		db:          db,
		policyModel: &model.AccessPolicy{},
	}
}

// CreatePolicy writes the policy, its subject bindings and the tenant
// version bump in one transaction.
func (pr *PolicyRepo) CreatePolicy(p *model.AccessPolicy, bindings []model.PolicyBinding) error {
	return pr.db.Database().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		for i := range bindings {
			bindings[i].TenantId = p.TenantId
			bindings[i].PolicyId = p.ID
			if err := tx.Create(&bindings[i]).Error; err != nil {
				return err
			}
		}
		return bumpVersion(tx, p.TenantId, model.TenantWideVersion)
	})
}

func (pr *PolicyRepo) GetPolicyByExternalId(tenantId uint64, externalId string) (*model.AccessPolicy, error) {
	var p model.AccessPolicy
	err := pr.db.Database().Scopes(tenantScope(tenantId)).
		Where("external_id = ?", externalId).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("policy %s not found", externalId)
	}
	return &p, err
}

func (pr *PolicyRepo) ListPolicies(tenantId uint64, offset, pageSize int) ([]model.AccessPolicy, int64, error) {
	var policies []model.AccessPolicy
	tx := pr.db.Database().Model(pr.policyModel).Scopes(tenantScope(tenantId))
	count, err := Count(tx.Session(&gorm.Session{}))
	if err != nil {
		return nil, 0, err
	}
	err = tx.Offset(offset).Limit(pageSize).
		Order("priority ASC, created_at DESC").
		Find(&policies).Error
	return policies, count, err
}

func (pr *PolicyRepo) UpdatePolicy(tenantId, id uint64, fields map[string]any) error {
	return pr.db.Database().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(pr.policyModel).
			Scopes(tenantScope(tenantId)).
			Where("id = ?", id).
			Updates(fields).Error; err != nil {
			return err
		}
		return bumpVersion(tx, tenantId, model.TenantWideVersion)
	})
}

func (pr *PolicyRepo) DeletePolicy(tenantId, id uint64) error {
	now := time.Now()
	return pr.db.Database().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(pr.policyModel).
			Scopes(tenantScope(tenantId)).
			Where("id = ?", id).
			Update("deleted_at", now).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.PolicyBinding{}).
			Scopes(tenantScope(tenantId)).
			Where("policy_id = ?", id).
			Update("deleted_at", now).Error; err != nil {
			return err
		}
		return bumpVersion(tx, tenantId, model.TenantWideVersion)
	})
}

// ListEnabledPolicies returns all enabled policies for the tenant ordered by
// priority. Target matching and condition evaluation happen in the decision
// engine against this in-memory set.
func (pr *PolicyRepo) ListEnabledPolicies(tenantId uint64) ([]model.AccessPolicy, error) {
	var policies []model.AccessPolicy
	err := pr.db.Database().Scopes(tenantScope(tenantId)).
		Where("enabled = ?", model.FlagEnabled).
		Order("priority ASC, id ASC").
		Find(&policies).Error
	return policies, err
}

func (pr *PolicyRepo) BindingsOfPolicies(tenantId uint64, policyIds []uint64) ([]model.PolicyBinding, error) {
	if len(policyIds) == 0 {
		return nil, nil
	}
	var bindings []model.PolicyBinding
	err := pr.db.Database().Scopes(tenantScope(tenantId)).
		Where("policy_id IN ?", policyIds).
		Find(&bindings).Error
	return bindings, err
}

func (pr *PolicyRepo) GroupsOfUser(tenantId, userId uint64) ([]model.Group, error) {
	var groups []model.Group
	err := pr.db.Database().Model(&model.Group{}).
		Joins("JOIN core_group_members ON core_group_members.group_id = core_groups.id").
		Where("core_groups.tenant_id = ? AND core_groups.deleted_at IS NULL", tenantId).
		Where("core_group_members.tenant_id = ? AND core_group_members.deleted_at IS NULL", tenantId).
		Where("core_group_members.user_id = ?", userId).
		Find(&groups).Error
	return groups, err
}

func (pr *PolicyRepo) GetGroupByCode(tenantId uint64, code string) (*model.Group, error) {
	var g model.Group
	err := pr.db.Database().Scopes(tenantScope(tenantId)).
		Where("code = ?", code).
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFoundf("group %s not found", code)
	}
	return &g, err
}

func (pr *PolicyRepo) CreateGroup(g *model.Group) error {
	var existing model.Group
	err := pr.db.Database().Scopes(tenantScope(g.TenantId)).
		Where("code = ?", g.Code).
		First(&existing).Error
	if err == nil {
		return errs.Conflictf("group %s already exists", g.Code)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return pr.db.Database().Create(g).Error
}

func (pr *PolicyRepo) AddGroupMember(tenantId, groupId, userId uint64) error {
	var existing model.GroupMember
	err := pr.db.Database().Scopes(tenantScope(tenantId)).
		Where("group_id = ? AND user_id = ?", groupId, userId).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	member := model.GroupMember{
		TenantModel: model.TenantModel{TenantId: tenantId},
		GroupId:     groupId,
		UserId:      userId,
	}
	// Group membership can activate group-bound policies, so the member's
	// version bumps with the row.
	return pr.db.Database().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		return bumpVersion(tx, tenantId, userId)
	})
}
