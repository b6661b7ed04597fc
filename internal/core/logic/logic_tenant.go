package logic

import (
	"strings"
	"time"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/internal/core/repo"
	"github.com/riveredge/riveredge/pkg/errs"
	"github.com/riveredge/riveredge/pkg/id"
	"github.com/riveredge/riveredge/pkg/log"
)

type TenantLogic struct {
	tenantRepo repo.ITenantRepository
	userRepo   repo.IUserRepository
}

func NewTenantLogic(tenantRepo repo.ITenantRepository, userRepo repo.IUserRepository) *TenantLogic {
	return &TenantLogic{
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
	}
}

// CreateTenant provisions a workspace. Superadmin only; the guard enforces
// that before this runs.
func (tl *TenantLogic) CreateTenant(req *model.CreateTenantReq) (*model.Tenant, error) {
	if req.Name == "" || req.Domain == "" {
		return nil, errs.Validationf("name and domain are required")
	}
	domain := strings.ToLower(strings.TrimSpace(req.Domain))

	if _, err := tl.tenantRepo.GetTenantByDomain(domain); err == nil {
		return nil, errs.Conflictf("domain %s already in use", domain)
	}

	plan := req.Plan
	if plan == "" {
		plan = model.TenantPlanTrial
	}
	t := &model.Tenant{
		BaseModel:    model.BaseModel{ExternalId: id.ExternalId()},
		Name:         req.Name,
		Domain:       domain,
		Status:       model.TenantStatusActive,
		Plan:         plan,
		MaxUsers:     req.MaxUsers,
		MaxStorageMB: req.MaxStorageMB,
		ExpiresAt:    req.ExpiresAt,
	}
	if err := tl.tenantRepo.CreateTenant(t); err != nil {
		return nil, err
	}
	log.Infow("tenant created", "tenantId", t.ExternalId, "domain", domain)
	return t, nil
}

func (tl *TenantLogic) GetTenant(externalId string) (*model.Tenant, error) {
	return tl.tenantRepo.GetTenantByExternalId(externalId)
}

func (tl *TenantLogic) ListTenants(offset, pageSize int) ([]model.Tenant, int64, error) {
	return tl.tenantRepo.ListTenants(offset, pageSize)
}

func (tl *TenantLogic) UpdateTenant(externalId string, req *model.UpdateTenantReq) error {
	t, err := tl.tenantRepo.GetTenantByExternalId(externalId)
	if err != nil {
		return err
	}

	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Status != nil {
		switch *req.Status {
		case model.TenantStatusActive, model.TenantStatusInactive,
			model.TenantStatusSuspended, model.TenantStatusExpired:
		default:
			return errs.Validationf("unknown tenant status %q", *req.Status)
		}
		fields["status"] = *req.Status
	}
	if req.Plan != nil {
		fields["plan"] = *req.Plan
	}
	if req.MaxUsers != nil {
		fields["max_users"] = *req.MaxUsers
	}
	if req.MaxStorageMB != nil {
		fields["max_storage_mb"] = *req.MaxStorageMB
	}
	if req.ExpiresAt != nil {
		fields["expires_at"] = *req.ExpiresAt
	}
	if len(fields) == 0 {
		return nil
	}
	return tl.tenantRepo.UpdateTenant(t.ID, fields)
}

func (tl *TenantLogic) DeleteTenant(externalId string) error {
	t, err := tl.tenantRepo.GetTenantByExternalId(externalId)
	if err != nil {
		return err
	}
	return tl.tenantRepo.DeleteTenant(t.ID)
}

// SweepExpired is the cron hook marking past-due tenants expired.
func (tl *TenantLogic) SweepExpired() {
	n, err := tl.tenantRepo.MarkExpiredTenants(time.Now())
	if err != nil {
		log.Errorw("tenant expiry sweep failed", "error", err)
		return
	}
	if n > 0 {
		log.Infow("tenant expiry sweep", "expired", n)
	}
}
