package logic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/riveredge/riveredge/internal/core/consts"
	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/internal/core/repo"
	"github.com/riveredge/riveredge/pkg/cache"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/errs"
	"github.com/riveredge/riveredge/pkg/id"
	"github.com/riveredge/riveredge/pkg/log"
)

// permSetTTL bounds staleness if a version bump is missed; normal
// invalidation happens by the version changing out of the key.
const permSetTTL = 5 * time.Minute

type PermissionLogic struct {
	permRepo repo.IPermissionRepository
	cache    cache.ICache
}

func NewPermissionLogic(permRepo repo.IPermissionRepository, cache cache.ICache) *PermissionLogic {
	return &PermissionLogic{
		permRepo: permRepo,
		cache:    cache,
	}
}

func (pl *PermissionLogic) CreatePermission(ac *ctx.AuthContext, req *model.CreatePermissionReq) (*model.Permission, error) {
	if req.Resource == "" || req.Action == "" {
		return nil, errs.Validationf("resource and action are required")
	}
	code := req.Code
	if code == "" {
		code = req.Resource + ":" + req.Action
	}
	if !strings.Contains(code, ":") {
		return nil, errs.Validationf("permission code must be resource:action")
	}
	p := &model.Permission{
		TenantModel: model.TenantModel{
			BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
			TenantId:  ac.TenantId,
		},
		Code:     code,
		Resource: req.Resource,
		Action:   req.Action,
	}
	if err := pl.permRepo.CreatePermission(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (pl *PermissionLogic) ListPermissions(ac *ctx.AuthContext, offset, pageSize int) ([]model.PermissionResp, int64, error) {
	perms, count, err := pl.permRepo.ListPermissions(ac.TenantId, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	resp := make([]model.PermissionResp, len(perms))
	for i, p := range perms {
		resp[i] = model.PermissionResp{
			PermissionId: p.ExternalId,
			Code:         p.Code,
			Resource:     p.Resource,
			Action:       p.Action,
		}
	}
	return resp, count, nil
}

func (pl *PermissionLogic) DeletePermission(ac *ctx.AuthContext, code string) error {
	p, err := pl.permRepo.GetPermissionByCode(ac.TenantId, code)
	if err != nil {
		return err
	}
	return pl.permRepo.DeletePermission(ac.TenantId, p.ID)
}

// Version combines the tenant-wide and per-user counters. Any grant change
// bumps one of them, which rotates every cache key derived from it.
func (pl *PermissionLogic) Version(tenantId, userId uint64) (uint64, error) {
	tv, err := pl.permRepo.GetVersion(tenantId, model.TenantWideVersion)
	if err != nil {
		return 0, err
	}
	uv, err := pl.permRepo.GetVersion(tenantId, userId)
	if err != nil {
		return 0, err
	}
	return tv + uv, nil
}

// EffectivePermissions returns the user's permission code set and the
// version it was computed at. The set is cached in Redis under a
// version-stamped key.
func (pl *PermissionLogic) EffectivePermissions(tenantId, userId uint64) (map[string]bool, uint64, error) {
	version, err := pl.Version(tenantId, userId)
	if err != nil {
		return nil, 0, err
	}

	key := fmt.Sprintf("%s%d:%d:%d", consts.CacheKeyPermSet, tenantId, userId, version)
	bg := context.Background()
	if pl.cache != nil {
		cached, err := pl.cache.Get(bg, key).Result()
		if err == nil && cached != "" {
			var codes []string
			if err := sonic.UnmarshalString(cached, &codes); err == nil {
				return toSet(codes), version, nil
			}
			log.Warnw("failed to unmarshal cached permission set", "key", key, "error", err)
		}
	}

	codes, err := pl.permRepo.PermissionCodesOfUser(tenantId, userId)
	if err != nil {
		return nil, 0, err
	}

	if pl.cache != nil {
		if payload, err := sonic.MarshalString(codes); err == nil {
			if err := pl.cache.Set(bg, key, payload, permSetTTL).Err(); err != nil {
				log.Warnw("failed to cache permission set", "key", key, "error", err)
			}
		}
	}
	return toSet(codes), version, nil
}

// InvalidateTenant bumps the tenant-wide counter.
func (pl *PermissionLogic) InvalidateTenant(tenantId uint64) {
	if err := pl.permRepo.BumpVersion(tenantId, model.TenantWideVersion); err != nil {
		log.Errorw("failed to bump tenant permission version", "tenantId", tenantId, "error", err)
	}
}

// InvalidateUser bumps one user's counter.
func (pl *PermissionLogic) InvalidateUser(tenantId, userId uint64) {
	if err := pl.permRepo.BumpVersion(tenantId, userId); err != nil {
		log.Errorw("failed to bump user permission version", "tenantId", tenantId, "userId", userId, "error", err)
	}
}

func toSet(codes []string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}
