package logic

import (
	"time"

	"github.com/bytedance/sonic"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/internal/core/registry"
	"github.com/riveredge/riveredge/internal/core/repo"
	"github.com/riveredge/riveredge/pkg/ctx"
	"github.com/riveredge/riveredge/pkg/errs"
	"github.com/riveredge/riveredge/pkg/id"
	"github.com/riveredge/riveredge/pkg/log"
)

type ApplicationLogic struct {
	appRepo   repo.IApplicationRepository
	permRepo  repo.IPermissionRepository
	permLogic *PermissionLogic
}

func NewApplicationLogic(appRepo repo.IApplicationRepository, permRepo repo.IPermissionRepository,
	permLogic *PermissionLogic) *ApplicationLogic {
	return &ApplicationLogic{
		appRepo:   appRepo,
		permRepo:  permRepo,
		permLogic: permLogic,
	}
}

// Catalog lists every registered application annotated with the caller
// tenant's install state.
func (al *ApplicationLogic) Catalog(ac *ctx.AuthContext) ([]model.CatalogEntry, error) {
	defs, err := al.appRepo.ListDefinitions()
	if err != nil {
		return nil, err
	}
	installs, err := al.appRepo.ListInstallations(ac.TenantId)
	if err != nil {
		return nil, err
	}
	installed := make(map[string]*model.ApplicationInstallation, len(installs))
	for i := range installs {
		installed[installs[i].ApplicationCode] = &installs[i]
	}

	entries := make([]model.CatalogEntry, len(defs))
	for i, def := range defs {
		entry := model.CatalogEntry{
			ApplicationId: def.ExternalId,
			Code:          def.Code,
			Name:          def.Name,
			Version:       def.Version,
			Icon:          def.Icon,
			RoutePath:     def.RoutePath,
		}
		if inst, ok := installed[def.Code]; ok {
			entry.IsInstalled = inst.IsInstalled == model.FlagEnabled
			entry.IsActive = inst.IsActive == model.FlagEnabled
			entry.InstallId = inst.ExternalId
		}
		entries[i] = entry
	}
	return entries, nil
}

// Install binds the application to the tenant: the installation row, the
// projected menu rows and the declared permissions land in one unit, so a
// failed install leaves nothing behind.
func (al *ApplicationLogic) Install(ac *ctx.AuthContext, appCode string) (*model.ApplicationInstallation, error) {
	def, err := al.appRepo.GetDefinitionByCode(appCode)
	if err != nil {
		return nil, err
	}

	menus, err := projectMenus(ac.TenantId, def)
	if err != nil {
		return nil, err
	}

	inst := &model.ApplicationInstallation{
		TenantModel: model.TenantModel{
			BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
			TenantId:  ac.TenantId,
		},
		ApplicationCode: def.Code,
		IsInstalled:     model.FlagEnabled,
		IsActive:        model.FlagEnabled,
		InstallTime:     time.Now(),
	}
	if err := al.appRepo.Install(inst, menus); err != nil {
		return nil, err
	}

	if len(def.DeclaredPermissions) > 0 {
		var decls []registry.PermissionDecl
		if err := sonic.Unmarshal(def.DeclaredPermissions, &decls); err != nil {
			return nil, errs.Wrap(err, errs.Internal, "stored permission declarations are corrupt")
		}
		perms := make([]model.Permission, len(decls))
		for i, d := range decls {
			perms[i] = model.Permission{
				TenantModel: model.TenantModel{
					BaseModel: model.BaseModel{ExternalId: id.ExternalId()},
				},
				Code:     d.Code,
				Resource: d.Resource,
				Action:   d.Action,
			}
		}
		if err := al.permRepo.UpsertPermissions(ac.TenantId, perms); err != nil {
			return nil, err
		}
	}

	al.permLogic.InvalidateTenant(ac.TenantId)
	log.Infow("application installed", "tenantId", ac.TenantId, "application", appCode)
	return inst, nil
}

// SetActive enables or disables an installed application. Menus follow the
// flag in the same transaction.
func (al *ApplicationLogic) SetActive(ac *ctx.AuthContext, appCode string, active bool) error {
	flag := model.FlagDisabled
	if active {
		flag = model.FlagEnabled
	}
	if err := al.appRepo.SetInstallationActive(ac.TenantId, appCode, flag); err != nil {
		return err
	}
	log.Infow("application availability changed", "tenantId", ac.TenantId, "application", appCode, "active", active)
	return nil
}

func (al *ApplicationLogic) Uninstall(ac *ctx.AuthContext, appCode string) error {
	if err := al.appRepo.Uninstall(ac.TenantId, appCode); err != nil {
		return err
	}
	al.permLogic.InvalidateTenant(ac.TenantId)
	log.Infow("application uninstalled", "tenantId", ac.TenantId, "application", appCode)
	return nil
}

// projectMenus flattens the manifest menu tree into tenant-local rows.
// Parent links use pre-assigned external ids so the tree can be rebuilt
// without the internal keys.
func projectMenus(tenantId uint64, def *model.ApplicationDefinition) ([]model.Menu, error) {
	if len(def.MenuTree) == 0 {
		return nil, nil
	}
	var tree []registry.ManifestMenu
	if err := sonic.Unmarshal(def.MenuTree, &tree); err != nil {
		return nil, errs.Wrap(err, errs.Internal, "stored menu tree is corrupt")
	}
	var menus []model.Menu
	flattenMenus(tenantId, def.Code, "", tree, &menus)
	return menus, nil
}

func flattenMenus(tenantId uint64, appCode, parentExternalId string, nodes []registry.ManifestMenu, out *[]model.Menu) {
	for _, node := range nodes {
		externalId := id.ExternalId()
		*out = append(*out, model.Menu{
			TenantModel: model.TenantModel{
				BaseModel: model.BaseModel{ExternalId: externalId},
				TenantId:  tenantId,
			},
			ApplicationCode: appCode,
			ParentId:        parentExternalId,
			Title:           node.Title,
			Path:            node.Path,
			Icon:            node.Icon,
			Permission:      node.Permission,
			SortOrder:       node.Order,
			IsActive:        model.FlagEnabled,
		})
		flattenMenus(tenantId, appCode, externalId, node.Children, out)
	}
}
