package logic

import (
	"sort"

	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/internal/core/repo"
	"github.com/riveredge/riveredge/pkg/ctx"
)

type MenuLogic struct {
	menuRepo  repo.IMenuRepository
	userRepo  repo.IUserRepository
	permLogic *PermissionLogic
}

func NewMenuLogic(menuRepo repo.IMenuRepository, userRepo repo.IUserRepository,
	permLogic *PermissionLogic) *MenuLogic {
	return &MenuLogic{
		menuRepo:  menuRepo,
		userRepo:  userRepo,
		permLogic: permLogic,
	}
}

// UserMenu returns the caller's visible menu tree: active menus of active
// applications, minus entries gated behind permissions the user lacks. A
// child whose parent is filtered out disappears with it.
func (ml *MenuLogic) UserMenu(ac *ctx.AuthContext) ([]*model.MenuNode, error) {
	menus, err := ml.menuRepo.ListActiveMenus(ac.TenantId)
	if err != nil {
		return nil, err
	}

	var permSet map[string]bool
	if !ac.IsSuperAdmin() && !ac.IsTenantAdmin {
		user, err := ml.userRepo.GetUserByExternalId(ac.TenantId, ac.UserId)
		if err != nil {
			return nil, err
		}
		permSet, _, err = ml.permLogic.EffectivePermissions(ac.TenantId, user.ID)
		if err != nil {
			return nil, err
		}
	}

	visible := make([]model.Menu, 0, len(menus))
	for _, m := range menus {
		if m.Permission != "" && permSet != nil && !permSet[m.Permission] {
			continue
		}
		visible = append(visible, m)
	}
	return BuildMenuTree(visible), nil
}

// BuildMenuTree assembles flat menu rows into the nested response shape.
// Orphans (parent filtered or missing) are dropped.
func BuildMenuTree(menus []model.Menu) []*model.MenuNode {
	nodes := make(map[string]*model.MenuNode, len(menus))
	order := make(map[string]int, len(menus))
	for _, m := range menus {
		nodes[m.ExternalId] = &model.MenuNode{
			MenuId: m.ExternalId,
			Title:  m.Title,
			Path:   m.Path,
			Icon:   m.Icon,
		}
		order[m.ExternalId] = m.SortOrder
	}

	var roots []*model.MenuNode
	for _, m := range menus {
		node := nodes[m.ExternalId]
		if m.ParentId == "" {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[m.ParentId]; ok {
			parent.Children = append(parent.Children, node)
		}
	}

	var sortLevel func(level []*model.MenuNode)
	sortLevel = func(level []*model.MenuNode) {
		sort.SliceStable(level, func(i, j int) bool {
			return order[level[i].MenuId] < order[level[j].MenuId]
		})
		for _, n := range level {
			sortLevel(n.Children)
		}
	}
	sortLevel(roots)
	return roots
}
