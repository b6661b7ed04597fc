package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riveredge/riveredge/internal/core/model"
)

func menu(externalId, parentId, title string, order int) model.Menu {
	return model.Menu{
		TenantModel: model.TenantModel{BaseModel: model.BaseModel{ExternalId: externalId}},
		ParentId:    parentId,
		Title:       title,
		SortOrder:   order,
		IsActive:    model.FlagEnabled,
	}
}

func TestBuildMenuTreeNestsAndSorts(t *testing.T) {
	menus := []model.Menu{
		menu("b", "", "Reports", 2),
		menu("a", "", "Dashboard", 1),
		menu("b1", "b", "Monthly", 2),
		menu("b2", "b", "Weekly", 1),
	}

	tree := BuildMenuTree(menus)
	require.Len(t, tree, 2)
	assert.Equal(t, "Dashboard", tree[0].Title)
	assert.Equal(t, "Reports", tree[1].Title)
	require.Len(t, tree[1].Children, 2)
	assert.Equal(t, "Weekly", tree[1].Children[0].Title)
	assert.Equal(t, "Monthly", tree[1].Children[1].Title)
}

func TestBuildMenuTreeDropsOrphans(t *testing.T) {
	menus := []model.Menu{
		menu("a", "", "Dashboard", 1),
		menu("x1", "gone", "Orphan", 1),
	}

	tree := BuildMenuTree(menus)
	require.Len(t, tree, 1)
	assert.Equal(t, "Dashboard", tree[0].Title)
}
