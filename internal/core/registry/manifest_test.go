package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, app, content string) {
	t.Helper()
	appDir := filepath.Join(dir, app)
	require.NoError(t, os.MkdirAll(appDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, manifestFile), []byte(content), 0o644))
}

const validManifest = `{
	"code": "crm",
	"name": "Customer Relations",
	"version": "1.2.0",
	"route_path": "/apps/crm",
	"entry_point": "index.js",
	"menu_tree": [
		{"title": "Customers", "path": "/customers", "order": 1, "children": [
			{"title": "Segments", "path": "/customers/segments"}
		]}
	],
	"declared_permissions": [
		{"code": "customer:read", "resource": "customer", "action": "read"}
	]
}`

func TestLoadManifestValid(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "crm", validManifest)

	m, err := LoadManifest(filepath.Join(dir, "crm", manifestFile))
	require.NoError(t, err)
	assert.Equal(t, "crm", m.Code)
	assert.Equal(t, "/apps/crm", m.RoutePath)
	assert.Equal(t, "index.js", m.EntryPoint)
	require.Len(t, m.Permissions, 1)
	assert.Len(t, m.Menus, 1)
	assert.Len(t, m.Menus[0].Children, 1)
}

func TestValidateRejectsBadCode(t *testing.T) {
	m := &Manifest{Code: "CRM!", Name: "x", Version: "1", RoutePath: "/x", EntryPoint: "x.js"}
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestValidateRejectsMissingFields(t *testing.T) {
	m := &Manifest{Code: "crm"}
	require.Error(t, m.Validate())
}

func TestValidateRejectsUntitledMenu(t *testing.T) {
	m := &Manifest{
		Code: "crm", Name: "x", Version: "1", RoutePath: "/x", EntryPoint: "x.js",
		Menus: []ManifestMenu{{Title: "ok", Children: []ManifestMenu{{Path: "/nameless"}}}},
	}
	require.Error(t, m.Validate())
}

func TestLoadManifestRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "broken", `{"code": `)
	_, err := LoadManifest(filepath.Join(dir, "broken", manifestFile))
	require.Error(t, err)
}
