// Package registry loads application manifests from disk into the platform
// catalog. The scan runs at startup; a malformed or duplicated manifest
// fails startup rather than leaving a partial catalog behind.
package registry

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/bytedance/sonic"

	"github.com/riveredge/riveredge/pkg/errs"
)

const manifestFile = "manifest.json"

var codePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,63}$`)

// Manifest is the on-disk application descriptor.
type Manifest struct {
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	Version     string           `json:"version"`
	Icon        string           `json:"icon,omitempty"`
	RoutePath   string           `json:"route_path"`
	EntryPoint  string           `json:"entry_point"`
	Menus       []ManifestMenu   `json:"menu_tree,omitempty"`
	Permissions []PermissionDecl `json:"declared_permissions,omitempty"`
}

// ManifestMenu is one node of the manifest menu tree.
type ManifestMenu struct {
	Title      string         `json:"title"`
	Path       string         `json:"path,omitempty"`
	Icon       string         `json:"icon,omitempty"`
	Permission string         `json:"permission,omitempty"`
	Order      int            `json:"order,omitempty"`
	Children   []ManifestMenu `json:"children,omitempty"`
}

// PermissionDecl declares a permission the application expects to exist in
// every tenant that installs it.
type PermissionDecl struct {
	Code     string `json:"code"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// LoadManifest reads and validates one manifest file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, errs.Internal, "failed to read manifest")
	}
	var m Manifest
	if err := sonic.Unmarshal(raw, &m); err != nil {
		return nil, errs.Validationf("manifest %s is not valid JSON: %v", filepath.Base(filepath.Dir(path)), err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the structural rules every manifest must satisfy.
func (m *Manifest) Validate() error {
	if !codePattern.MatchString(m.Code) {
		return errs.Validationf("manifest code %q is invalid", m.Code)
	}
	if m.Name == "" {
		return errs.Validationf("manifest %s: name is required", m.Code)
	}
	if m.Version == "" {
		return errs.Validationf("manifest %s: version is required", m.Code)
	}
	if m.RoutePath == "" {
		return errs.Validationf("manifest %s: route_path is required", m.Code)
	}
	if m.EntryPoint == "" {
		return errs.Validationf("manifest %s: entry_point is required", m.Code)
	}
	for _, p := range m.Permissions {
		if p.Code == "" || p.Resource == "" || p.Action == "" {
			return errs.Validationf("manifest %s: permission declarations need code, resource and action", m.Code)
		}
	}
	return validateMenus(m.Code, m.Menus)
}

func validateMenus(code string, menus []ManifestMenu) error {
	for _, menu := range menus {
		if menu.Title == "" {
			return errs.Validationf("manifest %s: menu entries need a title", code)
		}
		if err := validateMenus(code, menu.Children); err != nil {
			return err
		}
	}
	return nil
}
