package registry

import (
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/bytedance/sonic"

	"github.com/riveredge/riveredge/internal/core/config"
	"github.com/riveredge/riveredge/internal/core/model"
	"github.com/riveredge/riveredge/internal/core/repo"
	"github.com/riveredge/riveredge/pkg/errs"
	"github.com/riveredge/riveredge/pkg/id"
	"github.com/riveredge/riveredge/pkg/log"
)

type Registry struct {
	conf    config.RegistryConfig
	appRepo repo.IApplicationRepository
}

func NewRegistry(conf config.RegistryConfig, appRepo repo.IApplicationRepository) *Registry {
	return &Registry{
		conf:    conf,
		appRepo: appRepo,
	}
}

// Scan walks the manifest directory, validates every manifest concurrently
// and upserts the catalog. Duplicate codes across directories abort the
// scan; the caller treats a scan error as fatal at startup.
func (r *Registry) Scan() ([]Manifest, error) {
	entries, err := os.ReadDir(r.conf.ManifestDir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warnw("manifest directory missing, catalog left as-is", "dir", r.conf.ManifestDir)
			return nil, nil
		}
		return nil, errs.Wrap(err, errs.Internal, "failed to read manifest directory")
	}

	var (
		mu        sync.Mutex
		manifests []Manifest
	)
	g := new(errgroup.Group)
	g.SetLimit(r.conf.ScanWorkers)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := entry.Name()
		g.Go(func() error {
			path := filepath.Join(r.conf.ManifestDir, dir, manifestFile)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				log.Warnw("application directory has no manifest", "dir", dir)
				return nil
			}
			m, err := LoadManifest(path)
			if err != nil {
				return err
			}
			mu.Lock()
			manifests = append(manifests, *m)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(manifests))
	for _, m := range manifests {
		if seen[m.Code] {
			return nil, errs.Conflictf("duplicate application code %q in manifest directory", m.Code)
		}
		seen[m.Code] = true
	}

	for i := range manifests {
		if err := r.upsert(&manifests[i]); err != nil {
			return nil, err
		}
	}
	log.Infow("application catalog scanned", "dir", r.conf.ManifestDir, "applications", len(manifests))
	return manifests, nil
}

func (r *Registry) upsert(m *Manifest) error {
	menuTree, err := sonic.Marshal(m.Menus)
	if err != nil {
		return errs.Wrap(err, errs.Internal, "failed to marshal menu tree")
	}
	perms, err := sonic.Marshal(m.Permissions)
	if err != nil {
		return errs.Wrap(err, errs.Internal, "failed to marshal permission declarations")
	}
	def := &model.ApplicationDefinition{
		BaseModel:           model.BaseModel{ExternalId: id.ExternalId()},
		Code:                m.Code,
		Name:                m.Name,
		Version:             m.Version,
		Icon:                m.Icon,
		RoutePath:           m.RoutePath,
		EntryPoint:          m.EntryPoint,
		MenuTree:            datatypes.JSON(menuTree),
		DeclaredPermissions: datatypes.JSON(perms),
	}
	return r.appRepo.UpsertDefinition(def)
}
