package payload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Repo is a file-backed package repository. It serves the environment and
// group catalog, records the environment and groups selected for
// installation, and validates that selection with a dependency check.
//
// Repo is safe for concurrent use: metadata lookups from the interactive
// thread may run while a dependency check is in progress.
type Repo struct {
	logger         *slog.Logger
	catalog        *Catalog
	envs           map[EnvironmentID]*Environment
	groups         map[GroupID]*Group
	packages       map[string]*Package
	path           string
	txID           string
	selectedGroups []GroupID
	mu             sync.RWMutex
}

// NewRepo creates a Repo for the catalog at path. No metadata is available
// until Setup succeeds.
func NewRepo(path string) *Repo {
	return &Repo{
		path:   path,
		logger: slog.Default(),
	}
}

// NewRepoFromCatalog creates a Repo that serves an already parsed catalog.
func NewRepoFromCatalog(c *Catalog) *Repo {
	r := NewRepo("")
	r.install(c)

	return r
}

// WithLogger sets a custom logger
func (r *Repo) WithLogger(logger *slog.Logger) *Repo {
	r.logger = logger
	return r
}

// Path returns the catalog file backing the repository.
func (r *Repo) Path() string {
	return r.path
}

// Setup loads the catalog metadata. It is meant to run as a background task
// since a real source can take arbitrarily long to fetch.
func (r *Repo) Setup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.logger.Info("loading repository metadata", slog.String("catalog", r.path))

	c, err := LoadCatalog(r.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
	}

	r.mu.Lock()
	r.install(c)
	r.mu.Unlock()

	r.logger.Debug("repository metadata loaded",
		slog.Int("environments", len(c.Environments)),
		slog.Int("groups", len(c.Groups)),
		slog.Int("packages", len(c.Packages)))

	return nil
}

// Reload re-reads the catalog as if the installation source changed. The
// transaction id and selection are reset, so callers holding an earlier
// transaction id see it become invalid.
func (r *Repo) Reload(ctx context.Context) error {
	r.mu.Lock()
	r.txID = ""
	r.selectedGroups = nil
	r.mu.Unlock()

	return r.Setup(ctx)
}

func (r *Repo) install(c *Catalog) {
	r.catalog = c
	r.envs = make(map[EnvironmentID]*Environment, len(c.Environments))
	for i := range c.Environments {
		r.envs[c.Environments[i].ID] = &c.Environments[i]
	}
	r.groups = make(map[GroupID]*Group, len(c.Groups))
	for i := range c.Groups {
		r.groups[c.Groups[i].ID] = &c.Groups[i]
	}
	r.packages = make(map[string]*Package, len(c.Packages))
	for i := range c.Packages {
		r.packages[c.Packages[i].Name] = &c.Packages[i]
	}
	r.selectedGroups = nil
}

// Environments returns environment ids in catalog order.
func (r *Repo) Environments() ([]EnvironmentID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.catalog == nil {
		return nil, ErrMetadataUnavailable
	}

	ids := make([]EnvironmentID, 0, len(r.catalog.Environments))
	for _, env := range r.catalog.Environments {
		ids = append(ids, env.ID)
	}

	return ids, nil
}

// Groups returns group ids in catalog order.
func (r *Repo) Groups() ([]GroupID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.catalog == nil {
		return nil, ErrMetadataUnavailable
	}

	ids := make([]GroupID, 0, len(r.catalog.Groups))
	for _, g := range r.catalog.Groups {
		ids = append(ids, g.ID)
	}

	return ids, nil
}

// EnvironmentDescription returns the display name and description of env.
func (r *Repo) EnvironmentDescription(env EnvironmentID) (string, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.envs[env]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrNoSuchEnvironment, env)
	}

	return e.Name, e.Description, nil
}

// GroupDescription returns the display name and description of grp.
func (r *Repo) GroupDescription(grp GroupID) (string, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[grp]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrNoSuchGroup, grp)
	}

	return g.Name, g.Description, nil
}

// EnvironmentGroups returns every group tied to env: the groups installed
// with it followed by its options.
func (r *Repo) EnvironmentGroups(env EnvironmentID) []GroupID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.envs[env]
	if !ok {
		return nil
	}

	ids := make([]GroupID, 0, len(e.Groups)+len(e.Options))
	ids = append(ids, e.Groups...)
	for _, opt := range e.Options {
		ids = append(ids, opt.Group)
	}

	return ids
}

// EnvironmentHasOption reports whether grp is an option of env.
func (r *Repo) EnvironmentHasOption(env EnvironmentID, grp GroupID) bool {
	_, ok := r.option(env, grp)
	return ok
}

// EnvironmentOptionIsDefault reports whether grp is an option of env that is
// selected by default.
func (r *Repo) EnvironmentOptionIsDefault(env EnvironmentID, grp GroupID) bool {
	opt, ok := r.option(env, grp)
	return ok && opt.Default
}

func (r *Repo) option(env EnvironmentID, grp GroupID) (Option, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.envs[env]
	if !ok {
		return Option{}, false
	}
	for _, opt := range e.Options {
		if opt.Group == grp {
			return opt, true
		}
	}

	return Option{}, false
}

// IsGroupVisible reports whether grp may be offered on its own.
func (r *Repo) IsGroupVisible(grp GroupID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[grp]
	return ok && g.IsVisible()
}

// HasInstallableMembers reports whether at least one package of grp exists
// in the repository.
func (r *Repo) HasInstallableMembers(grp GroupID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[grp]
	if !ok {
		return false
	}
	for _, name := range g.Packages {
		if _, ok := r.packages[name]; ok {
			return true
		}
	}

	return false
}

// ResetGroups clears the group selection.
func (r *Repo) ResetGroups() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.selectedGroups = nil
}

// SelectEnvironment selects every group installed with env.
func (r *Repo) SelectEnvironment(env EnvironmentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.envs[env]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchEnvironment, env)
	}
	for _, g := range e.Groups {
		r.selectLocked(g)
	}

	return nil
}

// SelectGroup adds grp to the selection.
func (r *Repo) SelectGroup(grp GroupID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[grp]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchGroup, grp)
	}
	r.selectLocked(grp)

	return nil
}

func (r *Repo) selectLocked(grp GroupID) {
	for _, g := range r.selectedGroups {
		if g == grp {
			return
		}
	}
	r.selectedGroups = append(r.selectedGroups, grp)
}

// SelectedGroups returns the groups currently selected for installation.
func (r *Repo) SelectedGroups() []GroupID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]GroupID, len(r.selectedGroups))
	copy(out, r.selectedGroups)

	return out
}

// TxID returns the token of the most recent dependency check, or an empty
// string when no check ran since the metadata was (re)loaded.
func (r *Repo) TxID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.txID
}

func (r *Repo) bumpTxID() string {
	r.txID = uuid.NewString()
	return r.txID
}

// BaseRepo returns the base repository location and whether one is set up.
func (r *Repo) BaseRepo() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.catalog == nil {
		return "", false
	}
	if r.catalog.BaseRepo != "" {
		return r.catalog.BaseRepo, true
	}
	if r.path == "" {
		return "", false
	}

	abs, err := filepath.Abs(r.path)
	if err != nil {
		abs = r.path
	}

	return "file://" + filepath.ToSlash(abs), true
}

// Release is called once the initial catalog has been read. A file-backed
// repository holds no handles worth freeing.
func (r *Repo) Release() {
	r.logger.Debug("releasing repository metadata handles", slog.String("catalog", r.path))
}
