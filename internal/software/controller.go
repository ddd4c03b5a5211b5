package software

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/AntoineGS/swselect/internal/payload"
	"github.com/AntoineGS/swselect/internal/tasks"
)

// Option customizes Controller construction.
type Option func(*Controller)

// WithHub sets the readiness hub notified about background work.
func WithHub(h Hub) Option {
	return func(c *Controller) {
		if h != nil {
			c.hub = h
		}
	}
}

// WithRunner sets the task runner used for background work.
func WithRunner(r Runner) Option {
	return func(c *Controller) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithDispatcher sets how background work schedules calls back onto the
// interactive thread.
func WithDispatcher(d Dispatcher) Option {
	return func(c *Controller) {
		if d != nil {
			c.dispatch = d
		}
	}
}

// WithRecorder persists every selection that passes the dependency check.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMode sets the installer mode flags.
func WithMode(m Mode) Option {
	return func(c *Controller) {
		c.mode = m
	}
}

// Controller owns the software selection state: the catalog, the current
// environment, per-group user choices, the last applied selection and the
// dependency check outcome.
//
// Selection changes are meant to come from a single interactive goroutine.
// The dependency check task writes its outcome concurrently; every field is
// guarded by mu and a check only lands when it belongs to the latest apply.
type Controller struct {
	payload  Payload
	hub      Hub
	runner   Runner
	dispatch Dispatcher
	recorder Recorder
	logger   *slog.Logger

	catalog *Catalog
	states  AddonStates
	seed    *Snapshot

	environment    Environment
	selectedGroups []Group
	excludedGroups []Group

	applied    AppliedRecord
	check      CheckState
	generation uint64
	// observedTx is the payload transaction id the catalog was last
	// reconciled against. A different payload id means the source changed.
	observedTx string

	mode Mode
	mu   sync.Mutex
	// checkMu serializes payload submission, the dependency check and the
	// staleness test against the payload transaction id.
	checkMu sync.Mutex
}

// New creates a Controller over p. Without options tasks run in a
// background registry and dispatched calls run immediately.
func New(p Payload, opts ...Option) *Controller {
	c := &Controller{
		payload:  p,
		hub:      nopHub{},
		dispatch: immediate,
		logger:   slog.Default(),
		states:   make(AddonStates),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.runner == nil {
		c.runner = tasks.NewRegistry(context.Background()).WithLogger(c.logger)
	}

	return c
}

// Preselect seeds the selection from a selection file. Its groups and
// exclusions are replayed as explicit user choices once the catalog loads.
func (c *Controller) Preselect(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.environment = s.Environment
	c.selectedGroups = slices.Clone(s.SelectedGroups)
	c.excludedGroups = slices.Clone(s.ExcludedGroups)
	c.seed = &Snapshot{
		Environment:    s.Environment,
		SelectedGroups: slices.Clone(s.SelectedGroups),
		ExcludedGroups: slices.Clone(s.ExcludedGroups),
	}
	c.applySeedLocked()
}

func (c *Controller) applySeedLocked() {
	if c.seed == nil || c.catalog == nil {
		return
	}

	known := c.catalog.Groups()
	for _, g := range c.seed.SelectedGroups {
		if slices.Contains(known, g) {
			c.states[g] = AddonSelected
		}
	}
	for _, g := range c.seed.ExcludedGroups {
		if slices.Contains(known, g) {
			c.states[g] = AddonDeselected
		}
	}
	c.seed = nil
}

// Initialize starts the watcher task that waits for the payload, builds the
// catalog, performs the first refresh on the interactive thread and then
// applies whatever selection is in place.
func (c *Controller) Initialize() {
	c.runner.Go(TaskSoftwareWatcher, c.initialize)
}

func (c *Controller) initialize(ctx context.Context) error {
	c.hub.PostMessage(ScreenName, MsgDownloadingPackages)
	c.runner.Wait(TaskPayload)
	c.hub.PostMessage(ScreenName, MsgDownloadingGroups)

	if err := c.loadCatalog(); err != nil {
		if errors.Is(err, payload.ErrMetadataUnavailable) {
			c.logger.Warn("software catalog unavailable", slog.String("error", err.Error()))
			c.hub.PostMessage(ScreenName, MsgNoSource)
			return nil
		}
		return err
	}

	c.mu.Lock()
	automated := c.mode.Automated && c.mode.PackagesSeen
	c.mu.Unlock()

	if automated {
		// Selection files name their environment; none is picked for them.
		c.runner.Wait(TaskPayloadMetadata)
		if err := c.refresh(false); err != nil {
			return c.noSource(err)
		}
	} else if !c.firstRefresh(ctx) {
		return nil
	}

	c.payload.Release()
	c.hub.Ready(ScreenName, false)

	if _, err := c.apply(); err != nil {
		return fmt.Errorf("applying initial selection: %w", err)
	}

	return nil
}

// firstRefresh runs Refresh on the interactive thread and waits for it.
func (c *Controller) firstRefresh(ctx context.Context) bool {
	done := make(chan error, 1)
	c.dispatch(func() {
		done <- c.Refresh()
	})

	select {
	case err := <-done:
		return c.noSource(err) == nil
	case <-ctx.Done():
		return false
	}
}

// noSource posts the no-source message for metadata errors and swallows
// them. Other errors are returned.
func (c *Controller) noSource(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, payload.ErrMetadataUnavailable) {
		c.hub.PostMessage(ScreenName, MsgNoSource)
		return nil
	}

	return err
}

// loadCatalog rebuilds the catalog and resets every add-on to its default
// state. Nothing is kept when the payload metadata is unavailable.
func (c *Controller) loadCatalog() error {
	cat, states, err := BuildCatalog(c.payload)
	if err != nil {
		return err
	}
	txID := c.payload.TxID()

	c.mu.Lock()
	c.catalog = cat
	c.states = states
	c.observedTx = txID
	c.applySeedLocked()
	c.mu.Unlock()

	c.logger.Debug("software catalog built",
		slog.Int("environments", len(cat.Environments())),
		slog.Int("groups", len(cat.Groups())))

	return nil
}

// Refresh waits for pending metadata, re-validates the current environment
// against the catalog and re-renders the add-ons. The first environment is
// selected when none is.
func (c *Controller) Refresh() error {
	c.runner.Wait(TaskPayloadMetadata)
	return c.refresh(true)
}

func (c *Controller) refresh(pickFirst bool) error {
	envs, err := c.payload.Environments()
	if err != nil {
		return fmt.Errorf("refreshing software selection: %w", err)
	}

	c.mu.Lock()
	if !slices.Contains(envs, c.environment) {
		c.environment = ""
	}
	if c.environment == "" && pickFirst && len(envs) > 0 {
		c.environment = envs[0]
	}
	c.mu.Unlock()

	return c.refreshAddons()
}

// refreshAddons rebuilds the catalog when the source changed underneath the
// screen. The add-on rows themselves are derived on demand by View.
func (c *Controller) refreshAddons() error {
	c.checkMu.Lock()
	c.mu.Lock()
	stale := c.catalog == nil || c.observedTx != c.payload.TxID()
	c.mu.Unlock()
	c.checkMu.Unlock()

	if !stale {
		return nil
	}

	c.logger.Info("installation source changed, rebuilding software catalog")
	if err := c.loadCatalog(); err != nil {
		return err
	}

	c.mu.Lock()
	if !c.catalog.HasEnvironment(c.environment) {
		c.environment = ""
	}
	c.mu.Unlock()

	return nil
}

// ReloadSource runs reload as the metadata task, then refreshes the screen
// on the interactive thread.
func (c *Controller) ReloadSource(reload func(ctx context.Context) error) {
	c.hub.NotReady(ScreenName)
	c.runner.Go(TaskPayloadMetadata, func(ctx context.Context) error {
		c.hub.PostMessage(ScreenName, MsgDownloadingGroups)

		if err := reload(ctx); err != nil {
			c.hub.Ready(ScreenName, false)
			return c.noSource(err)
		}

		c.dispatch(func() {
			if err := c.refresh(true); err != nil {
				if c.noSource(err) != nil {
					c.logger.Error("refreshing after source reload", slog.String("error", err.Error()))
				}
			}
		})
		c.hub.Ready(ScreenName, false)

		return nil
	})
}

// Environment returns the current environment, empty when none is selected.
func (c *Controller) Environment() Environment {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.environment
}

// Catalog returns the catalog built by the last refresh, or nil.
func (c *Controller) Catalog() *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.catalog
}

// AddonState returns the recorded user choice for g.
func (c *Controller) AddonState(g Group) AddonState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.states.Get(g)
}

// Mode returns the installer mode flags.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mode
}

// Applied returns the last applied selection.
func (c *Controller) Applied() AppliedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.applied
	rec.Groups = slices.Clone(rec.Groups)

	return rec
}

// CheckState returns the outcome of the latest dependency check.
func (c *Controller) CheckState() CheckState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.check
}

// ErrorMessage returns the conflict details of a failed check.
func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.check.Status != CheckError {
		return ""
	}

	return c.check.Message
}
