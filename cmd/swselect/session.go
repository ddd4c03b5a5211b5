package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AntoineGS/swselect/internal/config"
	"github.com/AntoineGS/swselect/internal/hub"
	"github.com/AntoineGS/swselect/internal/payload"
	"github.com/AntoineGS/swselect/internal/software"
	"github.com/AntoineGS/swselect/internal/state"
	"github.com/AntoineGS/swselect/internal/tasks"
)

// session is one software selection run: the repository, its background
// tasks, the hub, the history store and the controller.
type session struct {
	cfg      *config.AppConfig
	repo     *payload.Repo
	registry *tasks.Registry
	hub      *hub.Hub
	store    *state.Store
	ctrl     *software.Controller
}

// resolveConfig merges flags, environment and the app config.
func resolveConfig(opts *options) (*config.AppConfig, config.Overrides, error) {
	if err := config.LoadEnv(".env"); err != nil {
		return nil, config.Overrides{}, err
	}

	overrides := config.OverridesFromEnv()
	if opts.catalogPath != "" {
		overrides.Catalog = opts.catalogPath
	}
	if opts.live {
		overrides.LiveImage = true
	}

	if overrides.Catalog == "" {
		cfg, err := config.LoadAppConfig()
		if err != nil {
			return nil, overrides, err
		}
		overrides.Apply(cfg)
		return cfg, overrides, nil
	}

	cfg := &config.AppConfig{}
	if appCfg, err := config.LoadAppConfig(); err == nil {
		cfg = appCfg
	} else if !errors.Is(err, config.ErrAppConfigNotFound) {
		slog.Debug("ignoring app config", slog.String("error", err.Error()))
	}
	overrides.Apply(cfg)

	abs, err := filepath.Abs(cfg.Catalog)
	if err != nil {
		return nil, overrides, fmt.Errorf("resolving catalog path: %w", err)
	}
	cfg.Catalog = abs

	return cfg, overrides, nil
}

// selectionSeed reads the initial selection from the kickstart file or the
// selection flags. Selections from a kickstart file run in automated mode.
func selectionSeed(opts *options) (*software.Snapshot, software.Mode, error) {
	var mode software.Mode

	if opts.kickstartPath != "" {
		ks, err := config.LoadKickstart(opts.kickstartPath)
		if err != nil {
			return nil, mode, err
		}

		mode.Automated = true
		if ks.Packages == nil {
			return nil, mode, nil
		}
		mode.PackagesSeen = true

		return &software.Snapshot{
			Environment:    software.Environment(ks.Packages.Environment),
			SelectedGroups: toGroups(ks.Packages.Groups),
			ExcludedGroups: toGroups(ks.Packages.ExcludedGroups),
		}, mode, nil
	}

	if opts.environment == "" && len(opts.groups) == 0 && len(opts.excluded) == 0 {
		return nil, mode, nil
	}

	return &software.Snapshot{
		Environment:    software.Environment(opts.environment),
		SelectedGroups: toGroups(opts.groups),
		ExcludedGroups: toGroups(opts.excluded),
	}, mode, nil
}

func toGroups(names []string) []software.Group {
	groups := make([]software.Group, 0, len(names))
	for _, n := range names {
		groups = append(groups, software.Group(n))
	}

	return groups
}

// openSession wires a controller whose interactive calls go to dispatch and
// starts loading the repository metadata in the background.
func openSession(ctx context.Context, opts *options, dispatch software.Dispatcher) (*session, error) {
	cfg, overrides, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}

	seed, mode, err := selectionSeed(opts)
	if err != nil {
		return nil, err
	}
	if overrides.Automated {
		mode.Automated = true
	}
	mode.LiveImage = overrides.LiveImage

	logger := slog.Default()

	s := &session{
		cfg:      cfg,
		repo:     payload.NewRepo(cfg.Catalog).WithLogger(logger),
		registry: tasks.NewRegistry(ctx).WithLogger(logger),
		hub:      hub.New(hub.WithLogger(logger)),
	}

	ctrlOpts := []software.Option{
		software.WithHub(s.hub),
		software.WithRunner(s.registry),
		software.WithDispatcher(dispatch),
		software.WithLogger(logger),
		software.WithMode(mode),
	}

	store, err := state.Open(cfg.StateDBPath())
	if err != nil {
		// Non-fatal: selections are not recorded
		fmt.Fprintf(os.Stderr, "Warning: could not open selection history: %v\n", err)
	} else {
		s.store = store.WithSource(sourceName(cfg))
		ctrlOpts = append(ctrlOpts, software.WithRecorder(s.store))
	}

	s.ctrl = software.New(s.repo, ctrlOpts...)
	if seed != nil {
		s.ctrl.Preselect(*seed)
	}

	s.registry.Go(software.TaskPayload, s.repo.Setup)

	return s, nil
}

func sourceName(cfg *config.AppConfig) string {
	if cfg.SourceName != "" {
		return cfg.SourceName
	}

	return filepath.Base(cfg.Catalog)
}

// run initializes the controller and waits until the initial dependency
// check finished.
func (s *session) run() error {
	s.ctrl.Initialize()
	s.registry.Wait(software.TaskSoftwareWatcher)
	s.registry.Wait(software.TaskCheckSoftware)

	if err := s.registry.Err(software.TaskSoftwareWatcher); err != nil {
		return err
	}

	return nil
}

// Close stops background tasks and closes the history store.
func (s *session) Close() {
	s.registry.Close()
	if s.store != nil {
		_ = s.store.Close()
	}
}
