package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AntoineGS/swselect/internal/api"
	"github.com/AntoineGS/swselect/internal/config"
	"github.com/AntoineGS/swselect/internal/payload"
	"github.com/AntoineGS/swselect/internal/software"
	"github.com/AntoineGS/swselect/internal/state"
	"github.com/AntoineGS/swselect/internal/tui"
)

// errIncomplete is returned by check when the selection cannot be used.
var errIncomplete = errors.New("software selection is not complete")

func runInit(w io.Writer, path string) error {
	absPath, err := filepath.Abs(config.ExpandPath(path))
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(absPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("catalog does not exist: %s", absPath)
	}
	if err != nil {
		return fmt.Errorf("checking catalog: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("not a file: %s", absPath)
	}

	if _, err := payload.LoadCatalog(absPath); err != nil {
		fmt.Fprintf(w, "Warning: %v\n", err)
		fmt.Fprintln(w, "You'll need to fix it before using swselect.")
	}

	appCfg := &config.AppConfig{
		Catalog: absPath,
	}
	if err := config.SaveAppConfig(appCfg); err != nil {
		return fmt.Errorf("saving app config: %w", err)
	}

	fmt.Fprintf(w, "App configuration saved to %s\n", config.AppConfigPath())
	fmt.Fprintf(w, "Catalog: %s\n", absPath)

	return nil
}

func runInteractive(cmd *cobra.Command, opts *options) error {
	if !tui.IsTerminal() {
		return fmt.Errorf("interactive mode requires a terminal; use subcommands (check, export, serve) for non-interactive use")
	}

	bridge := tui.NewBridge()

	s, err := openSession(cmd.Context(), opts, bridge.Dispatch)
	if err != nil {
		return err
	}
	defer s.Close()

	if !s.ctrl.Showable() {
		fmt.Fprintln(cmd.OutOrStdout(), "Software selection is not available when installing from a live image")
		return nil
	}

	return tui.Run(tui.Config{
		Controller: s.ctrl,
		Bridge:     bridge,
		Hub:        s.hub,
		Reload:     s.repo.Reload,
	})
}

func runList(w io.Writer, opts *options) error {
	cfg, _, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	c, err := payload.LoadCatalog(cfg.Catalog)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	return writeCatalog(w, payload.NewRepoFromCatalog(c))
}

// writeCatalog prints every environment with its add-ons, specific ones
// first.
func writeCatalog(w io.Writer, p software.Payload) error {
	cat, _, err := software.BuildCatalog(p)
	if err != nil {
		return err
	}

	for i, env := range cat.Environments() {
		if i > 0 {
			fmt.Fprintln(w)
		}

		name, desc, err := p.EnvironmentDescription(env)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s (%s)\n", name, env)
		if desc != "" {
			fmt.Fprintf(w, "  %s\n", desc)
		}

		addons, _ := cat.Addons(env)
		for _, g := range addons.Specific {
			writeAddon(w, p, env, g)
		}
		if len(addons.Specific) > 0 && len(addons.Generic) > 0 {
			fmt.Fprintln(w, "    ----")
		}
		for _, g := range addons.Generic {
			writeAddon(w, p, env, g)
		}
	}

	return nil
}

func writeAddon(w io.Writer, p software.Payload, env software.Environment, g software.Group) {
	mark := "[ ]"
	if p.EnvironmentOptionIsDefault(env, g) {
		mark = "[x]"
	}

	name, _, err := p.GroupDescription(g)
	if err != nil {
		name = string(g)
	}

	fmt.Fprintf(w, "    %s %s (%s)\n", mark, name, g)
}

// runSelection applies the selection headlessly and waits for the check.
func runSelection(ctx context.Context, opts *options) (*session, context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(ctx)

	loop := api.NewLoop()
	go loop.Run(ctx)

	s, err := openSession(ctx, opts, loop.Dispatch)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	if err := s.run(); err != nil {
		s.Close()
		cancel()
		return nil, nil, err
	}

	return s, func() {
		s.Close()
		cancel()
	}, nil
}

func runCheck(cmd *cobra.Command, opts *options) error {
	s, done, err := runSelection(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer done()

	w := cmd.OutOrStdout()
	writeSummary(w, s.ctrl)

	if msg := s.hub.LastMessage(software.ScreenName); msg == software.MsgNoSource {
		fmt.Fprintln(w, msg)
	}
	if s.ctrl.CheckState().Status == software.CheckError {
		fmt.Fprintf(w, "\n%s\n", s.ctrl.ErrorMessage())
	}

	if !s.ctrl.Completed() {
		return errIncomplete
	}

	return nil
}

func writeSummary(w io.Writer, ctrl *software.Controller) {
	applied := ctrl.Applied()

	groups := make([]string, len(applied.Groups))
	for i, g := range applied.Groups {
		groups[i] = string(g)
	}
	addons := strings.Join(groups, ", ")
	if addons == "" {
		addons = "none"
	}

	env := string(applied.Environment)
	if env == "" {
		env = "none"
	}

	fmt.Fprintf(w, "Environment: %s\n", env)
	fmt.Fprintf(w, "Add-ons: %s\n", addons)
	fmt.Fprintf(w, "Status: %s\n", ctrl.Status())
}

func runExport(cmd *cobra.Command, opts *options) error {
	s, done, err := runSelection(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer done()

	if s.ctrl.Environment() == "" {
		return fmt.Errorf("no environment selected")
	}

	return software.RenderKickstart(cmd.OutOrStdout(), s.ctrl.Kickstart(opts.title))
}

func runHistory(w io.Writer, opts *options) error {
	dbPath := config.DefaultStateDB()
	if cfg, _, err := resolveConfig(opts); err == nil {
		dbPath = cfg.StateDBPath()
	} else if env := config.OverridesFromEnv().StateDB; env != "" {
		dbPath = config.ExpandPath(env)
	}

	store, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening selection history: %w", err)
	}
	defer store.Close() //nolint:errcheck // best-effort cleanup

	if opts.prune > 0 {
		if err := store.Prune(opts.prune); err != nil {
			return fmt.Errorf("pruning selection history: %w", err)
		}
	}

	records, err := store.History(opts.historyLimit)
	if err != nil {
		return fmt.Errorf("reading selection history: %w", err)
	}

	fmt.Fprintln(w, tui.PlainText(tui.RenderHistory(records)))

	return nil
}

func runServe(cmd *cobra.Command, opts *options) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := api.NewLoop()
	go loop.Run(ctx)

	s, err := openSession(ctx, opts, loop.Dispatch)
	if err != nil {
		return err
	}
	defer s.Close()

	s.ctrl.Initialize()

	server := api.NewServer(s.ctrl, loop, api.WithReload(s.repo.Reload))
	fmt.Fprintf(cmd.OutOrStdout(), "Serving software selection on http://%s/api/v1\n", opts.addr)

	return server.ListenAndServe(ctx, opts.addr)
}
