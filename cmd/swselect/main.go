// Package main provides the CLI entry point for swselect.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AntoineGS/swselect/internal/tui"
)

var version = "dev"

// options holds the flag values of one command tree.
type options struct {
	catalogPath   string
	kickstartPath string
	environment   string
	title         string
	addr          string
	groups        []string
	excluded      []string
	historyLimit  int
	prune         int
	verbose       bool
	live          bool
	logFile       *os.File
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:     "swselect",
		Version: version,
		Short:   "Choose the software installed by the installer",
		Long: `swselect picks a base environment and its add-on groups from a repository
catalog, checks the selection for dependency problems and records every
selection that passes.

Configuration is read from, in order of precedence:
  command line flags
  SWSELECT_* environment variables (a .env file in the working directory is loaded)
  ~/.config/swselect/config.yaml

Run 'swselect init <catalog>' to set up the app configuration.
Run without arguments to start the interactive screen.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd, opts)
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmd, opts)
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if opts.logFile != nil {
				_ = opts.logFile.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.catalogPath, "catalog", "c", "", "Repository catalog (overrides app config)")
	rootCmd.PersistentFlags().StringVarP(&opts.kickstartPath, "kickstart", "k", "", "Kickstart file with a packages section (automated install)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&opts.live, "live", false, "Installing from a live image")

	initCmd := &cobra.Command{
		Use:   "init <catalog>",
		Short: "Initialize app configuration",
		Long: `Initialize the app configuration by setting the path to the repository catalog.

This creates ~/.config/swselect/config.yaml.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), args[0])
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List environments and their add-ons",
		Long: `Display every environment of the catalog with the add-ons offered for it.
Add-ons specific to the environment come first; [x] marks default add-ons.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.OutOrStdout(), opts)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Apply a selection and check its dependencies",
		Long: `Apply the selection given by flags or by the kickstart file, wait for the
dependency check and print the result. Exits non-zero when the selection is not
complete.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts)
		},
	}
	addSelectionFlags(checkCmd, opts)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Print the selection as a kickstart packages section",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, opts)
		},
	}
	addSelectionFlags(exportCmd, opts)
	exportCmd.Flags().StringVar(&opts.title, "title", "", "Comment written above the packages section")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List applied selections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd.OutOrStdout(), opts)
		},
	}
	historyCmd.Flags().IntVarP(&opts.historyLimit, "limit", "n", 20, "Number of selections to show")
	historyCmd.Flags().IntVar(&opts.prune, "prune", 0, "Keep only the newest N selections")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the selection screen over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	addSelectionFlags(serveCmd, opts)
	serveCmd.Flags().StringVar(&opts.addr, "addr", "127.0.0.1:8080", "Address to listen on")

	rootCmd.AddCommand(initCmd, listCmd, checkCmd, exportCmd, historyCmd, serveCmd)

	return rootCmd
}

func addSelectionFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVarP(&opts.environment, "environment", "e", "", "Base environment to select")
	cmd.Flags().StringSliceVarP(&opts.groups, "group", "g", nil, "Add-on group to select (repeatable)")
	cmd.Flags().StringSliceVar(&opts.excluded, "exclude", nil, "Group to exclude (repeatable)")
}

// setupLogging installs the default logger. The interactive screen owns the
// terminal, so its logs go to a file.
func setupLogging(cmd *cobra.Command, opts *options) {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}

	var logWriter io.Writer = os.Stderr
	if cmd.Parent() == nil && tui.IsTerminal() {
		logPath := filepath.Join(os.TempDir(), "swselect.log")
		f, err := os.Create(logPath) //nolint:gosec // fixed name in the temp dir
		if err == nil {
			opts.logFile = f
			logWriter = f
			if opts.verbose {
				fmt.Fprintf(os.Stderr, "Verbose logs: %s\n", logPath)
			}
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: level,
	})))
}
