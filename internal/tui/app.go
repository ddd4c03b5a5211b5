package tui

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AntoineGS/swselect/internal/hub"
	"github.com/AntoineGS/swselect/internal/software"
)

// Config wires the screen to its controller.
type Config struct {
	Controller *software.Controller
	// Bridge must be the dispatcher the controller was created with.
	Bridge *Bridge
	Hub    *hub.Hub
	// Reload reloads the installation source, nil disables ctrl+r.
	Reload func(ctx context.Context) error
}

// Run starts the controller and the interactive screen. It returns once the
// user quits.
func Run(cfg Config) error {
	var messages <-chan hub.Message
	if cfg.Hub != nil {
		sub := cfg.Hub.Subscribe()
		defer sub.Close()
		messages = sub.Messages
	}
	defer cfg.Bridge.Close()

	model := NewModel(cfg.Controller, cfg.Bridge, messages).WithReload(cfg.Reload)

	cfg.Controller.Initialize()

	p := tea.NewProgram(model, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	if _, ok := finalModel.(Model); !ok {
		return fmt.Errorf("unexpected model type")
	}

	printFinalSummary(os.Stdout, cfg.Controller)

	return nil
}

func printFinalSummary(w io.Writer, ctrl *software.Controller) {
	applied := ctrl.Applied()

	if applied.Environment == "" {
		fmt.Fprintf(w, "\nNo software selection applied\n")
		return
	}

	fmt.Fprintf(w, "\nSoftware selection: %s", applied.Environment)
	if len(applied.Groups) > 0 {
		fmt.Fprintf(w, " with %d add-ons", len(applied.Groups))
	}
	if !ctrl.Completed() {
		fmt.Fprintf(w, " (%s)", ctrl.Status())
	}

	fmt.Fprintln(w)
}

// IsTerminal checks if stdout is a terminal
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}

	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
