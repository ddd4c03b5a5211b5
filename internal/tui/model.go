package tui

import (
	"context"
	"errors"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AntoineGS/swselect/internal/hub"
	"github.com/AntoineGS/swselect/internal/software"
)

// Pane identifies the focused list.
type Pane int

// Panes of the selection screen.
const (
	PaneEnvironments Pane = iota
	PaneAddons
)

// Overlay is a popup drawn over the screen.
type Overlay int

// Overlays.
const (
	OverlayNone Overlay = iota
	OverlayError
	OverlayChanges
)

// Model is the bubbletea model of the software selection screen.
type Model struct {
	ctrl     *software.Controller
	bridge   *Bridge
	messages <-chan hub.Message
	reload   func(ctx context.Context) error
	logger   *slog.Logger

	spinner spinner.Model
	view    software.View

	// notice is the latest hub message or action feedback
	notice string
	err    error

	envCursor   int
	addonCursor int
	width       int
	height      int

	pane     Pane
	overlay  Overlay
	quitting bool
}

// NewModel creates the screen over ctrl. bridge must be the dispatcher the
// controller was built with; messages may be nil.
func NewModel(ctrl *software.Controller, bridge *Bridge, messages <-chan hub.Message) Model {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(SpinnerStyle),
	)

	m := Model{
		ctrl:     ctrl,
		bridge:   bridge,
		messages: messages,
		logger:   slog.Default(),
		spinner:  s,
	}
	m.syncView()

	return m
}

// WithReload enables reloading the installation source with ctrl+r.
func (m Model) WithReload(reload func(ctx context.Context) error) Model {
	m.reload = reload
	return m
}

// WithLogger sets a custom logger
func (m Model) WithLogger(logger *slog.Logger) Model {
	m.logger = logger
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.bridge != nil {
		cmds = append(cmds, m.bridge.next())
	}
	if m.messages != nil {
		cmds = append(cmds, waitForHub(m.messages))
	}

	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case dispatchMsg:
		msg()
		m.syncView()
		if m.bridge == nil {
			return m, nil
		}
		return m, m.bridge.next()

	case hubMsg:
		if msg.Screen == software.ScreenName && msg.Kind == hub.KindMessage {
			m.notice = msg.Text
		}
		m.syncView()
		return m, waitForHub(m.messages)

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, Keys.ForceQuit) {
		return m.quit()
	}

	switch m.overlay {
	case OverlayError:
		switch {
		case key.Matches(msg, Keys.Quit):
			return m.quit()
		case key.Matches(msg, Keys.Cancel), key.Matches(msg, Keys.Details):
			m.overlay = OverlayNone
		}
		return m, nil
	case OverlayChanges:
		if key.Matches(msg, Keys.Cancel) || key.Matches(msg, Keys.Changes) || key.Matches(msg, Keys.Quit) {
			m.overlay = OverlayNone
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m.quit()
	case key.Matches(msg, Keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, Keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, Keys.Left):
		m.pane = PaneEnvironments
	case key.Matches(msg, Keys.Right):
		m.pane = PaneAddons
		m.addonCursor = m.clampAddonCursor(m.addonCursor, 1)
	case key.Matches(msg, Keys.SwitchPane):
		if m.pane == PaneEnvironments {
			m.pane = PaneAddons
			m.addonCursor = m.clampAddonCursor(m.addonCursor, 1)
		} else {
			m.pane = PaneEnvironments
		}
	case key.Matches(msg, Keys.Toggle):
		m.toggle()
	case key.Matches(msg, Keys.Apply):
		m.apply()
	case key.Matches(msg, Keys.Details):
		if m.ctrl.ErrorMessage() != "" {
			m.overlay = OverlayError
		}
	case key.Matches(msg, Keys.Changes):
		m.overlay = OverlayChanges
	case key.Matches(msg, Keys.Reload):
		if m.reload != nil {
			m.notice = software.MsgDownloadingGroups
			m.ctrl.ReloadSource(m.reload)
		}
	}

	m.syncView()

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.bridge != nil {
		m.bridge.Close()
	}

	return m, tea.Quit
}

func (m *Model) syncView() {
	m.view = m.ctrl.View()

	if m.envCursor >= len(m.view.Environments) {
		m.envCursor = max(len(m.view.Environments)-1, 0)
	}
	if m.addonCursor >= len(m.view.Addons) {
		m.addonCursor = max(len(m.view.Addons)-1, 0)
	}
}

func (m *Model) moveCursor(delta int) {
	if m.pane == PaneEnvironments {
		next := m.envCursor + delta
		if next >= 0 && next < len(m.view.Environments) {
			m.envCursor = next
		}
		return
	}

	m.addonCursor = m.clampAddonCursor(m.addonCursor+delta, delta)
}

// clampAddonCursor keeps the cursor in range and off separator rows,
// stepping in direction dir.
func (m Model) clampAddonCursor(pos, dir int) int {
	rows := m.view.Addons
	if len(rows) == 0 {
		return 0
	}
	if dir == 0 {
		dir = 1
	}

	pos = min(max(pos, 0), len(rows)-1)
	for pos >= 0 && pos < len(rows) && rows[pos].Separator {
		pos += dir
	}
	if pos < 0 || pos >= len(rows) {
		return m.addonCursor
	}

	return pos
}

func (m *Model) toggle() {
	m.err = nil

	if m.pane == PaneEnvironments {
		if m.envCursor >= len(m.view.Environments) {
			return
		}
		row := m.view.Environments[m.envCursor]
		if err := m.ctrl.SwitchEnvironment(row.ID); err != nil {
			m.fail("switching environment", err)
			return
		}
		m.addonCursor = 0
		m.syncView()
		m.addonCursor = m.clampAddonCursor(0, 1)
		return
	}

	if m.addonCursor >= len(m.view.Addons) {
		return
	}
	row := m.view.Addons[m.addonCursor]
	if row.Separator {
		return
	}
	if _, err := m.ctrl.ToggleAddon(row.ID); err != nil {
		m.fail("toggling add-on", err)
	}
}

func (m *Model) apply() {
	m.err = nil

	launched, err := m.ctrl.Apply()
	if err != nil {
		m.fail("applying selection", err)
		return
	}

	switch {
	case launched:
		m.notice = software.MsgChecking
	case m.ctrl.Environment() == "":
		m.notice = software.StatusNothing
	default:
		m.notice = "Selection unchanged"
	}
}

func (m *Model) fail(action string, err error) {
	m.err = err
	if !errors.Is(err, software.ErrNoCatalog) {
		m.logger.Warn(action, slog.String("error", err.Error()))
	}
}

// Quitting reports whether the user left the screen.
func (m Model) Quitting() bool {
	return m.quitting
}
