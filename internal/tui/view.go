package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AntoineGS/swselect/internal/software"
)

const (
	minPanelWidth = 28
	separatorRule = "────────────"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render("Software Selection"))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")

	switch m.overlay {
	case OverlayError:
		b.WriteString(m.renderErrorDetails())
	case OverlayChanges:
		b.WriteString(m.renderChanges())
	default:
		b.WriteString(m.renderPanels())
		if m.view.Warning != "" {
			b.WriteString("\n")
			b.WriteString(WarningStyle.Render("! " + m.view.Warning))
		}
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(ErrorStyle.Render("Error: " + m.err.Error()))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return BaseStyle.Render(b.String())
}

func (m Model) renderStatus() string {
	status := m.view.Status
	if !m.view.Ready {
		status = m.spinner.View() + " " + status
	} else if m.view.Completed {
		status = SuccessStyle.Render("✓") + " " + status
	}

	if m.notice != "" {
		status += "  " + MutedTextStyle.Render(m.notice)
	}

	return StatusBarStyle.Render(status)
}

func (m Model) panelWidth() int {
	if m.width == 0 {
		return minPanelWidth
	}

	// two panels, each with border and padding, plus the base padding
	return max((m.width-4)/2-4, minPanelWidth)
}

func (m Model) renderPanels() string {
	width := m.panelWidth()

	envStyle, addonStyle := PanelStyle, PanelStyle
	if m.pane == PaneEnvironments {
		envStyle = FocusedPanelStyle
	} else {
		addonStyle = FocusedPanelStyle
	}

	envs := envStyle.Width(width).Render(m.renderEnvironments())
	addons := addonStyle.Width(width).Render(m.renderAddons())

	return lipgloss.JoinHorizontal(lipgloss.Top, envs, " ", addons)
}

func (m Model) renderEnvironments() string {
	var b strings.Builder

	b.WriteString(PanelTitleStyle.Render("Base Environment"))
	b.WriteString("\n")

	if len(m.view.Environments) == 0 {
		b.WriteString(MutedTextStyle.Render("No environments available"))
		return b.String()
	}

	for i, row := range m.view.Environments {
		mark := UncheckedStyle.Render("( )")
		if row.Selected {
			mark = CheckedStyle.Render("(•)")
		}

		line := fmt.Sprintf("%s %s", mark, row.Name)
		b.WriteString(m.renderRow(line, m.pane == PaneEnvironments && i == m.envCursor))
		b.WriteString("\n")

		if row.Description != "" {
			b.WriteString(ListItemStyle.Render("    " + MutedTextStyle.Render(row.Description)))
			b.WriteString("\n")
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderAddons() string {
	var b strings.Builder

	b.WriteString(PanelTitleStyle.Render("Additional Software"))
	b.WriteString("\n")

	if len(m.view.Addons) == 0 {
		b.WriteString(MutedTextStyle.Render("No add-ons for this environment"))
		return b.String()
	}

	for i, row := range m.view.Addons {
		if row.Separator {
			b.WriteString(SeparatorStyle.Render(separatorRule))
			b.WriteString("\n")
			continue
		}

		mark := UncheckedStyle.Render("[ ]")
		if row.Selected {
			mark = CheckedStyle.Render("[x]")
		}

		line := fmt.Sprintf("%s %s", mark, row.Name)
		b.WriteString(m.renderRow(line, m.pane == PaneAddons && i == m.addonCursor))
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderRow(line string, focused bool) string {
	if focused {
		return SelectedListItemStyle.Render("> " + line)
	}

	return ListItemStyle.Render("  " + line)
}

func (m Model) renderErrorDetails() string {
	msg := m.ctrl.ErrorMessage()
	if msg == "" {
		msg = "No error details."
	}

	content := ErrorStyle.Render(software.ErrorDialogLabel) + "\n\n" + msg

	return ErrorBoxStyle.Render(content)
}

func (m Model) renderChanges() string {
	diff := m.ctrl.PendingChanges()
	if diff == "" {
		return BoxStyle.Render(MutedTextStyle.Render("No pending changes."))
	}

	var b strings.Builder
	b.WriteString(PanelTitleStyle.Render("Pending Changes"))
	b.WriteString("\n")

	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+ "):
			b.WriteString(SuccessStyle.Render(line))
		case strings.HasPrefix(line, "- "):
			b.WriteString(ErrorStyle.Render(line))
		default:
			b.WriteString(MutedTextStyle.Render(line))
		}
		b.WriteString("\n")
	}

	return BoxStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}

func (m Model) renderHelp() string {
	switch m.overlay {
	case OverlayError:
		return RenderHelp("q", "quit installer", "esc", "modify selection")
	case OverlayChanges:
		return RenderHelp("esc", "close")
	}

	keys := []string{"↑/↓", "navigate", "tab", "switch pane", "space", "select", "d", "done", "v", "changes"}
	if m.view.Warning != "" {
		keys = append(keys, "e", "error details")
	}
	if m.reload != nil {
		keys = append(keys, "ctrl+r", "reload")
	}
	keys = append(keys, "q", "quit")

	return RenderHelp(keys...)
}
