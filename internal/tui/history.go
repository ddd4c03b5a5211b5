package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/AntoineGS/swselect/internal/state"
)

const historyTimeFormat = "2006-01-02 15:04:05"

// RenderHistory renders applied selections as a table, newest first.
func RenderHistory(records []state.SelectionRecord) string {
	if len(records) == 0 {
		return MutedTextStyle.Render("No applied selections recorded")
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		groups := strings.Join(r.Groups, ", ")
		if groups == "" {
			groups = "-"
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.AppliedAt.Local().Format(historyTimeFormat),
			r.Environment,
			groups,
			r.Source,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(primaryColor)).
		Headers("ID", "APPLIED", "ENVIRONMENT", "ADD-ONS", "SOURCE").
		Rows(rows...).
		BorderHeader(true).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().
					Bold(true).
					Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	return t.Render()
}
