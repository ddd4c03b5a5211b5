package software

import (
	"slices"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffSelection returns a line diff between two selections, one line for
// the environment and one per group in sorted order. Removed lines start
// with "- ", added lines with "+ ", unchanged lines with two spaces. It
// returns an empty string when the selections match.
func DiffSelection(from, to Snapshot) string {
	a, b := selectionLines(from), selectionLines(to)
	if a == b {
		return ""
	}

	dmp := diffmatchpatch.New()
	ca, cb, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(ca, cb, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var sb strings.Builder
	for _, d := range diffs {
		lines := strings.Split(d.Text, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for _, line := range lines {
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				sb.WriteString("- " + line + "\n")
			case diffmatchpatch.DiffInsert:
				sb.WriteString("+ " + line + "\n")
			case diffmatchpatch.DiffEqual:
				sb.WriteString("  " + line + "\n")
			}
		}
	}

	return sb.String()
}

func selectionLines(s Snapshot) string {
	var sb strings.Builder
	if s.Environment != "" {
		sb.WriteString("environment " + string(s.Environment) + "\n")
	}

	groups := slices.Clone(s.SelectedGroups)
	slices.Sort(groups)
	for _, g := range slices.Compact(groups) {
		sb.WriteString("group " + string(g) + "\n")
	}

	return sb.String()
}

// PendingChanges diffs the last applied selection against the add-ons
// currently checked.
func (c *Controller) PendingChanges() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := Snapshot{
		Environment:    c.applied.Environment,
		SelectedGroups: c.applied.Groups,
	}
	to := Snapshot{
		Environment:    c.environment,
		SelectedGroups: c.selectedAddonsLocked(),
	}

	return DiffSelection(from, to)
}
