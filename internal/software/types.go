// Package software implements the software selection screen: the user picks
// one environment and any number of add-on groups, and the selection is
// validated by a background dependency check against the payload.
package software

import (
	"slices"

	"github.com/AntoineGS/swselect/internal/payload"
)

// Screen names reported to the hub.
const (
	// ScreenName identifies this screen
	ScreenName = "SoftwareSelection"
	// SourceScreen identifies the installation source screen, which is also
	// invalidated while a dependency check runs
	SourceScreen = "InstallationSource"
)

// Background task names.
const (
	TaskSoftwareWatcher = "software-watcher"
	TaskPayload         = "payload"
	TaskPayloadMetadata = "payload-metadata"
	TaskCheckSoftware   = "check-software"
)

// Environment identifies a top-level selectable software set.
type Environment = payload.EnvironmentID

// Group identifies an optional add-on group.
type Group = payload.GroupID

// AddonState records explicit user action on an add-on, independent of the
// environment currently displayed.
type AddonState int

// Add-on states.
const (
	// AddonDefault means the user never touched the add-on
	AddonDefault AddonState = iota
	// AddonSelected means the user selected the add-on
	AddonSelected
	// AddonDeselected means the user de-selected the add-on
	AddonDeselected
)

func (s AddonState) String() string {
	switch s {
	case AddonDefault:
		return "default"
	case AddonSelected:
		return "selected"
	case AddonDeselected:
		return "deselected"
	}

	return "unknown"
}

// AddonStates maps groups to their AddonState. Missing entries are
// AddonDefault.
type AddonStates map[Group]AddonState

// Get returns the state of g.
func (s AddonStates) Get(g Group) AddonState {
	return s[g]
}

// Addons lists the add-ons offered for one environment: the groups specific
// to it, then the generic groups available under any environment.
type Addons struct {
	Specific []Group
	Generic  []Group
}

// All returns the specific add-ons followed by the generic ones.
func (a Addons) All() []Group {
	out := make([]Group, 0, len(a.Specific)+len(a.Generic))
	out = append(out, a.Specific...)
	return append(out, a.Generic...)
}

// Contains reports whether g is offered in either list.
func (a Addons) Contains(g Group) bool {
	return slices.Contains(a.Specific, g) || slices.Contains(a.Generic, g)
}

// Snapshot is what would be committed if the user left the screen now.
type Snapshot struct {
	Environment    Environment
	SelectedGroups []Group
	ExcludedGroups []Group
}

// AppliedRecord is the last selection submitted to the payload. TxID is the
// payload transaction id of the check that validated it, empty when the check
// failed or has not finished.
type AppliedRecord struct {
	Environment Environment
	TxID        string
	Groups      []Group
}

// CheckStatus is the phase of the dependency check.
type CheckStatus int

// Dependency check phases.
const (
	// CheckIdle means no check ran yet
	CheckIdle CheckStatus = iota
	// CheckRunning means a check is in progress
	CheckRunning
	// CheckOK means the last check succeeded
	CheckOK
	// CheckError means the last check failed
	CheckError
)

func (s CheckStatus) String() string {
	switch s {
	case CheckIdle:
		return "idle"
	case CheckRunning:
		return "running"
	case CheckOK:
		return "ok"
	case CheckError:
		return "error"
	}

	return "unknown"
}

// CheckState is the outcome of the latest dependency check. Message is set
// for CheckError only.
type CheckState struct {
	Message string
	Status  CheckStatus
}

// Mode carries the installer mode flags.
type Mode struct {
	// Automated is set for unattended installs driven by a selection file
	Automated bool
	// PackagesSeen is set once a package selection was provided or applied
	PackagesSeen bool
	// LiveImage hides the screen: live images install a fixed payload
	LiveImage bool
}
