package software

import (
	"context"
)

// Payload is the package backend the screen reads catalogs from and submits
// selections to. Catalog listing fails with payload.ErrMetadataUnavailable
// when no source is set up; CheckSoftwareSelection fails with a
// *payload.DependencyError when the selection does not resolve.
type Payload interface {
	Environments() ([]Environment, error)
	Groups() ([]Group, error)
	EnvironmentDescription(env Environment) (name, desc string, err error)
	GroupDescription(grp Group) (name, desc string, err error)
	EnvironmentHasOption(env Environment, grp Group) bool
	EnvironmentOptionIsDefault(env Environment, grp Group) bool
	EnvironmentGroups(env Environment) []Group
	IsGroupVisible(grp Group) bool
	HasInstallableMembers(grp Group) bool
	ResetGroups()
	SelectEnvironment(env Environment) error
	SelectGroup(grp Group) error
	CheckSoftwareSelection(ctx context.Context) error
	TxID() string
	BaseRepo() (string, bool)
	Release()
}

// Hub receives fire-and-forget readiness notifications.
type Hub interface {
	NotReady(screen string)
	Ready(screen string, dirty bool)
	PostMessage(screen, text string)
}

// Runner spawns named background tasks and lets callers poll or join them.
type Runner interface {
	Go(name string, fn func(ctx context.Context) error)
	Running(name string) bool
	Wait(name string)
}

// Dispatcher schedules fn on the interactive thread. It must not run fn on
// the calling goroutine unless that goroutine is the interactive thread.
type Dispatcher func(fn func())

// Recorder persists validated selections.
type Recorder interface {
	SaveSelection(environment string, groups []string, txID string) error
}

type nopHub struct{}

func (nopHub) NotReady(string)            {}
func (nopHub) Ready(string, bool)         {}
func (nopHub) PostMessage(string, string) {}

func immediate(fn func()) { fn() }
