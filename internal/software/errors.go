package software

import "errors"

var (
	// ErrUnknownEnvironment is returned when switching to an environment the
	// catalog does not list.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrUnknownGroup is returned when toggling a group that is not offered
	// with the current environment.
	ErrUnknownGroup = errors.New("group not offered with the current environment")

	// ErrNoCatalog is returned by selection changes made before the catalog
	// was loaded.
	ErrNoCatalog = errors.New("catalog not loaded")
)
