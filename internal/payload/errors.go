package payload

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for payload operations
var (
	ErrMetadataUnavailable = errors.New("repository metadata unavailable")
	ErrNoSuchEnvironment   = errors.New("no such environment")
	ErrNoSuchGroup         = errors.New("no such group")
	ErrInvalidCatalog      = errors.New("invalid catalog")
)

// DependencyError is returned by a dependency check that found conflicts or
// unresolvable requirements in the current selection.
type DependencyError struct {
	Conflicts []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency check failed: %s", strings.Join(e.sorted(), "; "))
}

// Message returns the conflict descriptions sorted and joined by newlines.
func (e *DependencyError) Message() string {
	return strings.Join(e.sorted(), "\n")
}

func (e *DependencyError) sorted() []string {
	out := make([]string, len(e.Conflicts))
	copy(out, e.Conflicts)
	sort.Strings(out)

	return out
}

// NewDependencyError creates a new DependencyError
func NewDependencyError(conflicts ...string) *DependencyError {
	return &DependencyError{Conflicts: conflicts}
}

// ValidationErrors holds every problem found while validating a catalog
type ValidationErrors struct {
	Errors []error
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

func (e *ValidationErrors) Unwrap() error {
	return ErrInvalidCatalog
}

func (e *ValidationErrors) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}
