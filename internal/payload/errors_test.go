package payload

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDependencyError_Message(t *testing.T) {
	err := NewDependencyError("pkg-z missing", "pkg-x conflicts with pkg-y")

	want := "pkg-x conflicts with pkg-y\npkg-z missing"
	if got := err.Message(); got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}

	if !strings.Contains(err.Error(), "pkg-x conflicts with pkg-y; pkg-z missing") {
		t.Errorf("Error() = %q", err.Error())
	}

	// Message must not reorder the caller's slice.
	if err.Conflicts[0] != "pkg-z missing" {
		t.Error("Conflicts should keep original order")
	}
}

func TestDependencyError_As(t *testing.T) {
	wrapped := fmt.Errorf("apply: %w", NewDependencyError("a"))

	var depErr *DependencyError
	if !errors.As(wrapped, &depErr) {
		t.Fatal("errors.As should find DependencyError")
	}
	if depErr.Message() != "a" {
		t.Errorf("Message() = %q, want %q", depErr.Message(), "a")
	}
}

func TestValidationErrors(t *testing.T) {
	errs := &ValidationErrors{}
	if errs.HasErrors() {
		t.Error("new ValidationErrors should be empty")
	}
	if errs.Error() != "no validation errors" {
		t.Errorf("Error() = %q", errs.Error())
	}

	errs.Add(nil)
	errs.Add(errors.New("first"))
	errs.Add(errors.New("second"))

	if len(errs.Errors) != 2 {
		t.Errorf("Add should skip nil, got %d errors", len(errs.Errors))
	}
	if errs.Error() != "validation failed: first; second" {
		t.Errorf("Error() = %q", errs.Error())
	}
	if !errors.Is(errs, ErrInvalidCatalog) {
		t.Error("ValidationErrors should unwrap to ErrInvalidCatalog")
	}
}
