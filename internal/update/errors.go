package update

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownPackage is returned when a requested package has no manifest section
	ErrUnknownPackage = errors.New("unknown package")
	// ErrNoStrategy is returned when a requested package has no registered strategy
	ErrNoStrategy = errors.New("no update strategy registered")
)

// FetchError is a failed strategy invocation for one package.
type FetchError struct {
	Package string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to update %s: %v", e.Package, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// BatchFetchError reports every package whose fetch failed in one run.
// Failures are in package order.
type BatchFetchError struct {
	Failures []*FetchError
}

func (e *BatchFetchError) Error() string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Package
	}
	return fmt.Sprintf("%d package(s) failed to update: %s", len(e.Failures), strings.Join(names, ", "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BatchFetchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Packages returns the names of the failed packages.
func (e *BatchFetchError) Packages() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Package
	}
	return names
}
