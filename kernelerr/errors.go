// Package kernelerr implements the five-category error taxonomy from §7:
// configuration, resource, integrity, and interface errors are reported
// synchronously by wrapping one of this package's sentinel values, so a
// caller can classify a failure with errors.Is regardless of which
// package raised it. Numerical errors are deliberately NOT constructed
// here — §7 routes them into the substrate's accumulating error-counter
// record instead of returning them from a call (numerics.ErrorCounters,
// surfaced via kernel.QueryErrorFlags), so ErrNumerical exists only for
// the rare case a numerical condition does need to fail a call outright;
// no function in this module currently returns it.
package kernelerr

import "fmt"

// Sentinel category errors (§7 "Error taxonomy"). Compare against these
// with errors.Is, never by string matching.
var (
	ErrConfiguration = categoryError("configuration")
	ErrResource      = categoryError("resource")
	ErrNumerical     = categoryError("numerical")
	ErrIntegrity     = categoryError("integrity")
	ErrInterface     = categoryError("interface")
)

type categoryError string

func (c categoryError) Error() string { return string(c) }

// wrapped pairs a category sentinel with the specific error describing
// what went wrong, so errors.Is(err, kernelerr.ErrInterface) succeeds
// while the message still carries the call-site detail.
type wrapped struct {
	category error
	err      error
}

func (w *wrapped) Error() string {
	return fmt.Sprintf("%s: %s", w.category, w.err)
}

// Unwrap exposes both the category sentinel and the underlying error to
// errors.Is/errors.As (Go's multi-error unwrap).
func (w *wrapped) Unwrap() []error {
	return []error{w.category, w.err}
}

// Wrap tags err with category, preserving err's own chain.
func Wrap(category error, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{category: category, err: err}
}

// Errorf formats a message and tags it with category in one call, e.g.
// kernelerr.Errorf(kernelerr.ErrInterface, "kernel: unknown handle %d", id).
func Errorf(category error, format string, args ...any) error {
	return Wrap(category, fmt.Errorf(format, args...))
}
