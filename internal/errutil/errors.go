// Package errutil holds the sentinel errors shared across packages and the helpers that
// turn an error chain into a user-facing message and a process exit code.
package errutil

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrEntryNotFound   = errors.New("entry document not found")
	ErrExtractFailed   = errors.New("import extraction failed")
	ErrMaterialize     = errors.New("bundle materialization failed")
	ErrInconsistent    = errors.New("inconsistent bundle state")
	ErrNoBuildRecorded = errors.New("no build recorded")
)

// Exit codes returned by the CLI.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitInvariant   = 3
	ExitMaterialize = 4
)

type exitCoder struct {
	cause error
	code  int
}

func (e *exitCoder) Error() string { return e.cause.Error() }
func (e *exitCoder) Cause() error  { return e.cause }
func (e *exitCoder) Unwrap() error { return e.cause }

// WithExitCode attaches an exit code to an error.
func WithExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &exitCoder{cause: err, code: code}
}

// ExitCode extracts the exit code from an error chain.
// Returns 0 for nil, the attached code if any, and otherwise a code derived
// from the well-known sentinels.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ec *exitCoder
	if errors.As(err, &ec) {
		return ec.code
	}
	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrEntryNotFound):
		return ExitUsage
	case errors.Is(err, ErrInconsistent), errors.HasAssertionFailure(err):
		return ExitInvariant
	case errors.Is(err, ErrMaterialize):
		return ExitMaterialize
	}
	return ExitFailure
}

// Format renders err followed by any hints attached along the chain.
func Format(err error) string {
	if err == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(err.Error())
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintf(&b, "\n  hint: %s", hint)
	}
	return b.String()
}
