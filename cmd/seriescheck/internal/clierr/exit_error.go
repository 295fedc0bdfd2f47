// Package clierr maps command errors to process exit codes.
package clierr

import (
	"errors"
	"fmt"

	"github.com/bartekus/seriescheck/internal/runner"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitGeneric  = 1
	ExitUsage    = 2 // bad flags, config or base
	ExitFindings = 3 // the run completed and a check failed
	ExitFatal    = 4 // the run was aborted
)

type ExitCoder interface {
	error
	ExitCode() int
}

// ExitError carries an explicit exit code and the error that caused it.
type ExitError struct {
	Code  int
	Msg   string
	Cause error
}

func (e *ExitError) Error() string {
	if e.Cause == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Cause.Error()
}

func (e *ExitError) ExitCode() int { return e.Code }
func (e *ExitError) Unwrap() error { return e.Cause }

// New returns an ExitError without a cause. Code 0 becomes ExitGeneric.
func New(code int, msg string) error {
	return Wrap(code, msg, nil)
}

// Newf is New with a formatted message.
func Newf(code int, format string, args ...any) error {
	return Wrap(code, fmt.Sprintf(format, args...), nil)
}

// Wrap returns an ExitError for cause.
func Wrap(code int, msg string, cause error) error {
	if code <= ExitOK {
		code = ExitGeneric
	}
	return &ExitError{Code: code, Msg: msg, Cause: cause}
}

// ExitCodeOf picks the exit code for err. An explicit ExitCoder wins, an
// unwrapped run-aborting error is ExitFatal and anything else is generic.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	var ec ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	if runner.IsFatal(err) {
		return ExitFatal
	}
	return ExitGeneric
}
