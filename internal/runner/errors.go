// SPDX-License-Identifier: AGPL-3.0-or-later
package runner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bartekus/seriescheck/internal/execx"
)

// ErrInvalidTransition is returned when an instance is driven out of order.
var ErrInvalidTransition = errors.New("invalid check state transition")

// FatalError aborts the whole run. Any other error returned by a check only
// fails that check.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Fatal marks err as run-aborting. A nil err stays nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return err
	}
	return &FatalError{Err: err}
}

// Fatalf is Fatal(fmt.Errorf(format, args...)).
func Fatalf(format string, args ...any) error {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}

// IsFatal reports whether err aborts the run.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// ExitPolicy declares what an external tool's exit codes mean for a check.
// Codes missing from the map are fatal.
type ExitPolicy map[int]Status

// Classify maps the exit code of res for the tool described by what.
func (p ExitPolicy) Classify(what string, res execx.Result) (Status, error) {
	if st, ok := p[res.ExitCode]; ok {
		return st, nil
	}
	return StatusFail, Fatalf("%s exited with status %d%s", what, res.ExitCode, tail(res.Stderr, 20))
}

// tail renders the last n lines of output for an error message.
func tail(out []byte, n int) string {
	text := strings.TrimSpace(string(out))
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = append([]string{"...(truncated)..."}, lines[len(lines)-n:]...)
	}
	return ":\n" + strings.Join(lines, "\n")
}
