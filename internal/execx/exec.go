// SPDX-License-Identifier: AGPL-3.0-or-later

// Package execx runs external processes and captures their exit code and output.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Cmd describes a single external invocation.
type Cmd struct {
	// Argv is the command and its arguments. Argv[0] is the program.
	// There is no shell involved.
	Argv []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is appended to the inherited process environment.
	Env []string

	// Stdin is fed to the process if non-nil.
	Stdin []byte
}

func (c Cmd) String() string {
	return strings.Join(c.Argv, " ")
}

// Result captures the outcome of a finished process.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner executes commands. A non-zero exit status is reported through
// Result.ExitCode, not as an error; errors are reserved for failures to
// start the process and for cancellation.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (Result, error)
}

// OS is the production Runner backed by os/exec.
type OS struct {
	// Timeout bounds each invocation. Zero means no limit.
	Timeout time.Duration
}

func (r OS) Run(ctx context.Context, c Cmd) (Result, error) {
	if len(c.Argv) == 0 {
		return Result{ExitCode: -1}, errors.New("execx: empty argv")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", c, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	res.ExitCode = -1
	return res, fmt.Errorf("running %s: %w", c, err)
}
