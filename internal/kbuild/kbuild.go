// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kbuild drives the kernel build system.
package kbuild

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/bartekus/seriescheck/internal/execx"
)

// Kernel is a kernel source tree plus the settings every make invocation
// shares.
type Kernel struct {
	Root   string // source tree, make runs here
	OutDir string // KBUILD_OUTPUT
	LogDir string // where snapshot logs are written

	Arch         string
	CrossCompile string
	Jobs         int // zero means DefaultJobs(runtime.NumCPU())

	Exec execx.Runner
}

// DefaultJobs leaves some headroom on bigger machines: two cpus above four,
// one otherwise, never less than one job.
func DefaultJobs(cpus int) int {
	n := cpus - 1
	if cpus > 4 {
		n = cpus - 2
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (k *Kernel) jobs() int {
	if k.Jobs > 0 {
		return k.Jobs
	}
	return DefaultJobs(runtime.NumCPU())
}

// Argv returns the full make command line for args.
func (k *Kernel) Argv(args ...string) []string {
	argv := []string{
		"make",
		"-j" + strconv.Itoa(k.jobs()),
		"KBUILD_OUTPUT=" + k.OutDir,
		"ARCH=" + k.Arch,
		"CROSS_COMPILE=" + k.CrossCompile,
	}
	return append(argv, args...)
}

// Make runs make in the source tree. A non-zero exit is reported in the
// result, not as an error.
func (k *Kernel) Make(ctx context.Context, args ...string) (execx.Result, error) {
	if k.OutDir != "" {
		if err := os.MkdirAll(k.OutDir, 0o755); err != nil {
			return execx.Result{}, fmt.Errorf("creating build output dir: %w", err)
		}
	}
	r := k.Exec
	if r == nil {
		r = execx.OS{}
	}
	res, err := r.Run(ctx, execx.Cmd{Argv: k.Argv(args...), Dir: k.Root})
	if err != nil {
		return res, fmt.Errorf("make %v: %w", args, err)
	}
	return res, nil
}

// LogPath is where SaveLog writes the snapshot called name.
func (k *Kernel) LogPath(name string) string {
	return filepath.Join(k.LogDir, "log-"+name+".txt")
}

// SaveLog writes a raw text snapshot for later inspection.
func (k *Kernel) SaveLog(name, text string) error {
	if k.LogDir == "" {
		return nil
	}
	if err := os.MkdirAll(k.LogDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(k.LogPath(name), []byte(text), 0o644)
}
