// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bartekus/seriescheck/cmd/seriescheck/internal/clierr"
	"github.com/bartekus/seriescheck/internal/config"
	"github.com/bartekus/seriescheck/internal/execx"
	"github.com/bartekus/seriescheck/internal/logging"
	"github.com/bartekus/seriescheck/internal/runner"
	"github.com/bartekus/seriescheck/internal/vcs"
)

// workspace is the repository the command operates on.
type workspace struct {
	root   string
	cfg    config.Config
	exec   execx.Runner
	repo   *vcs.Git
	store  *runner.StateStore
	outDir string
}

func loadWorkspace(ctx context.Context, opts *globalOptions) (*workspace, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := vcs.NewGit(wd, nil).Toplevel(ctx)
	if err != nil {
		return nil, clierr.Wrap(clierr.ExitFatal, "not inside a git work tree", err)
	}

	var cfg config.Config
	path := opts.configPath
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, path, err = config.Discover(root)
	}
	if err != nil {
		return nil, clierr.Wrap(clierr.ExitUsage, "invalid config", err)
	}
	if path != "" {
		logging.New("config").Debug("loaded config", "path", path)
	}

	exec := execx.OS{Timeout: cfg.CommandTimeout}
	outDir := cfg.OutPath(root)
	return &workspace{
		root:   root,
		cfg:    cfg,
		exec:   exec,
		repo:   vcs.NewGit(root, exec),
		store:  runner.NewStateStore(filepath.Join(outDir, "run")),
		outDir: outDir,
	}, nil
}
