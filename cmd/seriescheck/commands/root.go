// SPDX-License-Identifier: AGPL-3.0-or-later

/*
seriescheck - incremental regression testing for kernel patch series.
It replays each commit of a series onto its base, runs checkers before and after, and reports only the problems the series introduced.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/bartekus/seriescheck/cmd/seriescheck/internal/clierr"
	"github.com/bartekus/seriescheck/internal/checks"
	"github.com/bartekus/seriescheck/internal/logging"
	"github.com/bartekus/seriescheck/internal/runner"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	debug      bool
	quiet      bool
	noColor    bool
	logFormat  string
	configPath string

	// color is resolved in PersistentPreRunE.
	color bool
}

// NewRootCmd constructs the seriescheck root Cobra command.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("SERIESCHECK_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	reg, err := checks.NewRegistry()
	if err != nil {
		panic(fmt.Sprintf("built-in checks: %v", err))
	}

	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "seriescheck",
		Short: "Incremental regression testing for patch series",
		Long: `seriescheck replays each commit of a series onto its base and runs the
registered checks around it, reporting only problems the series introduced.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.color = !opts.noColor && isTerminal(cmd.ErrOrStderr())
			level := logging.Level(opts.debug, opts.quiet)
			if err := logging.Init(level, opts.logFormat, opts.color, cmd.ErrOrStderr()); err != nil {
				return clierr.Wrap(clierr.ExitUsage, "invalid --log-format", err)
			}
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.debug, "debug", "d", false, "enable debug output")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "only print warnings and errors")
	pf.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	pf.StringVar(&opts.logFormat, "log-format", logging.FormatPretty, "log format: pretty, text or json")
	pf.StringVar(&opts.configPath, "config", "", "config file (default <repo>/.seriescheck.yaml)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of seriescheck",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "seriescheck version %s\n", version)
		},
	})

	cmd.AddCommand(newTestCmd(opts, reg))
	cmd.AddCommand(newChecksCmd(reg))
	cmd.AddCommand(newReportCmd(opts, reg))
	cmd.AddCommand(newResetCmd(opts))

	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// orderedNames lists the check names in run order.
func orderedNames(reg *runner.Registry) []string {
	var names []string
	for _, c := range reg.Ordered() {
		names = append(names, c.Name())
	}
	return names
}
