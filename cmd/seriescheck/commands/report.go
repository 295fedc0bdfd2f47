// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bartekus/seriescheck/internal/runner"
	"github.com/bartekus/seriescheck/internal/vcs"
)

type reportJSON struct {
	LastRun *runner.LastRun      `json:"last_run"`
	Results []runner.CheckResult `json:"results"`
}

func newReportCmd(g *globalOptions, reg *runner.Registry) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the results of the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd.Context(), g)
			if err != nil {
				return err
			}
			last, err := ws.store.ReadLastRun()
			if err != nil {
				return err
			}

			var results []runner.CheckResult
			if last != nil {
				for _, commit := range last.Commits {
					for _, name := range orderedNames(reg) {
						res, err := ws.store.ReadCheckResult(commit, name)
						if err != nil {
							return err
						}
						if res != nil {
							results = append(results, *res)
						}
					}
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(reportJSON{LastRun: last, Results: results})
			}

			if last == nil {
				_, _ = fmt.Fprintln(out, "No run state found.")
				return nil
			}

			_, _ = fmt.Fprintf(out, "Run %s: %s (base %s, %d commits)\n",
				last.RunID, last.Status, vcs.Abbrev(last.Base, 12), len(last.Commits))
			if last.Error != "" {
				_, _ = fmt.Fprintf(out, "Error: %s\n", last.Error)
			}
			for _, res := range results {
				_, _ = fmt.Fprintf(out, "%s %-10s %-7s %s\n", vcs.Abbrev(res.Commit, 12), res.Check, res.Status, res.Subject)
				if res.Message != "" {
					_, _ = fmt.Fprintf(out, "    %s\n", res.Message)
				}
				if res.Findings != "" {
					for _, line := range strings.Split(strings.TrimRight(res.Findings, "\n"), "\n") {
						_, _ = fmt.Fprintf(out, "    | %s\n", line)
					}
				}
			}
			if len(results) == 0 {
				_, _ = fmt.Fprintln(out, "No check applied.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output results in JSON")
	return cmd
}
