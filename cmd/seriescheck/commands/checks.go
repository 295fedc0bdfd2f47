// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bartekus/seriescheck/internal/runner"
)

type checkItem struct {
	Name        string       `json:"name"`
	Priority    int          `json:"priority"`
	Description string       `json:"description"`
	Options     []optionItem `json:"options"`
}

type optionItem struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Default string `json:"default,omitempty"`
	Flag    string `json:"flag"`
}

func newChecksCmd(reg *runner.Registry) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "checks",
		Short: "List available checks in run order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items := make([]checkItem, 0, len(reg.All()))
			for _, c := range reg.Ordered() {
				item := checkItem{Name: c.Name(), Priority: c.Priority(), Description: c.Description()}
				for _, spec := range reg.OptionSpecs(c.Name()) {
					item.Options = append(item.Options, optionItem{
						Name:    spec.Name,
						Kind:    spec.Kind.String(),
						Default: spec.Default,
						Flag:    "--" + c.Name() + "-" + spec.Name,
					})
				}
				items = append(items, item)
			}

			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(map[string]any{"checks": items})
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, item := range items {
				var flags []string
				for _, o := range item.Options {
					flags = append(flags, o.Flag)
				}
				_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", item.Name, item.Priority, item.Description, strings.Join(flags, " "))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output results in JSON")
	return cmd
}
