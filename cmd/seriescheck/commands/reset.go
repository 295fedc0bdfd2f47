// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

func newResetCmd(g *globalOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear run state",
		Long:  "Clear the results and logs of the last run. With --all the build output is removed too.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd.Context(), g)
			if err != nil {
				return err
			}
			if all {
				return os.RemoveAll(ws.outDir)
			}
			return ws.store.Reset()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "also remove the kernel build output")
	return cmd
}
