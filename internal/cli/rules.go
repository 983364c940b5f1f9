package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/1cbyc/view0x-sub000/internal/detectors"
)

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the built-in detectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := detectors.NewRegistry(nil)
			reg.RegisterBuiltin()
			for _, d := range reg.Detectors() {
				m := d.Meta()
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-8s %s\n", m.ID, m.Severity, m.Title)
			}
			return nil
		},
	}
}
