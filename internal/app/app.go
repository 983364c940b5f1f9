package app

import (
	"github.com/spf13/cobra"

	"github.com/1cbyc/view0x-sub000/internal/cli"
)

func BuildRoot() *cobra.Command {
	root := &cobra.Command{Use: "view0x-analyzer", Short: "Static security analysis for smart contracts"}
	cli.AddCommands(root)
	return root
}
