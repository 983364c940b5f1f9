package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/1cbyc/view0x-sub000/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default .analyzer.yaml in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ".analyzer.yaml"
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Write(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}
