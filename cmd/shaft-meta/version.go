package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaftpkg/shaft-meta/internal/common/output"
	"github.com/shaftpkg/shaft-meta/internal/common/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(output.Stdout, version.Info())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
