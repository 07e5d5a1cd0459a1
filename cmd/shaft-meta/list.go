package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaftpkg/shaft-meta/internal/common/output"
	"github.com/shaftpkg/shaft-meta/internal/manifest"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List manifest sections and whether they are updated automatically",
	Long: `List every section of the manifest. Sections marked [tracked] have an
update strategy; [manual] sections are maintained by hand.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadSettings()
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	doc, err := manifest.NewOsStore().Load(path)
	if err != nil {
		return err
	}

	for _, name := range doc.Sections() {
		status := "manual"
		if _, ok := reg.Lookup(name); ok {
			status = "tracked"
		}
		fmt.Fprintf(output.Stdout, "%s %s\n", output.FormatStatus(status), name)
	}

	for _, name := range reg.Names() {
		if !doc.HasSection(name) {
			output.PrintWarning("strategy %s has no [%s] section in %s", name, name, path)
		}
	}
	return nil
}
