package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/shaftpkg/shaft-meta/internal/common/config"
	"github.com/shaftpkg/shaft-meta/internal/common/logger"
	"github.com/shaftpkg/shaft-meta/internal/common/output"
	"github.com/shaftpkg/shaft-meta/internal/common/version"
	"github.com/shaftpkg/shaft-meta/internal/fetch"
	"github.com/shaftpkg/shaft-meta/internal/manifest"
	"github.com/shaftpkg/shaft-meta/internal/packages"
	"github.com/shaftpkg/shaft-meta/internal/update"
)

var (
	// updateDryRun reports changes without writing the manifest
	updateDryRun bool
	// manifestFlag overrides the configured manifest path
	manifestFlag string
)

var updateCmd = &cobra.Command{
	Use:   "update [package]",
	Short: "Update package versions and checksums in the manifest",
	Long: `Fetch the latest version facts for every tracked package, or only the
named one, and rewrite the manifest values that changed.

All packages are fetched concurrently. If any fetch fails, every failure is
reported and the manifest is left untouched.

Examples:
  shaft-meta update                  Update every tracked package
  shaft-meta update fzf              Update only the [fzf] section
  shaft-meta update --dry-run        Show what would change
  shaft-meta update --manifest m.toml`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeSections,
	RunE:              runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "Show changes without writing the manifest")
	rootCmd.PersistentFlags().StringVar(&manifestFlag, "manifest", "", "Path to the metadata manifest (overrides config)")

	rootCmd.AddCommand(updateCmd)
}

// newRegistry builds the strategy registry; tests replace it
var newRegistry = func(cfg *config.Config) (*update.Registry, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}

	opts := fetch.DefaultOptions()
	opts.Timeout = timeout
	opts.MaxRetries = cfg.HTTP.MaxRetries
	opts.RequestsPerSecond = cfg.HTTP.RequestsPerSecond
	opts.UserAgent = "shaft-meta/" + version.Short() + " (+https://github.com/shaftpkg/shaft-meta)"
	client := fetch.NewClient(opts)

	hasher := fetch.NewHasher(client, afero.NewOsFs(), cfg.TempDir)
	return packages.NewRegistry(packages.NewSources(client, cfg.GitHubToken(), hasher)), nil
}

// loadSettings returns the configuration and the manifest path to use
func loadSettings() (*config.Config, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, "", err
	}
	if manifestFlag != "" {
		cfg.Manifest = manifestFlag
	}
	path, err := cfg.ManifestPath()
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadSettings()
	if err != nil {
		return err
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	only := ""
	if len(args) == 1 {
		only = args[0]
	}

	u := update.New(reg,
		update.WithLogger(logger.Default()),
		update.WithStore(manifest.NewOsStore()),
		update.WithDryRun(updateDryRun),
		update.WithConcurrency(cfg.Concurrency),
	)

	result, err := u.Run(cmd.Context(), path, only)
	if err != nil {
		return err
	}

	reportUpdate(result)
	return nil
}

// reportUpdate prints the one-line summary of a run
func reportUpdate(result *update.Result) {
	switch {
	case result.Saved:
		output.PrintSuccess("metadata updated")
	case result.Changed():
		output.Heading("Pending changes")
		for _, c := range result.Changes {
			output.PrintInfo("%s %s = %s -> %s", output.FormatPackage(c.Package), c.Key, c.OldRaw, c.NewRaw)
		}
		output.PrintWarning("dry run: %d change(s) not written", len(result.Changes))
	default:
		output.PrintSuccess("already up to date")
	}
}

// completeSections offers manifest section names for the package argument
func completeSections(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	_, path, err := loadSettings()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	doc, err := manifest.NewOsStore().Load(path)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return doc.Sections(), cobra.ShellCompDirectiveNoFileComp
}
