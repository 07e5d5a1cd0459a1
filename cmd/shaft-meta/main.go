package main

import (
	"os"

	"github.com/shaftpkg/shaft-meta/internal/common/logger"
	"github.com/shaftpkg/shaft-meta/internal/common/output"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
	noColor bool
	logFile bool
)

var rootCmd = &cobra.Command{
	Use:   "shaft-meta",
	Short: "Installer metadata updater",
	Long: `Keeps the installer metadata manifest current: queries upstream sources
for new package versions, downloads artifacts to compute their checksums,
and rewrites only the manifest values that changed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Configure logging based on flags
		if verbose {
			logger.SetVerbose(true)
		}
		if quiet {
			logger.SetQuiet(true)
		}
		if noColor {
			output.NoColor()
		}
		if logFile {
			return logger.Default().EnableFileLogging()
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "Also write a detailed log under $XDG_STATE_HOME/shaft-meta/logs")
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		output.PrintError("%v", err)
	}
	logger.Default().Close()
	if err != nil {
		os.Exit(1)
	}
}
