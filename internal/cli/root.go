// Package cli wires the patchkit commands.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath    string
	jsonOutput bool
)

// rootCmd is the root command for patchkit.
var rootCmd = &cobra.Command{
	Use:     "patchkit",
	Version: "dev",
	Short:   "Atomic batched text substitutions across files",
	Long: `patchkit applies batched exact-substring edits to one or more files with
transactional guarantees: every edit in a request applies, or none do, and
multi-file requests either fully commit or fully roll back.

Failures come back as coded, machine-readable descriptors with recovery
hints, so a non-interactive caller can correct its request and retry.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to TOML config file")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(serveCmd)
}
