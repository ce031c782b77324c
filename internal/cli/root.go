// Package cli implements the rampart command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rampart",
	Short: "Untrusted-content validation gateway",
	Long: "Rampart evaluates untrusted inbound content through a layered pipeline:\n" +
		"normalize, decode obfuscation, match signatures, score, and gate. Every\n" +
		"completed evaluation produces an immutable decision record.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (env vars apply when unset)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
