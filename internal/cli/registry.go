package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moltbot/rampart/pkg/signature"
)

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(registryValidateCmd)
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Signature registry operations",
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Compile a registry artifact and report problems",
	Long: "Loads a YAML registry artifact exactly as the gateway would. Any invalid\n" +
		"signature fails the whole artifact. Exits 0 if it compiles, 1 otherwise.",
	Args: cobra.ExactArgs(1),
	RunE: runRegistryValidate,
}

func runRegistryValidate(cmd *cobra.Command, args []string) error {
	snap, err := signature.LoadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK: %s, %d signatures\n", snap.Version(), snap.Len())
	for _, cat := range signature.Categories {
		fmt.Printf("  %-20s %d\n", cat, len(snap.ByCategory(cat)))
	}
	return nil
}
