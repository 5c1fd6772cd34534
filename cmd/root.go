package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "back",
	Short: "A CLI and backend for BackMyBuild cross-chain tips",
	Long: `back is the BackMyBuild toolchain: send crypto tips to a builder's
profile page from any supported chain, settled as USDC on Base via the
Bungee aggregator, and run the backend API that records tips and serves
analytics.

Examples:
  back tip 25 to vitalik.eth
  back tip 5.50 to builder.base.eth --token USDC
  back tokens 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045
  back status <request-hash> --watch
  back profile vitalik.eth
  back serve`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
