package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"backmybuild/config"
	"backmybuild/pkg/bungee"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <request-hash>",
	Short: "Check the settlement status of a tip",
	Long: `Check the cross-chain settlement status of a submitted tip by its
source-chain transaction hash.

Examples:
  back status 0x1234...abcd
  back status 0x1234...abcd --watch
  back status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	requestHash := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	apiClient := bungee.NewClient(cfg.BungeeBaseURL, cfg.RequestTimeout)

	if watchStatus {
		watchTipStatus(apiClient, requestHash, jsonOutput)
	} else {
		checkTipStatus(apiClient, requestHash, jsonOutput)
	}
}

func checkTipStatus(apiClient *bungee.Client, requestHash string, jsonOutput bool) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking settlement status..."
		s.Start()
	}

	status, err := apiClient.CheckStatus(context.Background(), requestHash)
	if !jsonOutput {
		s.Stop()
	}

	if errors.Is(err, bungee.ErrStatusUnavailable) {
		fmt.Println("\nThe aggregator has no record of this request yet. Try again shortly.")
		return
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayStatus(status, requestHash)
	}
}

func watchTipStatus(apiClient *bungee.Client, requestHash string, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching settlement status (request: %s)\n", color.CyanString(requestHash))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first
	if checkAndDisplayStatus(apiClient, requestHash) {
		return
	}

	for range ticker.C {
		if checkAndDisplayStatus(apiClient, requestHash) {
			return
		}
	}
}

// checkAndDisplayStatus returns true once the settlement reaches a terminal
// state.
func checkAndDisplayStatus(apiClient *bungee.Client, requestHash string) bool {
	status, err := apiClient.CheckStatus(context.Background(), requestHash)
	if errors.Is(err, bungee.ErrStatusUnavailable) {
		fmt.Println("Not indexed yet...")
		return false
	}
	if err != nil {
		color.Red("Error: %v", err)
		return false
	}

	displayStatus(status, requestHash)
	return status.IsTerminal()
}

func displayStatus(status *bungee.Status, requestHash string) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                       SETTLEMENT STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Request:       %s\n", color.CyanString(requestHash))
	fmt.Printf("  Status:        %s\n", getColoredStatus(status.State))

	if status.DestinationHash != "" {
		fmt.Printf("  Settled Tx:    %s\n", color.HiBlackString(status.DestinationHash))
	}
	if status.Detail != "" {
		fmt.Printf("  Detail:        %s\n", status.Detail)
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(state string) string {
	switch strings.ToUpper(state) {
	case bungee.StatusCompleted:
		return color.GreenString(state)
	case bungee.StatusPending:
		return color.YellowString(state)
	case bungee.StatusFailed, bungee.StatusRefunded:
		return color.RedString(state)
	default:
		return state
	}
}
