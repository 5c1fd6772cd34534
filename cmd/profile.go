package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"backmybuild/config"
	"backmybuild/pkg/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile <identity>",
	Short: "Resolve a profile page identity",
	Long: `Resolve a wallet address, ENS/Base name, or social handle to the profile
metadata shown on its tip page.

Examples:
  back profile vitalik.eth
  back profile 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045`,
	Args: cobra.ExactArgs(1),
	Run:  runProfile,
}

func init() {
	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, args []string) {
	identity := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	resolver := profile.NewResolver(cfg.Web3BioBaseURL, cfg.RequestTimeout)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Resolving " + identity + "..."
		s.Start()
	}

	p, err := resolver.Resolve(context.Background(), identity)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(p, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                         PROFILE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Name:        %s\n", color.CyanString(p.DisplayName))
	fmt.Printf("  Address:     %s\n", p.Address)
	if p.Description != "" {
		fmt.Printf("  About:       %s\n", p.Description)
	}
	fmt.Printf("  Avatar:      %s\n", color.HiBlackString(p.Avatar))
	for i, social := range p.Socials {
		if i == 0 {
			fmt.Printf("  Socials:     %s\n", social)
		} else {
			fmt.Printf("               %s\n", social)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
