package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"backmybuild/config"
	"backmybuild/pkg/amount"
	"backmybuild/pkg/bungee"
	"backmybuild/pkg/chain"
)

var (
	tokensFilterChain  int64
	tokensFilterSymbol string
)

var tokensCmd = &cobra.Command{
	Use:     "tokens <address>",
	Aliases: []string{"list-tokens", "ls"},
	Short:   "List a donor's token balances across supported chains",
	Long: `List the token balances the aggregator can route tips from, with their
USD valuation where available.

Examples:
  back tokens 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045
  back tokens 0xd8dA...6045 --chain 8453
  back tokens 0xd8dA...6045 --symbol USDC`,
	Args: cobra.ExactArgs(1),
	Run:  runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().Int64Var(&tokensFilterChain, "chain", 0, "Filter by chain id")
	tokensCmd.Flags().StringVar(&tokensFilterSymbol, "symbol", "", "Filter by token symbol")
}

func runListTokens(cmd *cobra.Command, args []string) {
	owner := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	apiClient := bungee.NewClient(cfg.BungeeBaseURL, cfg.RequestTimeout)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching token balances..."
		s.Start()
	}

	tokens, err := apiClient.ListTokens(context.Background(), owner, chain.SupportedChainIDs())
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Apply filters
	filtered := tokens[:0:0]
	for _, token := range tokens {
		if tokensFilterChain != 0 && token.ChainID != tokensFilterChain {
			continue
		}
		if tokensFilterSymbol != "" && !strings.Contains(strings.ToUpper(token.Symbol), strings.ToUpper(tokensFilterSymbol)) {
			continue
		}
		filtered = append(filtered, token)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(filtered, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayTokens(filtered)
	}
}

func displayTokens(tokens []bungee.TokenBalance) {
	if len(tokens) == 0 {
		fmt.Println("\nNo token balances found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                             TOKEN BALANCES")
	fmt.Println(strings.Repeat("=", 90))

	// Group tokens by chain
	tokensByChain := make(map[int64][]bungee.TokenBalance)
	for _, token := range tokens {
		tokensByChain[token.ChainID] = append(tokensByChain[token.ChainID], token)
	}

	chainIDs := make([]int64, 0, len(tokensByChain))
	for chainID := range tokensByChain {
		chainIDs = append(chainIDs, chainID)
	}
	sort.Slice(chainIDs, func(i, j int) bool { return chainIDs[i] < chainIDs[j] })

	for _, chainID := range chainIDs {
		color.Cyan("\n%s", strings.ToUpper(chain.Name(chainID)))
		fmt.Println(strings.Repeat("-", 90))

		for _, token := range tokensByChain[chainID] {
			balance := token.Balance
			if raw, ok := newBigInt(token.Balance); ok {
				balance = amount.ToHuman(raw, token.Decimals, amount.DefaultMaxFractionDigits)
			}

			usd := ""
			if token.BalanceInUSD != "" {
				usd = "($" + token.BalanceInUSD + ")"
			}

			fmt.Printf("  %-10s  %14s %-14s %s\n",
				color.YellowString(token.Symbol),
				balance,
				usd,
				color.HiBlackString(token.Address))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d balances across %d chains\n\n", len(tokens), len(chainIDs))
}
