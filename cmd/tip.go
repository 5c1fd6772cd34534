package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"backmybuild/config"
	"backmybuild/pkg/amount"
	"backmybuild/pkg/bungee"
	"backmybuild/pkg/chain"
	"backmybuild/pkg/parser"
	"backmybuild/pkg/profile"
	"backmybuild/pkg/tip"
)

var (
	tipTokenSymbol string
	tipChainID     int64
	tipFromName    string
	tipMessage     string
	tipNoConfirm   bool
	tipAPIBaseURL  string
)

var tipCmd = &cobra.Command{
	Use:   "tip <usd-amount> to <identity>",
	Short: "Send a cross-chain tip to a profile",
	Long: `Send a tip to a builder's profile page. The USD amount is converted into
the selected source token, bridged/swapped through the Bungee aggregator,
and settled as USDC on Base to the recipient's wallet.

By default the source token is your highest-valued balance across the
supported chains; use --token and --chain to pick one explicitly.

Examples:
  back tip 25 to vitalik.eth
  back tip 15 to builder.base.eth --token USDC --chain 42161
  back tip 5.50 to 0xd8dA...6045 --from "ada" --message "great work!"`,
	Args: cobra.MinimumNArgs(1),
	Run:  runTip,
}

func init() {
	rootCmd.AddCommand(tipCmd)

	tipCmd.Flags().StringVar(&tipTokenSymbol, "token", "", "Source token symbol (default: highest USD balance)")
	tipCmd.Flags().Int64Var(&tipChainID, "chain", 0, "Source chain id (default: any)")
	tipCmd.Flags().StringVar(&tipFromName, "from", "", "Your name shown on the tip (optional)")
	tipCmd.Flags().StringVar(&tipMessage, "message", "", "A short note for the recipient (optional)")
	tipCmd.Flags().BoolVarP(&tipNoConfirm, "yes", "y", false, "Skip confirmation prompt")
	tipCmd.Flags().StringVar(&tipAPIBaseURL, "api-url", "", "Backend API base URL to record the tip against (optional)")
}

func runTip(cmd *cobra.Command, args []string) {
	tipReq, err := parser.ParseTipCommand(strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if err := parser.ValidateTipCommand(tipReq); err != nil {
		printError(err)
		os.Exit(1)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if cfg.PrivateKey == "" {
		printError(fmt.Errorf("signing key not found. Set BACK_PRIVATE_KEY or private_key in .back.yaml"))
		os.Exit(1)
	}

	ctx := context.Background()
	targetUSD, _ := decimal.NewFromString(tipReq.AmountUSD)

	// Resolve the recipient first; everything else is pointless otherwise.
	resolver := profile.NewResolver(cfg.Web3BioBaseURL, cfg.RequestTimeout)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Resolving " + tipReq.Identity + "..."
		s.Start()
	}

	recipient, err := resolver.Resolve(ctx, tipReq.Identity)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(fmt.Errorf("could not resolve %s: %w", tipReq.Identity, err))
		os.Exit(1)
	}

	registry, err := chain.NewRegistry(cfg.RPCEndpoints, cfg.PrivateKey, cfg.ConfirmTimeout)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer registry.Close()

	apiClient := bungee.NewClient(cfg.BungeeBaseURL, cfg.RequestTimeout)

	if !jsonOutput {
		s.Suffix = " Fetching your token balances..."
		s.Start()
	}
	tokens, err := apiClient.ListTokens(ctx, registry.From().Hex(), chain.SupportedChainIDs())
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	token, err := pickSourceToken(tokens, tipTokenSymbol, tipChainID)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	executor := tip.NewExecutor(apiClient, registry, chain.NewGuard(registry), tip.Config{
		DestinationChainID: cfg.DestinationChainID,
		OutputToken:        cfg.OutputToken,
		FeeTakerAddress:    cfg.FeeTakerAddress,
		FeeBps:             cfg.FeeBps,
		SettleTimeout:      cfg.SettleTimeout,
		SettlePollInterval: cfg.SettlePollInterval,
	})

	if !jsonOutput {
		displayTipSummary(tipReq, recipient, token, targetUSD)
		if !tipNoConfirm && !confirmTip() {
			fmt.Println("\nTip cancelled.")
			os.Exit(0)
		}

		s.Suffix = " Starting..."
		s.Start()
		executor.Subscribe(func(state tip.State, label string) {
			s.Suffix = " " + label
		})
	}

	outcome, err := executor.Execute(ctx, tip.Request{
		TargetUSD: targetUSD,
		Token:     *token,
		Recipient: recipient.Address,
	})
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"recipient":    recipient.Address,
			"identity":     tipReq.Identity,
			"usd_amount":   targetUSD.String(),
			"token":        token.Symbol,
			"token_amount": outcome.AmountHuman,
			"source_chain": token.ChainID,
			"tx_hash":      outcome.SourceHash,
			"state":        string(outcome.State),
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		color.Green("\n✓ Tip settled!")
		fmt.Printf("  Sent:       %s %s on %s\n", outcome.AmountHuman, token.Symbol, chain.Name(token.ChainID))
		fmt.Printf("  To:         %s (%s)\n", recipient.DisplayName, formatAddress(recipient.Address))
		fmt.Printf("  Tx Hash:    %s\n", color.CyanString(outcome.SourceHash))
		if outcome.Settlement != nil && outcome.Settlement.DestinationHash != "" {
			fmt.Printf("  Settled Tx: %s\n", color.CyanString(outcome.Settlement.DestinationHash))
		}
	}

	if tipAPIBaseURL != "" {
		if err := recordTip(ctx, cfg.RequestTimeout, tipReq.Identity, targetUSD, token, outcome); err != nil {
			color.Yellow("\nTip settled but could not be recorded: %v", err)
		} else if verbose {
			fmt.Println("\nTip recorded against the backend.")
		}
	}
}

// pickSourceToken applies the symbol/chain filters and picks the
// highest-valued remaining balance, mirroring the web interface's default
// selection.
func pickSourceToken(tokens []bungee.TokenBalance, symbol string, chainID int64) (*bungee.TokenBalance, error) {
	candidates := make([]bungee.TokenBalance, 0, len(tokens))
	for _, t := range tokens {
		if symbol != "" && !strings.EqualFold(t.Symbol, symbol) {
			continue
		}
		if chainID != 0 && t.ChainID != chainID {
			continue
		}
		if usdValue(t).Sign() <= 0 {
			continue
		}
		candidates = append(candidates, t)
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("no priceable token balance matches the selection (token=%q chain=%d)", symbol, chainID)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return usdValue(candidates[i]).GreaterThan(usdValue(candidates[j]))
	})

	return &candidates[0], nil
}

func usdValue(t bungee.TokenBalance) decimal.Decimal {
	d, err := decimal.NewFromString(t.BalanceInUSD)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func displayTipSummary(tipReq *parser.TipCommand, recipient *profile.Profile, token *bungee.TokenBalance, targetUSD decimal.Decimal) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                       TIP SUMMARY")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Recipient:    %s\n", color.CyanString(recipient.DisplayName))
	fmt.Printf("  Address:      %s\n", formatAddress(recipient.Address))
	fmt.Printf("  Tip amount:   $%s\n", targetUSD.String())
	fmt.Printf("  Paying in:    %s on %s\n", color.YellowString(token.Symbol), chain.Name(token.ChainID))

	rawBalance, ok := newBigInt(token.Balance)
	if ok {
		fmt.Printf("  Your balance: %s %s ($%s)\n",
			amount.ToHuman(rawBalance, token.Decimals, amount.DefaultMaxFractionDigits),
			token.Symbol, token.BalanceInUSD)
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
}

func confirmTip() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with tip? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// recordTip posts the settled tip to the backend API so the recipient's
// analytics pick it up.
func recordTip(ctx context.Context, timeout time.Duration, identity string, targetUSD decimal.Decimal, token *bungee.TokenBalance, outcome *tip.Outcome) error {
	payload := map[string]interface{}{
		"to_user":         identity,
		"from_user":       tipFromName,
		"message":         tipMessage,
		"amount_usd":      targetUSD,
		"token_symbol":    token.Symbol,
		"source_chain_id": token.ChainID,
		"tx_hash":         outcome.SourceHash,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	u := strings.TrimSuffix(tipAPIBaseURL, "/") + "/api/tips"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := &http.Client{Timeout: timeout}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return nil
}

func newBigInt(raw string) (*big.Int, bool) {
	return new(big.Int).SetString(raw, 10)
}

func formatAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
