package tip

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"backmybuild/pkg/amount"
	"backmybuild/pkg/bungee"
	"backmybuild/pkg/chain"
)

// Aggregator is the slice of the Bungee client the executor consumes.
type Aggregator interface {
	GetQuote(ctx context.Context, p bungee.QuoteParams) (*bungee.Quote, error)
	BuildTransaction(ctx context.Context, quoteID string) (*bungee.TxData, error)
	CheckStatus(ctx context.Context, requestHash string) (*bungee.Status, error)
}

// Wallet is the injected on-chain signing capability. *chain.Registry
// satisfies it.
type Wallet interface {
	From() common.Address
	SwitchChain(ctx context.Context, chainID int64) error
	SendTransaction(ctx context.Context, chainID int64, req chain.TxRequest) (common.Hash, error)
	WaitMined(ctx context.Context, chainID int64, hash common.Hash) (*types.Receipt, error)
}

// Approver guards ERC-20 allowances for the aggregator's spender.
// *chain.Guard satisfies it.
type Approver interface {
	NeedsApproval(ctx context.Context, chainID int64, data *bungee.ApprovalData) (bool, error)
	Approve(ctx context.Context, chainID int64, data *bungee.ApprovalData) error
}

// Config fixes the settlement target and fee arrangement for every tip this
// executor runs, plus the bounded waits around settlement polling.
type Config struct {
	DestinationChainID int64
	OutputToken        string
	FeeTakerAddress    string
	FeeBps             int
	SettleTimeout      time.Duration
	SettlePollInterval time.Duration
}

// Listener observes state transitions. The label is human-readable progress
// text for display; it carries no contract beyond advancing monotonically.
type Listener func(state State, label string)

// Executor drives one tip attempt through the quote, approval, build, send
// and confirmation steps. At most one execution runs at a time; a second
// Execute while the first is non-terminal is rejected.
type Executor struct {
	aggregator Aggregator
	wallet     Wallet
	approver   Approver
	cfg        Config

	mu        sync.Mutex
	busy      bool
	state     State
	listeners []Listener
}

// NewExecutor creates an executor in the Idle state.
func NewExecutor(aggregator Aggregator, wallet Wallet, approver Approver, cfg Config) *Executor {
	if cfg.SettlePollInterval <= 0 {
		cfg.SettlePollInterval = 5 * time.Second
	}
	return &Executor{
		aggregator: aggregator,
		wallet:     wallet,
		approver:   approver,
		cfg:        cfg,
		state:      StateIdle,
	}
}

// State returns the current execution state.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Subscribe registers a listener for state transitions. Listeners are called
// synchronously in registration order.
func (e *Executor) Subscribe(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Execute runs the donor's tip end to end and returns the terminal outcome.
// Any step failure transitions to Failed and stops the machine; no step is
// retried and no partial rollback is attempted. An approval already
// confirmed on-chain stays valid and is simply reused on a retried attempt.
func (e *Executor) Execute(ctx context.Context, req Request) (*Outcome, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.finish()

	outcome, err := e.run(ctx, req)
	if err != nil {
		e.transition(StateFailed, fmt.Sprintf("Tip failed: %v", err))
		return &Outcome{State: StateFailed}, err
	}

	e.transition(StateSettled, "Tip settled")
	outcome.State = StateSettled
	return outcome, nil
}

// begin claims the executor for a fresh attempt, rejecting re-entry while a
// prior attempt is still running.
func (e *Executor) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return ErrTipInProgress
	}
	e.busy = true
	e.state = StateIdle
	return nil
}

func (e *Executor) finish() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

func (e *Executor) run(ctx context.Context, req Request) (*Outcome, error) {
	sourceChainID := req.Token.ChainID

	// Derive the source-token amount from the USD target. Zero means the
	// token cannot be priced; the send action should have been disabled.
	rawBalance, ok := new(big.Int).SetString(req.Token.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("%w: malformed balance %q", ErrUnpriceableToken, req.Token.Balance)
	}
	balanceUSD := parseUSD(req.Token.BalanceInUSD)

	required := amount.RequiredSourceAmount(req.TargetUSD, rawBalance, req.Token.Decimals, balanceUSD)
	if required.IsZero() {
		return nil, ErrUnpriceableToken
	}

	rawIn, err := amount.ToRaw(required.String(), req.Token.Decimals)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		AmountHuman: required.Truncate(amount.DefaultMaxFractionDigits).String(),
	}

	e.transition(StateSwitchingChain, fmt.Sprintf("Switching wallet to chain %d...", sourceChainID))
	if err := e.wallet.SwitchChain(ctx, sourceChainID); err != nil {
		return nil, err
	}

	e.transition(StateRequestingQuote, "Requesting quote...")
	quote, err := e.aggregator.GetQuote(ctx, bungee.QuoteParams{
		UserAddress:        e.wallet.From().Hex(),
		OriginChainID:      sourceChainID,
		DestinationChainID: e.cfg.DestinationChainID,
		InputToken:         req.Token.Address,
		InputAmount:        rawIn,
		OutputToken:        e.cfg.OutputToken,
		Receiver:           req.Recipient,
		FeeTakerAddress:    e.cfg.FeeTakerAddress,
		FeeBps:             e.cfg.FeeBps,
	})
	if err != nil {
		return nil, err
	}

	if quote.ApprovalData != nil {
		e.transition(StateCheckingAllowance, fmt.Sprintf("Checking %s allowance...", req.Token.Symbol))
		needed, err := e.approver.NeedsApproval(ctx, sourceChainID, quote.ApprovalData)
		if err != nil {
			return nil, err
		}
		if needed {
			e.transition(StateApproving, fmt.Sprintf("Approving %s...", req.Token.Symbol))
			if err := e.approver.Approve(ctx, sourceChainID, quote.ApprovalData); err != nil {
				return nil, err
			}
		}
	}

	e.transition(StateBuildingTransaction, "Building transaction...")
	txData, err := e.aggregator.BuildTransaction(ctx, quote.QuoteID)
	if err != nil {
		return nil, fmt.Errorf("building transaction: %w", err)
	}

	value, err := parseTxValue(txData.Value)
	if err != nil {
		return nil, err
	}
	callData, err := hexutil.Decode(txData.Data)
	if err != nil {
		return nil, fmt.Errorf("malformed transaction data: %w", err)
	}

	e.transition(StateSendingTransaction, "Sending transaction...")
	hash, err := e.wallet.SendTransaction(ctx, sourceChainID, chain.TxRequest{
		To:    common.HexToAddress(txData.To),
		Data:  callData,
		Value: value,
	})
	if err != nil {
		// A user cancelling the signature prompt surfaces here the same way
		// as any other submission failure; they are indistinguishable at
		// this boundary and handled identically.
		return nil, err
	}
	outcome.SourceHash = hash.Hex()

	e.transition(StateWaitingForConfirmation, "Waiting for confirmation...")
	receipt, err := e.wallet.WaitMined(ctx, sourceChainID, hash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", hash.Hex())
	}

	// Same-chain tips settle with the source transaction. Cross-chain tips
	// need the aggregator to report destination-side settlement.
	if sourceChainID != e.cfg.DestinationChainID {
		settlement, err := e.awaitSettlement(ctx, hash.Hex())
		if err != nil {
			return nil, err
		}
		outcome.Settlement = settlement
	}

	return outcome, nil
}

// awaitSettlement polls the aggregator until the request reaches a terminal
// settlement state or the configured wait window elapses. A "not yet" from
// the aggregator is expected right after submission and is retried.
func (e *Executor) awaitSettlement(ctx context.Context, requestHash string) (*bungee.Status, error) {
	var deadline time.Time
	if e.cfg.SettleTimeout > 0 {
		deadline = time.Now().Add(e.cfg.SettleTimeout)
	}

	ticker := time.NewTicker(e.cfg.SettlePollInterval)
	defer ticker.Stop()

	for {
		status, err := e.aggregator.CheckStatus(ctx, requestHash)
		switch {
		case errors.Is(err, bungee.ErrStatusUnavailable):
			// Not indexed yet; keep polling.
		case err != nil:
			return nil, err
		case status.State == bungee.StatusCompleted:
			return status, nil
		case status.IsTerminal():
			return nil, fmt.Errorf("%w: %s", ErrSettlementFailed, status.State)
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, fmt.Errorf("%w after %s", ErrSettlementTimeout, e.cfg.SettleTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// transition advances the state and notifies listeners outside the lock.
func (e *Executor) transition(state State, label string) {
	e.mu.Lock()
	e.state = state
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	for _, l := range listeners {
		l(state, label)
	}
}

// parseUSD reads the aggregator's USD valuation string, treating anything
// unparseable as "no valuation".
func parseUSD(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseTxValue accepts both hex ("0x...") and decimal value encodings.
func parseTxValue(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return big.NewInt(0), nil
	}
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		value, err := hexutil.DecodeBig(raw)
		if err != nil {
			return nil, fmt.Errorf("malformed transaction value %q: %w", raw, err)
		}
		return value, nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("malformed transaction value %q", raw)
	}
	return value, nil
}
