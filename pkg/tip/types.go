package tip

import (
	"errors"

	"github.com/shopspring/decimal"

	"backmybuild/pkg/bungee"
)

// State marks the orchestration's progress through one tip attempt. States
// advance strictly forward; Failed is terminal and reachable from any
// non-terminal state.
type State string

const (
	StateIdle                   State = "idle"
	StateSwitchingChain         State = "switching_chain"
	StateRequestingQuote        State = "requesting_quote"
	StateCheckingAllowance      State = "checking_allowance"
	StateApproving              State = "approving"
	StateBuildingTransaction    State = "building_transaction"
	StateSendingTransaction     State = "sending_transaction"
	StateWaitingForConfirmation State = "waiting_for_confirmation"
	StateSettled                State = "settled"
	StateFailed                 State = "failed"
)

// IsTerminal reports whether no further transition can happen.
func (s State) IsTerminal() bool {
	return s == StateSettled || s == StateFailed
}

var (
	// ErrTipInProgress is returned when Execute is called while a prior
	// invocation has not reached a terminal state. Two concurrent sends would
	// race on the wallet's active chain and nonce, so this is a hard
	// precondition, not a UI nicety.
	ErrTipInProgress = errors.New("a tip is already in progress")

	// ErrUnpriceableToken is returned when the selected token cannot be
	// priced from its balance valuation and therefore no source amount can
	// be computed.
	ErrUnpriceableToken = errors.New("selected token cannot be priced")

	// ErrSettlementFailed is returned when the aggregator reports the
	// cross-chain settlement as failed or refunded.
	ErrSettlementFailed = errors.New("cross-chain settlement failed")

	// ErrSettlementTimeout is returned when settlement is not reported
	// within the configured wait window. The source-chain transaction is
	// already confirmed at that point; funds are in the bridge's hands.
	ErrSettlementTimeout = errors.New("timed out waiting for settlement")
)

// Request is the donor's intent: tip TargetUSD worth of the selected source
// token to the recipient address, settled as the configured output token on
// the destination chain. Consumed once by the executor, never persisted.
type Request struct {
	TargetUSD decimal.Decimal
	Token     bungee.TokenBalance
	Recipient string
}

// Outcome is what a finished (or failed) execution leaves behind for the
// caller: the terminal state plus whatever identifiers were produced along
// the way.
type Outcome struct {
	State       State
	SourceHash  string
	Settlement  *bungee.Status
	AmountHuman string
}
