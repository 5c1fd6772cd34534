package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"backmybuild/pkg/bungee"
)

// DefaultSpender is the aggregator's canonical router contract. Some routes
// report the sentinel spender "0", which means "use the canonical router"
// rather than being invalid.
var DefaultSpender = common.HexToAddress("0x3a23F943181408EAC424116Af7b7790c94Cb97a5")

// ErrApprovalFailed is returned when an approval transaction reverts or the
// signing wallet rejects it. Terminal for the tip attempt; a retried attempt
// re-checks the allowance instead of blindly re-submitting.
var ErrApprovalFailed = errors.New("token approval failed")

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid ERC-20 ABI: %v", err))
	}
	return parsed
}

// ApprovalBackend is the narrow on-chain capability the guard needs.
// *Registry satisfies it.
type ApprovalBackend interface {
	Allowance(ctx context.Context, chainID int64, token, owner, spender common.Address) (*big.Int, error)
	SendTransaction(ctx context.Context, chainID int64, req TxRequest) (common.Hash, error)
	WaitMined(ctx context.Context, chainID int64, hash common.Hash) (*types.Receipt, error)
}

// Guard checks a route's required ERC-20 allowance and approves exactly the
// required amount when the current allowance is insufficient.
type Guard struct {
	backend        ApprovalBackend
	defaultSpender common.Address
}

// NewGuard creates an allowance guard over the given backend.
func NewGuard(backend ApprovalBackend) *Guard {
	return &Guard{backend: backend, defaultSpender: DefaultSpender}
}

// NeedsApproval reports whether the current on-chain allowance is below the
// route's required amount.
func (g *Guard) NeedsApproval(ctx context.Context, chainID int64, data *bungee.ApprovalData) (bool, error) {
	if data == nil {
		return false, nil
	}

	required, err := parseRequiredAmount(data.Amount)
	if err != nil {
		return false, err
	}

	current, err := g.backend.Allowance(ctx, chainID,
		common.HexToAddress(data.TokenAddress),
		common.HexToAddress(data.UserAddress),
		g.spender(data))
	if err != nil {
		return false, fmt.Errorf("failed to read allowance: %w", err)
	}

	return current.Cmp(required) < 0, nil
}

// Approve submits an approval for exactly the required amount and blocks
// until it is mined.
func (g *Guard) Approve(ctx context.Context, chainID int64, data *bungee.ApprovalData) error {
	required, err := parseRequiredAmount(data.Amount)
	if err != nil {
		return err
	}

	callData, err := erc20ABI.Pack("approve", g.spender(data), required)
	if err != nil {
		return fmt.Errorf("failed to pack approve call: %w", err)
	}

	hash, err := g.backend.SendTransaction(ctx, chainID, TxRequest{
		To:   common.HexToAddress(data.TokenAddress),
		Data: callData,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrApprovalFailed, err)
	}

	receipt, err := g.backend.WaitMined(ctx, chainID, hash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrApprovalFailed, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: approval transaction %s reverted", ErrApprovalFailed, hash.Hex())
	}

	return nil
}

// Ensure is the one-shot form: approve only if the current allowance is
// insufficient, otherwise do nothing. It never submits a redundant approval.
func (g *Guard) Ensure(ctx context.Context, chainID int64, data *bungee.ApprovalData) error {
	needed, err := g.NeedsApproval(ctx, chainID, data)
	if err != nil {
		return err
	}
	if !needed {
		return nil
	}
	return g.Approve(ctx, chainID, data)
}

// spender resolves the route's spender, substituting the canonical router
// for the "0" sentinel.
func (g *Guard) spender(data *bungee.ApprovalData) common.Address {
	addr := strings.TrimSpace(data.SpenderAddress)
	if addr == "" || addr == "0" || addr == "0x0" {
		return g.defaultSpender
	}
	return common.HexToAddress(addr)
}

func parseRequiredAmount(raw string) (*big.Int, error) {
	required, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid approval amount %q", raw)
	}
	return required, nil
}
