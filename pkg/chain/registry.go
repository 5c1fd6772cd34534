package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	// ErrUnsupportedChain is returned when no RPC client is configured for a
	// chain id. Tip execution fails fast on it before any network call.
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrConfirmationTimeout is returned when a broadcast transaction is not
	// mined within the configured confirmation window.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
)

const receiptPollInterval = 2 * time.Second

// TxRequest is a prepared call the registry signs and broadcasts.
type TxRequest struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Registry holds one ethclient per supported chain plus the signing key.
// It is constructed once at the composition root and passed in; nothing in
// the codebase reaches for a global client.
type Registry struct {
	clients        map[int64]*ethclient.Client
	privateKey     *ecdsa.PrivateKey
	from           common.Address
	confirmTimeout time.Duration
}

// NewRegistry dials every configured RPC endpoint and derives the sender
// address from the private key.
func NewRegistry(rpcEndpoints map[int64]string, privateKeyHex string, confirmTimeout time.Duration) (*Registry, error) {
	if len(rpcEndpoints) == 0 {
		return nil, fmt.Errorf("no RPC endpoints configured")
	}
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key not configured")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}

	clients := make(map[int64]*ethclient.Client, len(rpcEndpoints))
	for chainID, rpcURL := range rpcEndpoints {
		client, err := ethclient.Dial(rpcURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to chain %d RPC: %w", chainID, err)
		}
		clients[chainID] = client
	}

	return &Registry{
		clients:        clients,
		privateKey:     privateKey,
		from:           crypto.PubkeyToAddress(*publicKey),
		confirmTimeout: confirmTimeout,
	}, nil
}

// From returns the sender address derived from the signing key.
func (r *Registry) From() common.Address {
	return r.from
}

// SwitchChain validates that a client exists for the chain id. Selecting the
// chain is the one wallet-global side effect of a tip; callers must hold the
// executor's re-entrancy guard before invoking it.
func (r *Registry) SwitchChain(ctx context.Context, chainID int64) error {
	_, err := r.client(chainID)
	return err
}

// Allowance reads the current ERC-20 allowance for (owner, spender) on the
// given token contract.
func (r *Registry) Allowance(ctx context.Context, chainID int64, token, owner, spender common.Address) (*big.Int, error) {
	client, err := r.client(chainID)
	if err != nil {
		return nil, err
	}

	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to pack allowance call: %w", err)
	}

	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call allowance: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}

// SendTransaction signs and broadcasts a transaction on the given chain,
// returning its hash. Gas is estimated with a 20% buffer.
func (r *Registry) SendTransaction(ctx context.Context, chainID int64, req TxRequest) (common.Hash, error) {
	client, err := r.client(chainID)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := client.PendingNonceAt(ctx, r.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	msg := ethereum.CallMsg{
		From:  r.from,
		To:    &req.To,
		Value: value,
		Data:  req.Data,
	}
	gasLimit, err := client.EstimateGas(ctx, msg)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gasLimit = gasLimit * 120 / 100

	tx := types.NewTransaction(nonce, req.To, value, gasLimit, gasPrice, req.Data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(chainID)), r.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash(), nil
}

// WaitMined blocks until the transaction is mined or the confirmation
// timeout elapses.
func (r *Registry) WaitMined(ctx context.Context, chainID int64, hash common.Hash) (*types.Receipt, error) {
	client, err := r.client(chainID)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(r.confirmTimeout)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w after %s (tx %s)", ErrConfirmationTimeout, r.confirmTimeout, hash.Hex())
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close closes all underlying RPC connections.
func (r *Registry) Close() {
	for _, client := range r.clients {
		client.Close()
	}
}

func (r *Registry) client(chainID int64) (*ethclient.Client, error) {
	client, exists := r.clients[chainID]
	if !exists {
		return nil, fmt.Errorf("%w: no client configured for chain %d", ErrUnsupportedChain, chainID)
	}
	return client, nil
}
