package bungee

import (
	"encoding/json"
	"fmt"
)

// envelope is the wrapper every Bungee public API response carries. A
// success=false body is a hard failure, with the server's own status code,
// message and request id preserved for support diagnostics.
type envelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	RequestID  string `json:"requestId"`
}

// APIError is a failure reported by the aggregator itself (success=false or
// a non-2xx response). StatusCode and Message are carried verbatim from the
// response body; CorrelationID is the aggregator's request id.
type APIError struct {
	Endpoint      string
	StatusCode    int
	Message       string
	CorrelationID string
}

func (e *APIError) Error() string {
	if e.CorrelationID != "" {
		return fmt.Sprintf("bungee %s failed (status %d): %s [request %s]", e.Endpoint, e.StatusCode, e.Message, e.CorrelationID)
	}
	return fmt.Sprintf("bungee %s failed (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
}

// TokenBalance is one donor-held token on one chain, as returned by the
// tokens/list endpoint. Balance is the raw smallest-unit amount as a decimal
// string; BalanceInUSD is the valuation of the whole balance and may be
// empty when pricing is unavailable.
type TokenBalance struct {
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Decimals     int    `json:"decimals"`
	LogoURI      string `json:"logoURI"`
	ChainID      int64  `json:"chainId"`
	Balance      string `json:"balance"`
	BalanceInUSD string `json:"balanceInUsd"`
}

type tokenListResponse struct {
	envelope
	Result map[string][]TokenBalance `json:"result"`
}

// ApprovalData describes the ERC-20 approval a route requires before the
// route transaction can move the input token.
type ApprovalData struct {
	TokenAddress   string `json:"tokenAddress"`
	SpenderAddress string `json:"spenderAddress"`
	Amount         string `json:"amount"`
	UserAddress    string `json:"userAddress"`
}

// Route is one candidate route inside a quote. SignTypedData and Witness are
// opaque pass-through payloads used by some route kinds; they are forwarded
// unchanged to transaction building and signing, never interpreted here.
type Route struct {
	QuoteID        string          `json:"quoteId"`
	RequestType    string          `json:"requestType"`
	ApprovalData   *ApprovalData   `json:"approvalData"`
	SignTypedData  json.RawMessage `json:"signTypedData,omitempty"`
	Witness        json.RawMessage `json:"witness,omitempty"`
	OutputAmount   string          `json:"outputAmount,omitempty"`
	EstimatedTime  int             `json:"estimatedTime,omitempty"`
	RequestHash    string          `json:"requestHash,omitempty"`
}

type quoteResult struct {
	AutoRoute    *Route  `json:"autoRoute"`
	ManualRoutes []Route `json:"manualRoutes"`
}

type quoteResponse struct {
	envelope
	Result quoteResult `json:"result"`
}

// Quote is the selected route of a quote response, kept alongside the raw
// aggregator body for debugging. A quote is short-lived; a stale one simply
// fails at build time.
type Quote struct {
	QuoteID       string
	RequestType   string
	ApprovalData  *ApprovalData
	SignTypedData json.RawMessage
	Witness       json.RawMessage
	OutputAmount  string
	EstimatedTime int
	Raw           json.RawMessage
}

// TxData is the executable transaction payload built for a quote.
type TxData struct {
	To      string `json:"to"`
	Data    string `json:"data"`
	Value   string `json:"value"`
	ChainID int64  `json:"chainId"`
}

type buildTxResult struct {
	TxData TxData `json:"txData"`
}

type buildTxResponse struct {
	envelope
	Result buildTxResult `json:"result"`
}

// Status is the cross-chain settlement state of a submitted request.
type Status struct {
	State           string `json:"bungeeStatusCode"`
	DestinationHash string `json:"destinationTransactionHash"`
	Detail          string `json:"detail"`
}

type statusResponse struct {
	envelope
	Result []Status `json:"result"`
}

// Terminal settlement states reported by the status endpoint.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusRefunded  = "REFUNDED"
)

// IsTerminal reports whether a settlement state will not change anymore.
func (s Status) IsTerminal() bool {
	switch s.State {
	case StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}
