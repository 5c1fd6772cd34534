package bungee

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestListTokens(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tokens/list", r.URL.Path)
		assert.Equal(t, "0xdonor", r.URL.Query().Get("userAddress"))
		assert.Equal(t, "1,8453", r.URL.Query().Get("chainIds"))

		w.Write([]byte(`{
			"success": true,
			"statusCode": 200,
			"result": {
				"1": [{"symbol": "USDC", "address": "0xa0b8", "decimals": 6, "chainId": 1, "balance": "100000000", "balanceInUsd": "100.50"}],
				"8453": [{"symbol": "ETH", "address": "0xeee", "decimals": 18, "chainId": 8453, "balance": "2000000000000000000", "balanceInUsd": "6400"}]
			}
		}`))
	})

	tokens, err := client.ListTokens(context.Background(), "0xdonor", []int64{1, 8453})
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	bySymbol := map[string]TokenBalance{}
	for _, tok := range tokens {
		bySymbol[tok.Symbol] = tok
	}
	assert.Equal(t, "100000000", bySymbol["USDC"].Balance)
	assert.Equal(t, "100.50", bySymbol["USDC"].BalanceInUSD)
	assert.Equal(t, int64(8453), bySymbol["ETH"].ChainID)
}

func TestGetQuotePrefersAutoRoute(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bungee/quote", r.URL.Path)
		assert.Equal(t, "24875621", r.URL.Query().Get("inputAmount"))
		assert.Equal(t, "8453", r.URL.Query().Get("destinationChainId"))

		w.Write([]byte(`{
			"success": true,
			"statusCode": 200,
			"result": {
				"autoRoute": {
					"quoteId": "q-auto",
					"requestType": "SINGLE_OUTPUT_REQUEST",
					"approvalData": {"tokenAddress": "0xtoken", "spenderAddress": "0xspender", "amount": "24875621", "userAddress": "0xdonor"},
					"signTypedData": {"domain": {"name": "Permit2"}},
					"witness": {"nonce": "7"},
					"outputAmount": "24850000"
				},
				"manualRoutes": [{"quoteId": "q-manual"}]
			}
		}`))
	})

	quote, err := client.GetQuote(context.Background(), QuoteParams{
		UserAddress:        "0xdonor",
		OriginChainID:      1,
		DestinationChainID: 8453,
		InputToken:         "0xtoken",
		InputAmount:        big.NewInt(24875621),
		OutputToken:        "0xusdc",
		Receiver:           "0xcreator",
	})
	require.NoError(t, err)

	assert.Equal(t, "q-auto", quote.QuoteID)
	require.NotNil(t, quote.ApprovalData)
	assert.Equal(t, "0xspender", quote.ApprovalData.SpenderAddress)
	assert.JSONEq(t, `{"domain": {"name": "Permit2"}}`, string(quote.SignTypedData))
	assert.JSONEq(t, `{"nonce": "7"}`, string(quote.Witness))
	assert.NotEmpty(t, quote.Raw)
}

func TestGetQuoteFallsBackToFirstManualRoute(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"success": true,
			"statusCode": 200,
			"result": {
				"autoRoute": null,
				"manualRoutes": [{"quoteId": "q-first"}, {"quoteId": "q-second"}]
			}
		}`))
	})

	quote, err := client.GetQuote(context.Background(), QuoteParams{
		InputAmount: big.NewInt(1000),
	})
	require.NoError(t, err)
	assert.Equal(t, "q-first", quote.QuoteID)
	assert.Nil(t, quote.ApprovalData)
}

func TestGetQuoteNoRoutes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "statusCode": 200, "result": {"autoRoute": null, "manualRoutes": []}}`))
	})

	_, err := client.GetQuote(context.Background(), QuoteParams{InputAmount: big.NewInt(1000)})
	assert.ErrorIs(t, err, ErrNoRouteFound)
}

func TestGetQuoteRejectsNonPositiveAmount(t *testing.T) {
	client := NewClient("http://unused", time.Second)

	_, err := client.GetQuote(context.Background(), QuoteParams{InputAmount: big.NewInt(0)})
	assert.Error(t, err)

	_, err = client.GetQuote(context.Background(), QuoteParams{})
	assert.Error(t, err)
}

func TestGetQuoteForwardsFeeParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0xfee", r.URL.Query().Get("feeTakerAddress"))
		assert.Equal(t, "50", r.URL.Query().Get("feeBps"))
		w.Write([]byte(`{"success": true, "statusCode": 200, "result": {"autoRoute": {"quoteId": "q"}}}`))
	})

	_, err := client.GetQuote(context.Background(), QuoteParams{
		InputAmount:     big.NewInt(1000),
		FeeTakerAddress: "0xfee",
		FeeBps:          50,
	})
	require.NoError(t, err)
}

func TestAPIErrorSurfacedVerbatim(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"success": false, "statusCode": 422, "message": "INSUFFICIENT_INPUT_AMOUNT", "requestId": "req-123"}`))
	})

	_, err := client.GetQuote(context.Background(), QuoteParams{InputAmount: big.NewInt(1)})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 422, apiErr.StatusCode)
	assert.Equal(t, "INSUFFICIENT_INPUT_AMOUNT", apiErr.Message)
	assert.Equal(t, "req-123", apiErr.CorrelationID)
	assert.Contains(t, apiErr.Error(), "INSUFFICIENT_INPUT_AMOUNT")
	assert.Contains(t, apiErr.Error(), "req-123")
}

func TestAPIErrorFallsBackToHTTPStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"success": false, "message": "upstream unavailable"}`))
	})

	_, err := client.GetQuote(context.Background(), QuoteParams{InputAmount: big.NewInt(1)})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestBuildTransaction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/bungee/build-tx", r.URL.Path)
		assert.Equal(t, "q-auto", r.URL.Query().Get("quoteId"))

		w.Write([]byte(`{
			"success": true,
			"statusCode": 200,
			"result": {"txData": {"to": "0xrouter", "data": "0xdeadbeef", "value": "0x0", "chainId": 1}}
		}`))
	})

	tx, err := client.BuildTransaction(context.Background(), "q-auto")
	require.NoError(t, err)
	assert.Equal(t, "0xrouter", tx.To)
	assert.Equal(t, "0xdeadbeef", tx.Data)
	assert.Equal(t, "0x0", tx.Value)
	assert.Equal(t, int64(1), tx.ChainID)
}

func TestBuildTransactionExpiredQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success": false, "statusCode": 400, "message": "QUOTE_EXPIRED", "requestId": "req-9"}`))
	})

	_, err := client.BuildTransaction(context.Background(), "q-stale")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "QUOTE_EXPIRED", apiErr.Message)
}

func TestCheckStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bungee/status", r.URL.Path)
		assert.Equal(t, "0xhash", r.URL.Query().Get("id"))

		w.Write([]byte(`{
			"success": true,
			"statusCode": 200,
			"result": [{"bungeeStatusCode": "COMPLETED", "destinationTransactionHash": "0xdest"}]
		}`))
	})

	status, err := client.CheckStatus(context.Background(), "0xhash")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status.State)
	assert.Equal(t, "0xdest", status.DestinationHash)
	assert.True(t, status.IsTerminal())
}

func TestCheckStatusUnavailable(t *testing.T) {
	t.Run("empty result", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success": true, "statusCode": 200, "result": []}`))
		})

		_, err := client.CheckStatus(context.Background(), "0xhash")
		assert.ErrorIs(t, err, ErrStatusUnavailable)
	})

	t.Run("not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success": false, "statusCode": 404, "message": "not found"}`))
		})

		_, err := client.CheckStatus(context.Background(), "0xhash")
		assert.ErrorIs(t, err, ErrStatusUnavailable)
	})
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, Status{State: StatusPending}.IsTerminal())
	assert.True(t, Status{State: StatusCompleted}.IsTerminal())
	assert.True(t, Status{State: StatusFailed}.IsTerminal())
	assert.True(t, Status{State: StatusRefunded}.IsTerminal())
}
