package bungee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is Bungee's public backend.
const DefaultBaseURL = "https://public-backend.bungee.exchange"

var (
	// ErrNoRouteFound is returned when a quote succeeds but carries zero
	// usable routes for the requested pair.
	ErrNoRouteFound = errors.New("no route found for requested swap")

	// ErrStatusUnavailable is returned when the aggregator has no record of
	// a request hash yet. Expected right after submission; callers should
	// retry with backoff rather than treat it as a hard failure.
	ErrStatusUnavailable = errors.New("settlement status not available yet")
)

// Client talks to the Bungee public API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Bungee API client. An empty baseURL selects the public
// backend; timeout bounds every request and must not be zero.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ListTokens returns the owner's token balances across the given chains,
// with per-token USD valuation where the aggregator can price them.
func (c *Client) ListTokens(ctx context.Context, owner string, chainIDs []int64) ([]TokenBalance, error) {
	ids := make([]string, 0, len(chainIDs))
	for _, id := range chainIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}

	params := url.Values{}
	params.Set("userAddress", owner)
	params.Set("chainIds", strings.Join(ids, ","))

	var resp tokenListResponse
	if err := c.get(ctx, "/api/v1/tokens/list", params, &resp); err != nil {
		return nil, err
	}

	tokens := make([]TokenBalance, 0)
	for _, byChain := range resp.Result {
		tokens = append(tokens, byChain...)
	}
	return tokens, nil
}

// QuoteParams are the inputs to a quote request. InputAmount is the raw
// smallest-unit amount of the input token.
type QuoteParams struct {
	UserAddress        string
	OriginChainID      int64
	DestinationChainID int64
	InputToken         string
	InputAmount        *big.Int
	OutputToken        string
	Receiver           string
	FeeTakerAddress    string
	FeeBps             int
}

// GetQuote requests a bridge/swap quote and selects the first returned route.
// The aggregator ranks routes itself; no client-side scoring is applied.
func (c *Client) GetQuote(ctx context.Context, p QuoteParams) (*Quote, error) {
	if p.InputAmount == nil || p.InputAmount.Sign() <= 0 {
		return nil, fmt.Errorf("quote requires a positive input amount")
	}

	params := url.Values{}
	params.Set("userAddress", p.UserAddress)
	params.Set("originChainId", strconv.FormatInt(p.OriginChainID, 10))
	params.Set("destinationChainId", strconv.FormatInt(p.DestinationChainID, 10))
	params.Set("inputToken", p.InputToken)
	params.Set("inputAmount", p.InputAmount.String())
	params.Set("outputToken", p.OutputToken)
	params.Set("receiverAddress", p.Receiver)
	if p.FeeTakerAddress != "" {
		params.Set("feeTakerAddress", p.FeeTakerAddress)
		params.Set("feeBps", strconv.Itoa(p.FeeBps))
	}

	var resp quoteResponse
	raw, err := c.getRaw(ctx, "/api/v1/bungee/quote", params, &resp)
	if err != nil {
		return nil, err
	}

	route := resp.Result.AutoRoute
	if route == nil && len(resp.Result.ManualRoutes) > 0 {
		route = &resp.Result.ManualRoutes[0]
	}
	if route == nil {
		return nil, ErrNoRouteFound
	}

	return &Quote{
		QuoteID:       route.QuoteID,
		RequestType:   route.RequestType,
		ApprovalData:  route.ApprovalData,
		SignTypedData: route.SignTypedData,
		Witness:       route.Witness,
		OutputAmount:  route.OutputAmount,
		EstimatedTime: route.EstimatedTime,
		Raw:           raw,
	}, nil
}

// BuildTransaction asks the aggregator to materialize the executable
// transaction for a previously obtained quote. Common failure cause is an
// expired quote; the caller surfaces that and does not re-quote.
func (c *Client) BuildTransaction(ctx context.Context, quoteID string) (*TxData, error) {
	params := url.Values{}
	params.Set("quoteId", quoteID)

	u := c.baseURL + "/api/v1/bungee/build-tx?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var resp buildTxResponse
	if err := c.do(req, "build-tx", &resp, nil); err != nil {
		return nil, err
	}
	return &resp.Result.TxData, nil
}

// CheckStatus is a single-shot read of cross-chain settlement state for a
// submitted request hash. It is not a polling loop; callers decide cadence.
func (c *Client) CheckStatus(ctx context.Context, requestHash string) (*Status, error) {
	params := url.Values{}
	params.Set("id", requestHash)

	var resp statusResponse
	if err := c.get(ctx, "/api/v1/bungee/status", params, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrStatusUnavailable
		}
		return nil, err
	}

	if len(resp.Result) == 0 {
		return nil, ErrStatusUnavailable
	}
	return &resp.Result[0], nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	_, err := c.getRaw(ctx, path, params, out)
	return err
}

// getRaw performs a GET and returns the raw body alongside decoding into out.
func (c *Client) getRaw(ctx context.Context, path string, params url.Values, out interface{}) (json.RawMessage, error) {
	u := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var raw json.RawMessage
	if err := c.do(req, strings.TrimPrefix(path, "/api/v1/"), out, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// do executes a request and decodes the enveloped response, converting both
// transport-level failures and success=false bodies into errors. The
// aggregator's own status code, message and request id are preserved.
func (c *Client) do(req *http.Request, endpoint string, out interface{}, rawOut *json.RawMessage) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bungee %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("bungee %s: reading response: %w", endpoint, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("bungee %s: malformed response (status %d): %w", endpoint, resp.StatusCode, err)
	}

	if !env.Success {
		statusCode := env.StatusCode
		if statusCode == 0 {
			statusCode = resp.StatusCode
		}
		return &APIError{
			Endpoint:      endpoint,
			StatusCode:    statusCode,
			Message:       env.Message,
			CorrelationID: env.RequestID,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("bungee %s: decoding response: %w", endpoint, err)
	}
	if rawOut != nil {
		*rawOut = json.RawMessage(body)
	}
	return nil
}
