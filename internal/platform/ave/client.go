// Package ave implements REST clients for the Ave.ai APIs: the public token
// search endpoint and the third-party chain-wallet swap builder.
package ave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultSearchBase is the Ave v2 data API root.
	DefaultSearchBase = "https://prod.ave-api.com/v2"
	// DefaultBotBase is the Ave third-party trading API root.
	DefaultBotBase = "https://bot-api.ave.ai"

	searchTimeout = 15 * time.Second
)

// Client talks to the Ave.ai APIs. The same access key authenticates both
// the search and the trading endpoints.
type Client struct {
	searchBase string
	botBase    string
	accessKey  string
	httpClient *http.Client
}

// NewClient creates an Ave client. Empty base URLs fall back to the public
// production endpoints.
func NewClient(searchBase, botBase, accessKey string) *Client {
	if searchBase == "" {
		searchBase = DefaultSearchBase
	}
	if botBase == "" {
		botBase = DefaultBotBase
	}
	return &Client{
		searchBase: searchBase,
		botBase:    botBase,
		accessKey:  accessKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// TokenInfo is one candidate from the token search endpoint.
type TokenInfo struct {
	TokenID  string `json:"token_id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Chain    string `json:"chain"`
	Decimals int    `json:"decimals"`
}

type searchResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
	Data   []struct {
		Token   string `json:"token"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
		Chain   string `json:"chain"`
		Decimal int    `json:"decimal"`
	} `json:"data"`
}

// SearchTokens queries the token search endpoint by keyword and returns up to
// limit candidates. The call is bounded by its own timeout independent of the
// caller's context deadline.
func (c *Client) SearchTokens(ctx context.Context, keyword string, limit int) ([]TokenInfo, error) {
	if c.accessKey == "" {
		return nil, fmt.Errorf("ave: access key is not configured")
	}
	if limit <= 0 {
		limit = 1
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("keyword", keyword)
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchBase+"/tokens?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ave: create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.accessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ave: search tokens: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("ave: read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ave: search status %d: %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("ave: decode search response: %w", err)
	}

	out := make([]TokenInfo, 0, len(sr.Data))
	for i, d := range sr.Data {
		if i >= limit {
			break
		}
		out = append(out, TokenInfo{
			TokenID:  d.Token,
			Name:     d.Name,
			Symbol:   d.Symbol,
			Chain:    d.Chain,
			Decimals: d.Decimal,
		})
	}
	return out, nil
}

// CreateEvmTxRequest is the payload for the createEvmTx swap builder.
type CreateEvmTxRequest struct {
	Chain           string `json:"chain"`
	CreatorAddress  string `json:"creatorAddress"`
	InAmount        string `json:"inAmount"`
	InTokenAddress  string `json:"inTokenAddress"`
	OutTokenAddress string `json:"outTokenAddress"`
	SwapType        string `json:"swapType"`
	Slippage        string `json:"slippage"`
}

// CreateEvmTxData is the swap transaction material Ave builds for us. The
// live API is inconsistent with its docs: the call data arrives as either
// txContent or txContext, and toAddress is frequently absent.
type CreateEvmTxData struct {
	Chain       string `json:"chain"`
	ToAddress   string `json:"toAddress"`
	To          string `json:"to"`
	TxContent   string `json:"txContent"`
	TxContext   string `json:"txContext"`
	Slippage    string `json:"slippage"`
	MinReturn   string `json:"minReturn"`
	InAmount    string `json:"inAmount"`
	EstimateOut string `json:"estimateOut"`
	GasLimit    string `json:"gasLimit"`
	RequestTxID string `json:"requestTxId"`
}

type createEvmTxResponse struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   CreateEvmTxData `json:"data"`
}

// StatusExecutionReverted is Ave's distinguished status for a swap that
// reverts in simulation: usually an unsellable (honeypot) token, or a token
// tax larger than the requested slippage.
const StatusExecutionReverted = 3024

// RevertError marks a createEvmTx rejection with the distinguished revert
// status, so callers can report it differently from transport failures.
type RevertError struct {
	Status int
	Msg    string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("ave: create tx failed: execution reverted (status %d): token might be unsellable or tax exceeds slippage", e.Status)
}

// CreateEvmTx asks Ave to build a swap transaction. The returned call data is
// signed and broadcast by the caller; Ave's own relay is not used.
func (c *Client) CreateEvmTx(ctx context.Context, in CreateEvmTxRequest) (CreateEvmTxData, error) {
	if c.accessKey == "" {
		return CreateEvmTxData{}, fmt.Errorf("ave: access key is not configured")
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return CreateEvmTxData{}, fmt.Errorf("ave: marshal createEvmTx payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.botBase+"/v1/thirdParty/chainWallet/createEvmTx", bytes.NewReader(payload))
	if err != nil {
		return CreateEvmTxData{}, fmt.Errorf("ave: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// The docs are ambiguous about the header name; send both.
	req.Header.Set("X-API-KEY", c.accessKey)
	req.Header.Set("Ave-Access-Key", c.accessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CreateEvmTxData{}, fmt.Errorf("ave: createEvmTx: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return CreateEvmTxData{}, fmt.Errorf("ave: read createEvmTx response: %w", err)
	}

	var cr createEvmTxResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return CreateEvmTxData{}, fmt.Errorf("ave: decode createEvmTx response: %w", err)
	}

	if cr.Status == StatusExecutionReverted {
		return CreateEvmTxData{}, &RevertError{Status: cr.Status, Msg: cr.Msg}
	}
	if cr.Status != 0 && cr.Status != 1 && !strings.EqualFold(cr.Msg, "success") {
		return CreateEvmTxData{}, fmt.Errorf("ave: create tx failed: %s (status %d)", cr.Msg, cr.Status)
	}
	return cr.Data, nil
}
