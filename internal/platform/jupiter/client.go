// Package jupiter implements REST clients for the Jupiter swap APIs: the
// authenticated Ultra order/execute flow and the public quote/swap flow used
// as fallback.
package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultUltraBase is the Jupiter Ultra v1 API root (lite endpoint).
	DefaultUltraBase = "https://lite-api.jup.ag/ultra/v1"
	// DefaultQuoteBase is the public quote API host. The official
	// quote-api.jup.ag host is blocked in some regions; this mirror is not.
	DefaultQuoteBase = "https://public.jupiterapi.com"
)

// Client talks to the Jupiter APIs. The API key is optional: without it only
// the public quote flow is available.
type Client struct {
	ultraBase  string
	quoteBase  string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Jupiter client. Empty base URLs fall back to the
// public endpoints.
func NewClient(ultraBase, quoteBase, apiKey string) *Client {
	if ultraBase == "" {
		ultraBase = DefaultUltraBase
	}
	if quoteBase == "" {
		quoteBase = DefaultQuoteBase
	}
	return &Client{
		ultraBase:  ultraBase,
		quoteBase:  quoteBase,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// HasAPIKey reports whether the Ultra flow is available.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// UltraOrder is the response of the Ultra order endpoint: an unsigned
// versioned transaction (base64) plus the request id the execute endpoint
// needs to correlate.
type UltraOrder struct {
	Transaction string `json:"transaction"`
	RequestID   string `json:"requestId"`
}

// CreateUltraOrder requests a swap order from the Ultra endpoint.
func (c *Client) CreateUltraOrder(ctx context.Context, inputMint, outputMint, amountLamports, taker string, slippageBps int) (UltraOrder, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", amountLamports)
	q.Set("taker", taker)
	q.Set("slippageBps", strconv.Itoa(slippageBps))

	var order UltraOrder
	if err := c.getJSON(ctx, c.ultraBase+"/order?"+q.Encode(), true, &order); err != nil {
		return UltraOrder{}, fmt.Errorf("jupiter: ultra order: %w", err)
	}
	if order.Transaction == "" {
		return UltraOrder{}, fmt.Errorf("jupiter: ultra order response missing transaction")
	}
	return order, nil
}

// UltraExecuteResult is the response of the Ultra execute endpoint. The
// signature field name has varied across API versions.
type UltraExecuteResult struct {
	TxID      string `json:"txid"`
	Signature string `json:"signature"`
	Status    string `json:"status"`
	Error     string `json:"error"`
}

// TxSignature returns whichever signature field the API populated.
func (r UltraExecuteResult) TxSignature() string {
	if r.TxID != "" {
		return r.TxID
	}
	return r.Signature
}

// ExecuteUltraOrder submits the locally signed transaction back to the Ultra
// execute endpoint together with the original request id.
func (c *Client) ExecuteUltraOrder(ctx context.Context, signedTxBase64, requestID string) (UltraExecuteResult, error) {
	payload := map[string]string{
		"signedTransaction": signedTxBase64,
		"requestId":         requestID,
	}

	var result UltraExecuteResult
	if err := c.postJSON(ctx, c.ultraBase+"/execute", true, payload, &result); err != nil {
		return UltraExecuteResult{}, fmt.Errorf("jupiter: ultra execute: %w", err)
	}
	if result.TxSignature() == "" {
		msg := result.Error
		if msg == "" {
			msg = result.Status
		}
		return UltraExecuteResult{}, fmt.Errorf("jupiter: ultra execute returned no signature: %s", msg)
	}
	return result, nil
}

// GetQuote fetches a public quote. The raw quote body is passed through to
// the swap endpoint untouched, so it stays opaque here.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint, amountLamports string, slippageBps int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", amountLamports)
	q.Set("slippageBps", strconv.Itoa(slippageBps))

	var quote json.RawMessage
	if err := c.getJSON(ctx, c.quoteBase+"/quote?"+q.Encode(), false, &quote); err != nil {
		return nil, fmt.Errorf("jupiter: quote: %w", err)
	}
	return quote, nil
}

// BuildSwapTx asks the public swap endpoint to build an unsigned versioned
// transaction from a previously fetched quote.
func (c *Client) BuildSwapTx(ctx context.Context, quote json.RawMessage, userPublicKey string) (string, error) {
	payload := map[string]any{
		"quoteResponse":    quote,
		"userPublicKey":    userPublicKey,
		"wrapAndUnwrapSol": true,
	}

	var result struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := c.postJSON(ctx, c.quoteBase+"/swap", false, payload, &result); err != nil {
		return "", fmt.Errorf("jupiter: build swap tx: %w", err)
	}
	if result.SwapTransaction == "" {
		return "", fmt.Errorf("jupiter: swap response missing transaction")
	}
	return result.SwapTransaction, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, auth bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, auth, out)
}

func (c *Client) postJSON(ctx context.Context, rawURL string, auth bool, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, auth, out)
}

func (c *Client) do(req *http.Request, auth bool, out any) error {
	if auth && c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
