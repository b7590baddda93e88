package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultRPCURL is the public mainnet-beta endpoint.
const DefaultRPCURL = "https://api.mainnet-beta.solana.com"

// RPCClient is a minimal Solana JSON-RPC 2.0 client covering what the
// executor needs: balance reads, raw transaction submission, confirmation
// polling, and fee lookups.
type RPCClient struct {
	endpoint   string
	httpClient *http.Client
	requestID  atomic.Uint64
}

// NewRPCClient creates an RPC client for the given endpoint. An empty
// endpoint falls back to public mainnet-beta.
func NewRPCClient(endpoint string) *RPCClient {
	if endpoint == "" {
		endpoint = DefaultRPCURL
	}
	return &RPCClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("solana: marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("solana: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("solana: %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("solana: read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("solana: %s status %d: %s", method, resp.StatusCode, string(body))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("solana: decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("solana: %s: %w", method, rpcResp.Error)
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("solana: decode %s result: %w", method, err)
		}
	}
	return nil
}

// GetBalance returns the lamport balance of the given account.
func (c *RPCClient) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	var out struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{pubkey}, &out); err != nil {
		return 0, err
	}
	return out.Value, nil
}

// SendRawTransaction submits a base64-encoded signed transaction and returns
// its signature. Preflight is skipped; failed swaps surface through the
// confirmation status instead.
func (c *RPCClient) SendRawTransaction(ctx context.Context, signedTxBase64 string) (string, error) {
	var signature string
	params := []any{
		signedTxBase64,
		map[string]any{
			"encoding":      "base64",
			"skipPreflight": true,
			"maxRetries":    2,
		},
	}
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// ConfirmTransaction polls signature statuses until the transaction reaches
// confirmed or finalized commitment, or the context expires. An on-chain
// program error in the status is reported as a failure.
func (c *RPCClient) ConfirmTransaction(ctx context.Context, signature string) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		var out struct {
			Value []*struct {
				ConfirmationStatus string          `json:"confirmationStatus"`
				Err                json.RawMessage `json:"err"`
			} `json:"value"`
		}
		params := []any{
			[]string{signature},
			map[string]any{"searchTransactionHistory": true},
		}
		if err := c.call(ctx, "getSignatureStatuses", params, &out); err != nil {
			return err
		}
		if len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if len(status.Err) > 0 && string(status.Err) != "null" {
				return fmt.Errorf("solana: transaction failed: %s", string(status.Err))
			}
			if status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized" {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("solana: confirm %s: %w", signature, ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetTransactionFee returns the fee paid by a confirmed transaction in
// lamports. Used for diagnostics only.
func (c *RPCClient) GetTransactionFee(ctx context.Context, signature string) (uint64, error) {
	var out struct {
		Meta *struct {
			Fee uint64 `json:"fee"`
		} `json:"meta"`
	}
	params := []any{
		signature,
		map[string]any{
			"commitment":                     "confirmed",
			"maxSupportedTransactionVersion": 0,
		},
	}
	if err := c.call(ctx, "getTransaction", params, &out); err != nil {
		return 0, err
	}
	if out.Meta == nil {
		return 0, nil
	}
	return out.Meta.Fee, nil
}
