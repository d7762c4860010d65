package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mtlnet/mtl/block"
	"github.com/mtlnet/mtl/errors"
	"github.com/mtlnet/mtl/jsonx"
	"github.com/mtlnet/mtl/transaction"
)

// Client is a minimal JSON-RPC 2.0 client over HTTP for the node's
// method surface.
type Client struct {
	url        string
	httpClient *http.Client
	seq        atomic.Int64
}

func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponseError struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    *errors.LedgerError `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      int64             `json:"id"`
	Result  json.RawMessage   `json:"result,omitempty"`
	Error   *rpcResponseError `json:"error,omitempty"`
}

// Call posts one JSON-RPC request and decodes the result into result
// when it is non-nil. Ledger errors surface with their codes intact.
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	payload, err := jsonx.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.seq.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("rpc %s: failed to read response: %w", method, err)
	}

	var rpcResp rpcResponse
	if err := jsonx.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("rpc %s: invalid response: %w", method, err)
	}
	if rpcResp.Error != nil {
		if rpcResp.Error.Data != nil && rpcResp.Error.Data.Code != "" {
			return rpcResp.Error.Data
		}
		return fmt.Errorf("rpc %s failed with code %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if result == nil {
		return nil
	}
	if err := jsonx.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("rpc %s: failed to decode result: %w", method, err)
	}
	return nil
}

// GetBalance reads the committed balance of (ticker, address).
func (c *Client) GetBalance(ctx context.Context, ticker transaction.Ticker, address string) (uint16, error) {
	var out getBalanceResult
	err := c.Call(ctx, MethodLedgerGetBalance, getBalanceParams{Ticker: string(ticker), Address: address}, &out)
	return out.Balance, err
}

// IsInitialized reports whether ticker has been minted.
func (c *Client) IsInitialized(ctx context.Context, ticker transaction.Ticker) (bool, error) {
	var out isInitializedResult
	err := c.Call(ctx, MethodLedgerIsInitialized, isInitializedParams{Ticker: string(ticker)}, &out)
	return out.Initialized, err
}

// GetNonce reads the last committed nonce for address.
func (c *Client) GetNonce(ctx context.Context, address string) (uint64, error) {
	var out getNonceResult
	err := c.Call(ctx, MethodLedgerGetNonce, getNonceParams{Address: address}, &out)
	return out.Nonce, err
}

// GetStateHash reads the deterministic digest of the committed state.
func (c *Client) GetStateHash(ctx context.Context) (string, error) {
	var out getStateHashResult
	err := c.Call(ctx, MethodLedgerGetStateHash, nil, &out)
	return out.StateHash, err
}

// GetTip fetches the current chain tip.
func (c *Client) GetTip(ctx context.Context) (*block.Block, error) {
	var out block.Block
	if err := c.Call(ctx, MethodChainGetTip, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBlock fetches the block at the given number.
func (c *Client) GetBlock(ctx context.Context, number uint32) (*block.Block, error) {
	var out block.Block
	if err := c.Call(ctx, MethodChainGetBlock, getBlockParams{Number: number}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProposeBlock submits a block for application.
func (c *Client) ProposeBlock(ctx context.Context, b *block.Block) (*ProposeBlockResult, error) {
	var out ProposeBlockResult
	if err := c.Call(ctx, MethodChainProposeBlock, proposeBlockParams{Block: b}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
