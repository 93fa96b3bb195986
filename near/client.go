// Package near talks to the agent's NEAR contract through the shade agent
// API sidecar. The sidecar holds the agent key and exposes the contract as
// an opaque service with view (read) and call (state-changing) operations.
package near

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// RequestTimeout caps a single sidecar round trip at the transport level.
// It must exceed any per-operation deadline callers attach through the
// request context, so that expiry surfaces as context.DeadlineExceeded and
// can be classified by the caller rather than as an opaque transport error.
const RequestTimeout = 90 * time.Second

// ErrAgentNotConfigured is returned by NewClient when the sidecar base URL
// or contract id is missing. Callers construct the client once at startup
// and inject it; there is no lazily-initialized global.
var ErrAgentNotConfigured = errors.New("shade agent client not configured")

// CallError is a rejection returned by the contract for a call operation.
type CallError struct {
	Method  string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("contract call %s rejected: %s", e.Method, e.Message)
}

// CallResult is the outcome of a successful contract call.
type CallResult struct {
	TransactionHash string `json:"transaction_hash"`
}

// ContractCaller is the surface of the remote ledger consumed by the agent.
type ContractCaller interface {
	// View issues a read-only query against the contract.
	View(ctx context.Context, method string, args any) (json.RawMessage, error)
	// Call invokes a state-changing contract method with the given gas
	// budget and returns the resulting transaction hash.
	Call(ctx context.Context, method string, args any, gas uint64) (*CallResult, error)
	// AccountID returns the agent's NEAR account id.
	AccountID(ctx context.Context) (string, error)
}

// Client is a ContractCaller backed by the shade agent API sidecar.
type Client struct {
	httpClient *http.Client
	baseURL    string
	contractID string
}

// NewClient creates a client for the shade agent API at baseURL, scoped to
// the given agent contract.
func NewClient(baseURL, contractID string) (*Client, error) {
	if baseURL == "" || contractID == "" {
		return nil, ErrAgentNotConfigured
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: RequestTimeout,
		},
		baseURL:    baseURL,
		contractID: contractID,
	}, nil
}

type viewRequest struct {
	ContractID string `json:"contract_id"`
	MethodName string `json:"method_name"`
	Args       any    `json:"args"`
}

type callRequest struct {
	ContractID string `json:"contract_id"`
	MethodName string `json:"method_name"`
	Args       any    `json:"args"`
	Gas        uint64 `json:"gas"`
}

type sidecarResponse struct {
	Result          json.RawMessage `json:"result"`
	TransactionHash string          `json:"transaction_hash"`
	Error           string          `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, body any) (*sidecarResponse, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request for %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent request to %s failed: %w", path, err)
	}
	defer res.Body.Close()

	var sr sidecarResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode agent response from %s: %w", path, err)
	}
	if res.StatusCode != http.StatusOK {
		if sr.Error != "" {
			return &sr, fmt.Errorf("agent returned status %d: %s", res.StatusCode, sr.Error)
		}
		return &sr, fmt.Errorf("agent returned unexpected status %d from %s", res.StatusCode, path)
	}
	return &sr, nil
}

// View implements ContractCaller.
func (c *Client) View(ctx context.Context, method string, args any) (json.RawMessage, error) {
	sr, err := c.post(ctx, "/api/view", viewRequest{
		ContractID: c.contractID,
		MethodName: method,
		Args:       args,
	})
	if err != nil {
		return nil, err
	}
	if sr.Error != "" {
		return nil, fmt.Errorf("view %s failed: %s", method, sr.Error)
	}
	return sr.Result, nil
}

// Call implements ContractCaller. A contract-level rejection is returned as
// a *CallError so callers can surface the contract's message; transport
// failures and context expiry are returned as-is.
func (c *Client) Call(ctx context.Context, method string, args any, gas uint64) (*CallResult, error) {
	sr, err := c.post(ctx, "/api/call", callRequest{
		ContractID: c.contractID,
		MethodName: method,
		Args:       args,
		Gas:        gas,
	})
	if err != nil {
		if sr != nil && sr.Error != "" {
			return nil, &CallError{Method: method, Message: sr.Error}
		}
		return nil, err
	}
	if sr.Error != "" {
		return nil, &CallError{Method: method, Message: sr.Error}
	}
	return &CallResult{TransactionHash: sr.TransactionHash}, nil
}

// AccountID implements ContractCaller.
func (c *Client) AccountID(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/agent-account", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create agent account request: %w", err)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent account request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("agent returned unexpected status %d for account lookup", res.StatusCode)
	}
	var out struct {
		AccountID string `json:"account_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode agent account response: %w", err)
	}
	if out.AccountID == "" {
		return "", fmt.Errorf("agent account response missing account_id")
	}
	return out.AccountID, nil
}
