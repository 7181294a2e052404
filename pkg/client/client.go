package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
)

// Model types shared with the daemon.
type (
	Asset = ledger.Asset
	Block = ledger.Block
	Entry = ledger.Entry
	Role  = ledger.Role
)

// VerifyResult is the body of GET /api/v1/assets/:id/verify.
type VerifyResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Kind       ledger.Kind
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("ledger %d %s: %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("ledger %d: %s", e.StatusCode, e.Message)
}

// Unwrap exposes the ledger error kind so errors.Is matches the ledger sentinels.
func (e *APIError) Unwrap() error {
	if e.Kind == "" {
		return nil
	}
	return &ledger.Error{Kind: e.Kind, Msg: e.Message}
}

// Client talks to a ledger daemon over HTTP.
type Client struct {
	base       string
	httpClient *http.Client
	autoToken  bool

	// token state, guarded by mu
	mu          sync.Mutex
	bearerToken string
	tokenRole   Role
	tokenExpiry time.Time // zero = token was set manually (no auto-refresh)
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches a pre-obtained role token to every request.
// The token is treated as long-lived and will not be auto-refreshed.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		c.tokenExpiry = time.Time{}
		return nil
	}
}

// WithAutoToken makes SubmitTransaction obtain a role token for its role
// from POST /api/v1/identity/token before submitting.
func WithAutoToken() Option {
	return func(c *Client) error {
		c.autoToken = true
		return nil
	}
}

// New creates a Client for the daemon at base, e.g. "http://localhost:8080".
func New(base string, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(base string, opts ...Option) *Client {
	c, err := New(base, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// SubmitTransaction submits functionName with args on behalf of role and
// returns the tx id of the committed block.
func (c *Client) SubmitTransaction(ctx context.Context, role Role, functionName string, args map[string]string) (string, error) {
	token, err := c.tokenFor(ctx, role)
	if err != nil {
		return "", fmt.Errorf("obtain role token: %w", err)
	}

	payload := struct {
		Function string            `json:"function"`
		Args     map[string]string `json:"args"`
		Role     Role              `json:"role"`
	}{functionName, args, role}

	var resp struct {
		TxID string `json:"tx_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/transactions", token, payload, &resp); err != nil {
		return "", err
	}
	return resp.TxID, nil
}

// QueryAsset returns the projection and history of id.
func (c *Client) QueryAsset(ctx context.Context, id string) (*Entry, error) {
	var entry Entry
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/assets/"+url.PathEscape(id), c.staticToken(), nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListAssets returns every asset projection in insertion order.
func (c *Client) ListAssets(ctx context.Context) ([]Asset, error) {
	var wrapper struct {
		Assets []Asset `json:"assets"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/assets", c.staticToken(), nil, &wrapper); err != nil {
		return nil, err
	}
	if wrapper.Assets == nil {
		wrapper.Assets = []Asset{}
	}
	return wrapper.Assets, nil
}

// VerifyAsset asks the daemon to check the chain and projection of id.
func (c *Client) VerifyAsset(ctx context.Context, id string) (*VerifyResult, error) {
	var result VerifyResult
	path := "/api/v1/assets/" + url.PathEscape(id) + "/verify"
	if err := c.doJSON(ctx, http.MethodGet, path, c.staticToken(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// IssueToken enrols for role and returns the token with its lifetime. The
// client's cached token is not changed.
func (c *Client) IssueToken(ctx context.Context, role string) (string, time.Duration, error) {
	var resp struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/identity/token", "", map[string]string{"role": role}, &resp); err != nil {
		return "", 0, err
	}
	return resp.Token, time.Duration(resp.ExpiresIn) * time.Second, nil
}

// Healthz reports whether the daemon answers its health check.
func (c *Client) Healthz(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/healthz", "", nil, nil)
}

func (c *Client) staticToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bearerToken
}

// tokenFor returns the bearer token to send with a submission for role,
// enrolling when WithAutoToken is set and the cached token is absent,
// expiring or bound to another role.
func (c *Client) tokenFor(ctx context.Context, role Role) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.autoToken {
		return c.bearerToken, nil
	}
	if c.bearerToken != "" && c.tokenRole == role && time.Now().Before(c.tokenExpiry) {
		return c.bearerToken, nil
	}

	token, ttl, err := c.IssueToken(ctx, string(role))
	if err != nil {
		return "", err
	}
	// Refresh 60 s before actual expiry to avoid clock-skew failures.
	const refreshBuffer = 60 * time.Second
	c.bearerToken = token
	c.tokenRole = role
	c.tokenExpiry = time.Now().Add(ttl - refreshBuffer)
	return token, nil
}

// doJSON sends body as JSON and decodes a 2xx response into out.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<22))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBytes))}
		var payload struct {
			Error string      `json:"error"`
			Kind  ledger.Kind `json:"kind"`
		}
		if json.Unmarshal(respBytes, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Kind = payload.Kind
		}
		return apiErr
	}

	if out != nil && len(respBytes) > 0 {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
