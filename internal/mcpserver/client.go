package mcpserver

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

// Config holds the configuration for connecting to the Aegis platform.
type Config struct {
	APIURL        string // Base URL, e.g. "http://localhost:8080"
	APIKey        string // API key, e.g. "sk_..."
	WalletAddress string // Monitored wallet, e.g. "0x..."
}

// AegisClient is a pure HTTP client for the Aegis platform API.
type AegisClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewAegisClient creates a new client for the Aegis platform.
func NewAegisClient(cfg Config) *AegisClient {
	return &AegisClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// apiError represents an error response from the platform.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the platform and returns the response body.
func (c *AegisClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// ScanWallet runs a detection and analysis pass over the wallet without
// dispatching any response transactions.
func (c *AegisClient) ScanWallet(ctx context.Context) (json.RawMessage, error) {
	path := "/v1/scan/" + c.cfg.WalletAddress
	return c.doRequest(ctx, http.MethodPost, path, nil, nil)
}

// ExecuteResponses runs the full pipeline, dispatching authorized protective
// actions for any threats found.
func (c *AegisClient) ExecuteResponses(ctx context.Context) (json.RawMessage, error) {
	path := "/v1/scan/" + c.cfg.WalletAddress + "/execute"
	return c.doRequest(ctx, http.MethodPost, path, nil, nil)
}

// ScorePoolRisk scores a liquidity pool from raw metrics.
func (c *AegisClient) ScorePoolRisk(ctx context.Context, metrics map[string]any) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/risk/score", nil, metrics)
}

// GetProof fetches a decision record by ID.
func (c *AegisClient) GetProof(ctx context.Context, proofID string) (json.RawMessage, error) {
	path := "/v1/proofs/" + proofID
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}

// VerifyProof checks a decision record's evidence backing and freshness.
func (c *AegisClient) VerifyProof(ctx context.Context, proofID string) (json.RawMessage, error) {
	path := "/v1/proofs/" + proofID + "/verify"
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}

// ListProofs returns recent decision records for the wallet.
func (c *AegisClient) ListProofs(ctx context.Context, limit int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("subject", c.cfg.WalletAddress)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/proofs", q, nil)
}

// GetPermissions returns the wallet's permission configuration.
func (c *AegisClient) GetPermissions(ctx context.Context) (json.RawMessage, error) {
	path := "/v1/permissions/" + c.cfg.WalletAddress
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}
