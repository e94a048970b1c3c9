package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"propchain/crypto"
)

// Config defines the HTTP client settings for the compliance oracle.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client queries a remote compliance oracle over HTTP. The oracle exposes a
// single boolean question per account; transport failures surface as errors so
// the caller can distinguish them from explicit rejections.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type complianceResponse struct {
	Compliant bool `json:"compliant"`
}

// NewClient constructs a client with sane defaults.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("compliance: base url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// IsCompliant asks the oracle whether the supplied account may receive a
// property.
func (c *Client) IsCompliant(ctx context.Context, account [20]byte) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("compliance: client not configured")
	}
	addr := crypto.NewAddress(crypto.AccountPrefix, account[:]).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/accounts/%s/compliance", c.baseURL, addr), nil)
	if err != nil {
		return false, fmt.Errorf("compliance: request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("compliance: call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("compliance: unexpected status %d", resp.StatusCode)
	}
	var payload complianceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, fmt.Errorf("compliance: decode: %w", err)
	}
	return payload.Compliant, nil
}
