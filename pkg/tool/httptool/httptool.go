// Package httptool implements the tool.Tool port for the family of
// vendor backends that expose a plain JSON HTTP API: metrics, alarms,
// and log queries. Retry/backoff behavior is grounded on
// hashicorp/go-retryablehttp, the HTTP client the tareqmamari
// cloud-logs-mcp example wires for its own vendor API calls.
package httptool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/sreinvestigator/investigator/pkg/tool"
)

// Config configures one HTTP-backed tool instance.
type Config struct {
	Name        string
	Description string
	Endpoint    string
	APIKey      string
	Schema      tool.Schema
	Timeout     time.Duration
}

// Client is a generic JSON-over-HTTP tool backend: it POSTs the call's
// arguments as a JSON body to Endpoint and returns the decoded JSON
// response body as the result content.
type Client struct {
	cfg  Config
	http *retryablehttp.Client
}

// New builds an HTTP-backed tool from cfg. The retryable client retries
// idempotent-looking failures (5xx, connection errors) up to 3 times,
// using retryablehttp's default exponential backoff.
func New(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	} else {
		rc.HTTPClient.Timeout = 15 * time.Second
	}
	return &Client{cfg: cfg, http: rc}
}

func (c *Client) Name() string                  { return c.cfg.Name }
func (c *Client) Description() string           { return c.cfg.Description }
func (c *Client) ParametersSchema() tool.Schema { return c.cfg.Schema }

// Execute posts args to the configured endpoint and decodes the JSON
// response. A 4xx or 5xx response is reported as a tool-level error
// (Result.Error), not a Go error, so the caller's cache layer treats it
// as an uncacheable failed result rather than a transport fault.
func (c *Client) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("httptool %s: encoding args: %w", c.cfg.Name, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httptool %s: building request: %w", c.cfg.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httptool %s: request failed: %w", c.cfg.Name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httptool %s: reading response: %w", c.cfg.Name, err)
	}

	if resp.StatusCode >= 400 {
		return &tool.Result{Error: fmt.Sprintf("%s: status %d: %s", c.cfg.Name, resp.StatusCode, string(respBody))}, nil
	}

	var content map[string]any
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &content); err != nil {
			return &tool.Result{Content: map[string]any{"raw": string(respBody)}}, nil
		}
	}
	return &tool.Result{Content: content}, nil
}
