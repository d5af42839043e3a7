// Package frappe is a small client for the Frappe resource API, used by the
// job lookup tools.
package frappe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Doc is a Frappe document; schemas vary per doctype so fields stay dynamic.
type Doc map[string]any

// Config holds connection settings for one Frappe site.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration // default 10s
	Retries   int           // extra attempts on network error or 5xx, default 1; negative disables
}

// Client talks to the Frappe resource API with token auth.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New builds a Client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries == 0 {
		cfg.Retries = 1
	} else if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) authHeader() string {
	// Frappe token header format: "token API_KEY:API_SECRET"
	return fmt.Sprintf("token %s:%s", c.cfg.APIKey, c.cfg.APISecret)
}

// ListOptions narrows a List call.
type ListOptions struct {
	// Filter is a Frappe filter triple, e.g. ["job", "=", "J-001"].
	Filter  []string
	Fields  []string
	OrderBy string
	Limit   int
}

// GetDoc fetches a single document by doctype and name.
func (c *Client) GetDoc(ctx context.Context, doctype, name string) (Doc, error) {
	u := fmt.Sprintf("%s/api/resource/%s/%s",
		c.cfg.BaseURL, url.PathEscape(doctype), url.PathEscape(name))
	query := url.Values{}
	query.Set("fields", `["*"]`)

	var out struct {
		Data Doc `json:"data"`
	}
	if err := c.getJSON(ctx, u, query, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// List fetches documents of a doctype matching the options.
func (c *Client) List(ctx context.Context, doctype string, opts ListOptions) ([]Doc, error) {
	u := fmt.Sprintf("%s/api/resource/%s", c.cfg.BaseURL, url.PathEscape(doctype))

	fields := opts.Fields
	if len(fields) == 0 {
		fields = []string{"*"}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("fields", string(fieldsJSON))
	if len(opts.Filter) > 0 {
		filterJSON, err := json.Marshal(opts.Filter)
		if err != nil {
			return nil, err
		}
		query.Set("filter", string(filterJSON))
	}
	if opts.OrderBy != "" {
		query.Set("order_by", opts.OrderBy)
	}
	if opts.Limit > 0 {
		query.Set("limit_page_length", strconv.Itoa(opts.Limit))
	}

	var out struct {
		Data []Doc `json:"data"`
	}
	if err := c.getJSON(ctx, u, query, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// getJSON performs a GET with auth and decodes the response, retrying once
// on network errors and 5xx statuses.
func (c *Client) getJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	fullURL := rawURL
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create frappe request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", c.authHeader())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("frappe request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read frappe response: %w", err)
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("frappe returned status %d: %s", resp.StatusCode, string(body))
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("frappe returned status %d: %s", resp.StatusCode, string(body))
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode frappe response: %w", err)
		}
		return nil
	}
	return lastErr
}
