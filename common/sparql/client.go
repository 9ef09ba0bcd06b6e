package sparql

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/liqk/gate/common/logger"
	"github.com/tidwall/gjson"
)

const (
	queryContentType  = "application/sparql-query"
	updateContentType = "application/sparql-update"
	resultsAccept     = "application/sparql-results+json"

	// Result bodies are small (bindings over metadata, never file content),
	// so a hard cap protects against a misbehaving upstream.
	maxResultBytes = 8 << 20
)

// Binding maps a result variable name to its bound value
type Binding map[string]string

// Client speaks the SPARQL protocol against a single upstream engine.
// Queries go to <base>/query, updates to <base>/update.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient creates a SPARQL protocol client. The http.Client is shared with
// the reverse-proxy path; the gateway holds exactly one upstream pool.
func NewClient(baseURL string, httpClient *http.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  log,
	}
}

// BaseURL returns the upstream base URL the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Select runs a SELECT query and returns one Binding per result row.
// A non-2xx upstream status is an error; callers that must fail closed
// translate any error into a deny.
func (c *Client) Select(ctx context.Context, query string) ([]Binding, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("building query request: %w", err)
	}
	req.Header.Set("Content-Type", queryContentType)
	req.Header.Set("Accept", resultsAccept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending query: %w", err)
	}
	defer resp.Body.Close()

	// Read one byte past the cap so truncation is detectable instead of
	// silently dropping rows.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading query response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("sparql query rejected", "status", resp.StatusCode, "query", query)
		return nil, fmt.Errorf("query failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if len(body) > maxResultBytes {
		c.logger.Warn("sparql result too large", "limit_bytes", maxResultBytes, "query", query)
		return nil, fmt.Errorf("query result exceeds %d bytes", maxResultBytes)
	}

	return parseBindings(body), nil
}

// Update runs a SPARQL update. Success is determined solely by HTTP status.
func (c *Client) Update(ctx context.Context, update string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/update", strings.NewReader(update))
	if err != nil {
		return fmt.Errorf("building update request: %w", err)
	}
	req.Header.Set("Content-Type", updateContentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResultBytes))
		c.logger.Warn("sparql update rejected", "status", resp.StatusCode, "update", update)
		return fmt.Errorf("update failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

// parseBindings walks results.bindings[i].<var>.value of a
// sparql-results+json document. Unbound variables are simply absent
// from the row's Binding.
func parseBindings(body []byte) []Binding {
	rows := gjson.GetBytes(body, "results.bindings")
	if !rows.IsArray() {
		return nil
	}

	var out []Binding
	rows.ForEach(func(_, row gjson.Result) bool {
		b := Binding{}
		row.ForEach(func(name, cell gjson.Result) bool {
			if v := cell.Get("value"); v.Exists() {
				b[name.String()] = v.String()
			}
			return true
		})
		out = append(out, b)
		return true
	})
	return out
}
