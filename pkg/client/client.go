// Package client implements the toolkit-facing capability adapter. It
// makes the gateway look like a native database to generic SQL toolkits by
// translating connection-lifecycle and schema-reflection calls into HTTP
// requests against the gateway and reshaping the JSON responses into the
// toolkit's metadata records.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/omnidb-project/omnidb/pkg/dialect"
)

// UpstreamError reports a transport-level failure reaching the gateway.
type UpstreamError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gateway unreachable at %s: %v", e.URL, e.Err)
}

// Unwrap returns the transport error.
func (e *UpstreamError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx gateway response.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway returned %d for %s", e.StatusCode, e.URL)
}

// Client is a connection to the gateway on behalf of one toolkit
// consumer. It holds no mutable state beyond the resolved base URL and
// dialect, so concurrent calls need no locking.
type Client struct {
	BaseURL *url.URL
	Dialect dialect.Dialect

	httpClient *http.Client
}

// Connect resolves a toolkit connection URL into a gateway client. The
// scheme's backend name (the part before any "+driver" suffix) picks the
// transpiler dialect, with a generic fallback for unknown backends; host,
// port and path locate the gateway.
func Connect(rawURL string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing connection URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("connection URL %q has no host", rawURL)
	}

	backend := u.Scheme
	if i := strings.Index(backend, "+"); i >= 0 {
		backend = backend[:i]
	}

	base := &url.URL{Scheme: "http", Host: u.Host, Path: strings.TrimSuffix(u.Path, "/")}
	return &Client{
		BaseURL:    base,
		Dialect:    dialect.FromBackend(backend),
		httpClient: http.DefaultClient,
	}, nil
}

// Ping reports whether the gateway is alive.
func (c *Client) Ping(ctx context.Context) (bool, error) {
	resp, err := c.head(ctx, c.endpoint("ping"))
	if err != nil {
		return false, err
	}
	return resp == http.StatusOK, nil
}

// TableExists reports whether the named table exists in the backing
// store.
func (c *Client) TableExists(ctx context.Context, name string) (bool, error) {
	resp, err := c.head(ctx, c.endpoint("reflection", name))
	if err != nil {
		return false, err
	}
	return resp == http.StatusOK, nil
}

// ListTables returns all table names in the backing store.
func (c *Client) ListTables(ctx context.Context) ([]string, error) {
	var payload struct {
		Results []string `json:"results"`
	}
	if err := c.getJSON(ctx, c.endpoint("reflection"), &payload); err != nil {
		return nil, err
	}
	if payload.Results == nil {
		return []string{}, nil
	}
	return payload.Results, nil
}

// ListColumns returns the columns of the named table in the toolkit's
// native shape.
func (c *Client) ListColumns(ctx context.Context, name string) ([]ColumnDef, error) {
	var payload struct {
		Results struct {
			Columns []wireColumn `json:"columns"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, c.endpoint("reflection", name), &payload); err != nil {
		return nil, err
	}

	columns := make([]ColumnDef, len(payload.Results.Columns))
	for i, col := range payload.Results.Columns {
		columns[i] = ColumnDef{
			Name:     col.Name,
			Type:     typeFor(col.Type),
			Nullable: col.Nullable,
			Default:  col.Default,
		}
	}
	return columns, nil
}

// ListViews returns view names. The gateway protocol does not expose
// views, so the list is always empty.
func (c *Client) ListViews(context.Context) ([]string, error) {
	return []string{}, nil
}

// ListSchemas returns the schema names. The backing store is not
// multi-schema aware over this protocol.
func (c *Client) ListSchemas(context.Context) ([]string, error) {
	return []string{"main"}, nil
}

// PrimaryKey returns the primary key constraint of a table. Not exposed
// by the protocol.
func (c *Client) PrimaryKey(context.Context, string) (Constraint, error) {
	return Constraint{Columns: []string{}}, nil
}

// ForeignKeys returns foreign key constraints. Not exposed by the
// protocol.
func (c *Client) ForeignKeys(context.Context, string) ([]Constraint, error) {
	return []Constraint{}, nil
}

// Indexes returns index definitions. Not exposed by the protocol.
func (c *Client) Indexes(context.Context, string) ([]Constraint, error) {
	return []Constraint{}, nil
}

// UniqueConstraints returns unique constraints. Not exposed by the
// protocol.
func (c *Client) UniqueConstraints(context.Context, string) ([]Constraint, error) {
	return []Constraint{}, nil
}

// CheckConstraints returns check constraints. Not exposed by the
// protocol.
func (c *Client) CheckConstraints(context.Context, string) ([]Constraint, error) {
	return []Constraint{}, nil
}

// Rollback is a no-op: the protocol has no transaction boundary.
func (c *Client) Rollback() error { return nil }

// endpoint joins path segments onto the base URL, percent-encoding each
// segment so table names survive slashes and other separators.
func (c *Client) endpoint(segments ...string) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = url.PathEscape(s)
	}
	return c.BaseURL.String() + "/" + strings.Join(parts, "/")
}

func (c *Client) head(ctx context.Context, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &UpstreamError{URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode, nil
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{URL: target, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding gateway response: %w", err)
	}
	return nil
}

// IsUpstreamError reports whether err is a transport-level failure.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
