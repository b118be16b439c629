// Package cms queries the headless content store over its HTTP API. The
// store is optional: content lives there for editors, but the map and the
// pages render without it, so every error here degrades to a logged
// diagnostic rather than an outage.
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotConfigured reports that no content store is reachable because the
// environment carries no project or endpoint.
var ErrNotConfigured = errors.New("cms: not configured")

// UpstreamError reports a non-2xx response from the content store.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("cms: upstream returned %d: %s", e.StatusCode, e.Body)
}

// Record is one content document reduced to what the diagnostics page
// shows: identifier, document type and a human-readable name.
type Record struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// Client talks to the content store.
type Client struct {
	cfg    Config
	http   *http.Client
	log    *slog.Logger
	tracer trace.Tracer
}

// New builds a client. A client built from an empty Config is valid and
// simply reports ErrNotConfigured on use.
func New(cfg Config, log *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		log:    log,
		tracer: otel.Tracer("narrativegeo/cms"),
	}
}

// Configured reports whether the client can reach a content store.
func (c *Client) Configured() bool { return c.cfg.Configured() }

// Dataset returns the dataset name queried by this client.
func (c *Client) Dataset() string { return c.cfg.Dataset }

func (c *Client) endpoint() string {
	if c.cfg.BaseURL != "" {
		return strings.TrimRight(c.cfg.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s.api.sanity.io", c.cfg.ProjectID)
}

// Query runs a raw content query and reduces the result to records. The
// query language is passed through untouched; the store owns its syntax.
func (c *Client) Query(ctx context.Context, query string) ([]Record, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("cms: empty query")
	}

	ctx, span := c.tracer.Start(ctx, "cms.query")
	defer span.End()
	span.SetAttributes(attribute.String("cms.dataset", c.cfg.Dataset))

	u := fmt.Sprintf("%s/v%s/data/query/%s?query=%s",
		c.endpoint(), c.cfg.APIVersion, url.PathEscape(c.cfg.Dataset), url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms: query request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("cms: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	var payload struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("cms: decode response: %w", err)
	}
	records := reduceResult(payload.Result)
	span.SetAttributes(attribute.Int("cms.records", len(records)))
	c.log.Debug("cms query served", "records", len(records))
	return records, nil
}

// reduceResult turns a query result into records. Arrays of documents map
// one-to-one; any other shape (counts, projections, single documents)
// becomes a single synthetic record so console output never comes back
// empty-handed.
func reduceResult(raw json.RawMessage) []Record {
	if len(raw) == 0 || string(raw) == "null" {
		return []Record{}
	}
	var docs []map[string]any
	if err := json.Unmarshal(raw, &docs); err == nil {
		records := make([]Record, 0, len(docs))
		for _, d := range docs {
			records = append(records, recordFrom(d))
		}
		return records
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err == nil {
		return []Record{recordFrom(doc)}
	}
	var scalar any
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return []Record{{Type: "value", Name: fmt.Sprint(scalar)}}
	}
	return []Record{}
}

func recordFrom(doc map[string]any) Record {
	r := Record{
		ID:   stringField(doc, "_id"),
		Type: stringField(doc, "_type"),
	}
	for _, key := range []string{"name", "title", "label", "slug"} {
		if v := stringField(doc, key); v != "" {
			r.Name = v
			break
		}
	}
	if r.Name == "" {
		r.Name = r.ID
	}
	return r
}

func stringField(doc map[string]any, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
