// Package cmapclient is a typed HTTP client for the narrative-geographies
// REST API. It carries its own response structs so importing it pulls in
// none of the server internals.
package cmapclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Client talks to a narrative-geographies server.
type Client struct {
	base string
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL, e.g.
// "http://localhost:8090".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{base: baseURL, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response, carrying the RFC 7807 problem body the
// server returns.
type APIError struct {
	Status int
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Title)
}

// Health is the /api/health response.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	CMS     bool   `json:"cms"`
	DB      bool   `json:"db"`
}

// Info is the /api/info response.
type Info struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	DataDir  string   `json:"data_dir"`
	Uptime   string   `json:"uptime"`
	Features []string `json:"features"`
}

// Story is one story record.
type Story struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Community string  `json:"community,omitempty"`
	Theme     string  `json:"theme,omitempty"`
	MediaType string  `json:"mediaType,omitempty"`
	Date      string  `json:"date,omitempty"`
	Summary   string  `json:"summary,omitempty"`
	Lon       float64 `json:"lon"`
	Lat       float64 `json:"lat"`
}

// StoryPage is a paginated story listing.
type StoryPage struct {
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
	Data   []Story `json:"data"`
}

// StoryFilter narrows ListStories. Zero fields match everything.
type StoryFilter struct {
	Theme     string
	MediaType string
	DateRange string
	Offset    int
	Limit     int
}

// Overlay describes one registered overlay.
type Overlay struct {
	ID           string   `json:"id"`
	SourceID     string   `json:"sourceId"`
	LayerID      string   `json:"layerId"`
	Data         string   `json:"data"`
	Type         string   `json:"type"`
	Modes        []string `json:"modes,omitempty"`
	Click        string   `json:"click,omitempty"`
	FeatureCount int      `json:"featureCount"`
	Size         string   `json:"size"`
	Title        string   `json:"title"`
}

// ContentRecord is one reduced content-store document.
type ContentRecord struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// ContentResult is the /api/content/query response.
type ContentResult struct {
	Count   int             `json:"count"`
	Records []ContentRecord `json:"records"`
}

// DBResult is the /api/db/query response.
type DBResult struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	Count     int              `json:"count"`
	Truncated bool             `json:"truncated"`
}

// Health fetches /api/health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.get(ctx, "/api/health", nil, &out)
	return out, err
}

// Info fetches /api/info.
func (c *Client) Info(ctx context.Context) (Info, error) {
	var out Info
	err := c.get(ctx, "/api/info", nil, &out)
	return out, err
}

// ListOverlays fetches the overlay registry.
func (c *Client) ListOverlays(ctx context.Context) ([]Overlay, error) {
	var out []Overlay
	err := c.get(ctx, "/api/overlays", nil, &out)
	return out, err
}

// GetOverlay fetches one overlay by ID.
func (c *Client) GetOverlay(ctx context.Context, id string) (Overlay, error) {
	var out Overlay
	err := c.get(ctx, "/api/overlays/"+url.PathEscape(id), nil, &out)
	return out, err
}

// ListStories fetches a filtered story page.
func (c *Client) ListStories(ctx context.Context, filter StoryFilter) (StoryPage, error) {
	q := url.Values{}
	if filter.Theme != "" {
		q.Set("theme", filter.Theme)
	}
	if filter.MediaType != "" {
		q.Set("mediaType", filter.MediaType)
	}
	if filter.DateRange != "" {
		q.Set("dateRange", filter.DateRange)
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	var out StoryPage
	err := c.get(ctx, "/api/stories", q, &out)
	return out, err
}

// GetStory fetches one story by ID.
func (c *Client) GetStory(ctx context.Context, id string) (Story, error) {
	var out Story
	err := c.get(ctx, "/api/stories/"+url.PathEscape(id), nil, &out)
	return out, err
}

// ContentQuery runs a content-store query.
func (c *Client) ContentQuery(ctx context.Context, query string) (ContentResult, error) {
	var out ContentResult
	err := c.post(ctx, "/api/content/query", map[string]string{"query": query}, &out)
	return out, err
}

// DBQuery runs a SQL query against the feature index.
func (c *Client) DBQuery(ctx context.Context, sql string) (DBResult, error) {
	var out DBResult
	err := c.post(ctx, "/api/db/query", map[string]string{"sql": sql}, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		json.Unmarshal(data, apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
