// Package api is the REST client for the RLx service.
package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/jmylchreest/rlxui/internal/model"
)

const (
	// DefaultBaseURL is the service's default listen address and API prefix.
	DefaultBaseURL = "http://localhost:8000/api/v1"
	DefaultTimeout = 10 * time.Second

	// Requests are paced client-side so a held-down key in the TUI cannot
	// flood the service. This is pacing, not retry.
	DefaultRateLimit = 10.0
	DefaultBurst     = 5

	// RequestIDHeader carries a ULID generated for every request.
	RequestIDHeader = "X-Request-ID"
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64 // requests per second, <= 0 disables pacing
	Burst      int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the RLx service. It never retries.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// New creates a client. Zero option values select the defaults.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = DefaultBurst
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		rateLimiter: limiter,
		logger:      logger,
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HealthStatus is the liveness response.
type HealthStatus struct {
	Status  string `json:"status" yaml:"status"`
	Message string `json:"message" yaml:"message"`
}

// Health checks service liveness.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var h HealthStatus
	if err := c.get(ctx, "health", "/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ListGroups returns every group known to the service.
func (c *Client) ListGroups(ctx context.Context) ([]model.Group, error) {
	var body struct {
		Groups []model.Group `json:"groups"`
	}
	if err := c.get(ctx, "list groups", "/groups", &body); err != nil {
		return nil, err
	}
	if body.Groups == nil {
		body.Groups = []model.Group{}
	}
	return body.Groups, nil
}

// CreateGroup creates a group, optionally from a named template.
func (c *Client) CreateGroup(ctx context.Context, groupID, template string) error {
	payload := struct {
		GroupID  string `json:"group_id"`
		Template string `json:"template,omitempty"`
	}{groupID, template}
	return c.mutate(ctx, "create group", http.MethodPost, "/groups", payload)
}

// RenameGroup changes a group's identifier.
func (c *Client) RenameGroup(ctx context.Context, groupID, newGroupID string) error {
	payload := struct {
		NewGroupID string `json:"new_group_id"`
	}{newGroupID}
	return c.mutate(ctx, "rename group", http.MethodPut, groupPath(groupID, ""), payload)
}

// DeleteGroup removes a group.
func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.mutate(ctx, "delete group", http.MethodDelete, groupPath(groupID, ""), nil)
}

// GroupState is a group's log as returned by the service.
type GroupState struct {
	GroupID string
	Log     model.Log
	// Skipped holds entries that could not be decoded.
	Skipped []error
}

// GroupState fetches a group's ordered log.
func (c *Client) GroupState(ctx context.Context, groupID string) (*GroupState, error) {
	var body struct {
		GroupID string          `json:"group_id"`
		Log     json.RawMessage `json:"log"`
	}
	if err := c.get(ctx, "group state", groupPath(groupID, "/state"), &body); err != nil {
		return nil, err
	}

	state := &GroupState{GroupID: body.GroupID, Log: model.Log{}}
	if state.GroupID == "" {
		state.GroupID = groupID
	}
	if len(body.Log) > 0 && string(body.Log) != "null" {
		state.Log, state.Skipped = model.DecodeLog(body.Log)
		if state.Log == nil {
			state.Log = model.Log{}
		}
	}
	for _, err := range state.Skipped {
		c.logger.Warn("skipping log entry", "group", groupID, "error", err)
	}
	return state, nil
}

// Ingest appends a message to a group's log.
func (c *Client) Ingest(ctx context.Context, groupID, author, text string) error {
	payload := struct {
		Author string `json:"author"`
		Text   string `json:"text"`
	}{author, text}
	return c.mutate(ctx, "ingest", http.MethodPost, groupPath(groupID, "/ingest"), payload)
}

// Metrics fetches a group's derived metrics.
func (c *Client) Metrics(ctx context.Context, groupID string) (model.MetricsSnapshot, error) {
	var m model.MetricsSnapshot
	err := c.get(ctx, "metrics", groupPath(groupID, "/metrics"), &m)
	return m, err
}

// AffectiveHistory fetches arousal samples for the last sinceHours hours.
func (c *Client) AffectiveHistory(ctx context.Context, groupID string, sinceHours int) ([]model.AffectivePoint, error) {
	var body struct {
		Points []model.AffectivePoint `json:"points"`
	}
	path := groupPath(groupID, "/affective_history") + "?since_hours=" + strconv.Itoa(sinceHours)
	if err := c.get(ctx, "affective history", path, &body); err != nil {
		return nil, err
	}
	if body.Points == nil {
		body.Points = []model.AffectivePoint{}
	}
	return body.Points, nil
}

// Summary is a message rendered for one recipient in a target language.
type Summary struct {
	MessageID    string         `json:"message_id" yaml:"message_id"`
	SrcLang      string         `json:"src_lang" yaml:"src_lang"`
	TargetLang   string         `json:"target_lang" yaml:"target_lang"`
	OriginalText string         `json:"original_text" yaml:"original_text"`
	GlossView    GlossView      `json:"gloss_view" yaml:"gloss_view"`
	Meta         map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
	UICopy       map[string]any `json:"ui_copy,omitempty" yaml:"ui_copy,omitempty"`
}

// GlossView is the localized structure of a message.
type GlossView struct {
	Headers map[string]string `json:"headers" yaml:"headers"`
	Bullets []string          `json:"bullets" yaml:"bullets"`
	Options []string          `json:"options" yaml:"options"`
	Alerts  []string          `json:"alerts" yaml:"alerts"`
	KPIs    map[string]string `json:"kpis,omitempty" yaml:"kpis,omitempty"`
}

// RenderSummary renders a stored message for recipient in lang without
// creating a delivery.
func (c *Client) RenderSummary(ctx context.Context, messageID, recipient, lang string) (*Summary, error) {
	q := url.Values{}
	q.Set("message_id", messageID)
	q.Set("recipient", recipient)
	q.Set("lang", lang)

	var sum Summary
	if err := c.get(ctx, "render summary", "/render/summary?"+q.Encode(), &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

func groupPath(groupID, suffix string) string {
	return "/groups/" + url.PathEscape(groupID) + suffix
}

// get performs a read. Any failure is a NetworkError.
func (c *Client) get(ctx context.Context, op, path string, out any) error {
	resp, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readNetworkError(op, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Status: statusText(resp),
			Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// mutate performs a create, rename, delete or ingest. Non-2xx responses are
// MutationErrors carrying the server detail.
func (c *Client) mutate(ctx context.Context, op, method, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.do(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readMutationError(op, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// do waits for the rate limiter, then sends the request.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader) (*http.Response, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, &NetworkError{Op: op, Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}

	reqID := newRequestID()
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "method", method, "path", path, "request_id", reqID, "error", err)
		return nil, &NetworkError{Op: op, Err: err}
	}
	c.logger.Debug("request", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "request_id", reqID, "duration", time.Since(start))
	return resp, nil
}

func newRequestID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}
