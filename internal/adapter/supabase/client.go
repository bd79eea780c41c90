// Package supabase talks to the managed data service: PostgREST for rows,
// GoTrue for token introspection. All persistence and querying live on the
// other side of this client; the service only reads and writes rows.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/plazafinder/mall-radar/internal/config"
	"github.com/plazafinder/mall-radar/internal/observability"
)

// Client is a thin Supabase REST client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a Supabase client from service configuration.
func NewClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.SupabaseURL, "/"),
		apiKey:     cfg.SupabaseAnonKey,
		httpClient: &http.Client{Timeout: cfg.SupabaseTimeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// APIError is a non-2xx response from the data service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("supabase: status %d", e.Status)
}

// IsNotFound reports whether err is the data service saying "no such row".
// PostgREST answers 406 for a .Single() with zero rows.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusNotAcceptable
}

// From starts a PostgREST query against a table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table}
}

// Query accumulates PostgREST query parameters.
type Query struct {
	client  *Client
	table   string
	columns string
	filters url.Values
	orders  []string
	limit   int
	single  bool
	count   bool
}

// Select names the columns (and embedded resources) to return.
func (q *Query) Select(columns string) *Query {
	q.columns = columns
	return q
}

func (q *Query) addFilter(column, op string, value any) *Query {
	if q.filters == nil {
		q.filters = url.Values{}
	}
	q.filters.Add(column, fmt.Sprintf("%s.%v", op, value))
	return q
}

// Eq keeps rows where column equals value.
func (q *Query) Eq(column string, value any) *Query { return q.addFilter(column, "eq", value) }

// Gt keeps rows where column is strictly greater than value.
func (q *Query) Gt(column string, value any) *Query { return q.addFilter(column, "gt", value) }

// Gte keeps rows where column is at least value.
func (q *Query) Gte(column string, value any) *Query { return q.addFilter(column, "gte", value) }

// Lte keeps rows where column is at most value.
func (q *Query) Lte(column string, value any) *Query { return q.addFilter(column, "lte", value) }

// ILike keeps rows matching the pattern case-insensitively.
func (q *Query) ILike(column, pattern string) *Query { return q.addFilter(column, "ilike", pattern) }

// Contains keeps rows whose array column contains every listed value.
func (q *Query) Contains(column string, values []string) *Query {
	return q.addFilter(column, "cs", "{"+strings.Join(values, ",")+"}")
}

// Order sorts by column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Single expects exactly one row and decodes it as an object.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

func (q *Query) params() url.Values {
	params := url.Values{}
	if q.columns != "" {
		params.Set("select", q.columns)
	}
	for column, vals := range q.filters {
		for _, v := range vals {
			params.Add(column, v)
		}
	}
	if len(q.orders) > 0 {
		params.Set("order", strings.Join(q.orders, ","))
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}
	return params
}

// Get runs the SELECT and decodes the response into dest.
func (q *Query) Get(ctx context.Context, dest any) error {
	req, err := q.client.newRequest(ctx, http.MethodGet, q.table, q.params(), nil)
	if err != nil {
		return err
	}
	if q.single {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}
	return q.client.do(req, q.table, dest)
}

// CountExact runs a HEAD-style count and returns the exact number of rows
// matching the filters.
func (q *Query) CountExact(ctx context.Context) (int, error) {
	params := q.params()
	params.Set("limit", "1")
	req, err := q.client.newRequest(ctx, http.MethodGet, q.table, params, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "count=exact")

	resp, err := q.client.roundTrip(req, q.table)
	if err != nil {
		return 0, err
	}
	return countFromContentRange(resp.Header.Get("Content-Range"))
}

// Insert writes rows and decodes the created representation into dest.
// Pass a nil dest to discard it.
func (q *Query) Insert(ctx context.Context, data, dest any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal insert: %w", err)
	}
	req, err := q.client.newRequest(ctx, http.MethodPost, q.table, q.params(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	return q.client.do(req, q.table, dest)
}

// Upsert writes rows, merging duplicates on the conflict target.
func (q *Query) Upsert(ctx context.Context, data any, onConflict string, dest any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal upsert: %w", err)
	}
	params := q.params()
	if onConflict != "" {
		params.Set("on_conflict", onConflict)
	}
	req, err := q.client.newRequest(ctx, http.MethodPost, q.table, params, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=representation")
	return q.client.do(req, q.table, dest)
}

// Update patches the rows matching the filters.
func (q *Query) Update(ctx context.Context, data, dest any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	req, err := q.client.newRequest(ctx, http.MethodPatch, q.table, q.params(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	return q.client.do(req, q.table, dest)
}

// Delete removes the rows matching the filters.
func (q *Query) Delete(ctx context.Context) error {
	req, err := q.client.newRequest(ctx, http.MethodDelete, q.table, q.params(), nil)
	if err != nil {
		return err
	}
	return q.client.do(req, q.table, nil)
}

// AuthUser is the identity GoTrue reports for an access token.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// GetAuthUser asks the auth endpoint who the access token belongs to.
func (c *Client) GetAuthUser(ctx context.Context, accessToken string) (AuthUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return AuthUser{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var user AuthUser
	if err := c.do(req, "auth", &user); err != nil {
		return AuthUser{}, err
	}
	return user, nil
}

func (c *Client) newRequest(ctx context.Context, method, table string, params url.Values, body io.Reader) (*http.Request, error) {
	reqURL := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

// do executes the request and decodes the body into dest when non-nil.
func (c *Client) do(req *http.Request, table string, dest any) error {
	resp, err := c.roundTrip(req, table)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, dest); err != nil {
		return fmt.Errorf("decode %s response: %w", table, err)
	}
	return nil
}

type restResponse struct {
	Body   []byte
	Header http.Header
}

func (c *Client) roundTrip(req *http.Request, table string) (*restResponse, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.SupabaseDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.SupabaseRequests.WithLabelValues(table, "error").Inc()
		return nil, fmt.Errorf("%s request: %w", table, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.SupabaseRequests.WithLabelValues(table, "error").Inc()
		return nil, fmt.Errorf("read %s response: %w", table, err)
	}

	if resp.StatusCode >= 400 {
		c.metrics.SupabaseRequests.WithLabelValues(table, "error").Inc()
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(body)}
	}

	c.metrics.SupabaseRequests.WithLabelValues(table, "success").Inc()
	return &restResponse{Body: body, Header: resp.Header}, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Msg != "" {
			return e.Msg
		}
	}
	return strings.TrimSpace(string(body))
}

// countFromContentRange parses the total from a PostgREST Content-Range
// header, e.g. "0-0/42" or "*/0".
func countFromContentRange(header string) (int, error) {
	idx := strings.LastIndexByte(header, '/')
	if idx < 0 || idx == len(header)-1 {
		return 0, fmt.Errorf("missing count in Content-Range %q", header)
	}
	n, err := strconv.Atoi(header[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("parse Content-Range %q: %w", header, err)
	}
	return n, nil
}
