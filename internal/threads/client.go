// Package threads is a client for the Threads Graph REST API.
package threads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"threadpulse/internal/middleware"
	"threadpulse/internal/observability"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Threads Graph API host.
	DefaultBaseURL = "https://graph.threads.net"
	// DefaultVersion is the Graph API version path segment.
	DefaultVersion = "v1.0"

	maxBodyBytes  = 4 << 20
	maxErrorBytes = 64 << 10
)

var (
	profileFields = strings.Join([]string{
		"id", "username", "threads_profile_picture_url", "threads_biography",
	}, ",")
	postFields = strings.Join([]string{
		"id", "text", "media_type", "media_url", "permalink", "timestamp", "username",
		"like_count", "reply_count", "repost_count", "quote_count",
		"children{id,media_type,media_url}",
	}, ",")
)

// API is the read surface of the Threads Graph API used by the dashboard.
type API interface {
	GetProfile(ctx context.Context, accessToken, userID string) (*Profile, error)
	GetPosts(ctx context.Context, accessToken, userID string, limit int, after string) (*PostsPage, error)
	GetPostInsights(ctx context.Context, accessToken, postID string, metrics []string) (Insights, error)
}

// Config configures a Client. Zero values fall back to defaults.
type Config struct {
	BaseURL       string
	Version       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
}

// Client talks to the Threads API through a token-bucket limiter and a
// circuit breaker.
type Client struct {
	baseURL string
	version string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

var _ API = (*Client)(nil)

// NewClient returns a Client for cfg.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	version := strings.Trim(cfg.Version, "/")
	if version == "" {
		version = DefaultVersion
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: baseURL,
		version: version,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		breaker: newBreaker("threads-api"),
	}
}

// GetProfile fetches the profile of userID ("me" when empty).
func (c *Client) GetProfile(ctx context.Context, accessToken, userID string) (*Profile, error) {
	if userID == "" {
		userID = "me"
	}
	params := url.Values{"fields": {profileFields}}

	var profile Profile
	if err := c.getJSON(ctx, "profile", "/"+url.PathEscape(userID), params, accessToken, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetPosts fetches one page of userID's posts, newest first.
func (c *Client) GetPosts(ctx context.Context, accessToken, userID string, limit int, after string) (*PostsPage, error) {
	if userID == "" {
		userID = "me"
	}
	params := url.Values{
		"fields": {postFields},
		"limit":  {strconv.Itoa(limit)},
	}
	if after != "" {
		params.Set("after", after)
	}

	var page PostsPage
	if err := c.getJSON(ctx, "posts", "/"+url.PathEscape(userID)+"/threads", params, accessToken, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPostInsights fetches the requested metrics for one post.
func (c *Client) GetPostInsights(ctx context.Context, accessToken, postID string, metrics []string) (Insights, error) {
	if len(metrics) == 0 {
		metrics = DefaultInsightMetrics
	}
	params := url.Values{"metric": {strings.Join(metrics, ",")}}

	var resp insightsResponse
	if err := c.getJSON(ctx, "insights", "/"+url.PathEscape(postID)+"/insights", params, accessToken, &resp); err != nil {
		return nil, err
	}
	return resp.flatten(), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values, accessToken string, dest any) error {
	ctx, span := observability.GetTraceLayer().TraceUpstreamCall(ctx, "threads", endpoint)
	defer span.End()

	start := time.Now()
	outcome := "success"
	defer func() { observability.ObserveThreadsCall(endpoint, outcome, start) }()

	if err := c.limiter.Wait(ctx); err != nil {
		outcome = "rate_limited"
		span.SetAttributes(attribute.Bool("threads.rate_limited", true))
		return fmt.Errorf("threads api rate limiter: %w", err)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, path, params, accessToken)
	})
	if err != nil {
		var apiErr *APIError
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			outcome = "rejected"
			span.SetAttributes(attribute.Bool("threads.circuit_open", true))
			err = fmt.Errorf("threads api unavailable: %w", err)
		case errors.As(err, &apiErr):
			outcome = "api_error"
			span.SetAttributes(attribute.Int("http.status_code", apiErr.StatusCode))
		default:
			outcome = "transport_error"
		}
		observability.RecordErrorInContext(ctx, err)
		return err
	}

	if err := json.Unmarshal(body, dest); err != nil {
		outcome = "decode_error"
		observability.RecordErrorInContext(ctx, err)
		return fmt.Errorf("threads api: decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string, params url.Values, accessToken string) ([]byte, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("access_token", accessToken)
	endpoint := c.baseURL + "/" + c.version + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, redactURLError(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, redactURLError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseAPIError(resp.StatusCode, readBodyForError(resp.Body))
		middleware.Logger.DebugContext(ctx, "threads api error",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("message", apiErr.Message),
		)
		return nil, apiErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("threads api: read response: %w", err)
	}
	return body, nil
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Message:    fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)),
	}
	var envelope apiErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		if envelope.Error.Message != "" {
			apiErr.Message = envelope.Error.Message
		}
		apiErr.Type = envelope.Error.Type
		apiErr.Code = envelope.Error.Code
	}
	return apiErr
}

// readBodyForError reads at most maxErrorBytes so a misbehaving upstream
// cannot make us buffer an unbounded error page.
func readBodyForError(r io.Reader) []byte {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBytes))
	return b
}

// redactURLError strips the query string (and with it the access token) from
// transport errors, which embed the full request URL.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if u, parseErr := url.Parse(urlErr.URL); parseErr == nil {
			u.RawQuery = ""
			urlErr.URL = u.String()
		} else {
			urlErr.URL = "[redacted]"
		}
	}
	return err
}
