package github

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
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"mergeq/internal/logging"
)

const (
	apiVersion      = "2022-11-28"
	defaultBaseURL  = "https://api.github.com"
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 8 << 20
)

// Config holds the settings for a Client.
type Config struct {
	// BaseURL is the API root. Defaults to https://api.github.com; GitHub
	// Enterprise installations use https://<host>/api/v3.
	BaseURL string

	// Token is a personal access or fine-grained token. Required.
	Token string

	// Timeout bounds each HTTP request. Defaults to 30s.
	Timeout time.Duration

	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64

	// HTTPClient supplies the base transport. Its Transport is wrapped
	// with token authentication.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client is a small GitHub REST client covering the pull request calls the
// runner needs.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	etags      *etagCache
	logger     *slog.Logger
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "https" && parsed.Scheme != "http") {
		return nil, fmt.Errorf("github: invalid base URL %q", cfg.BaseURL)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("github: token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := http.DefaultTransport
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		base = cfg.HTTPClient.Transport
	}
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   base,
		},
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	etags, err := newETagCache(defaultETagEntries)
	if err != nil {
		return nil, fmt.Errorf("github: etag cache: %w", err)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    limiter,
		etags:      etags,
		logger:     logger,
	}, nil
}

// do executes one API request and returns the response body. Non-2xx
// responses become *APIError. GET responses carrying an ETag are cached and
// revalidated with If-None-Match.
func (c *Client) do(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("github: waiting for request slot: %w", err)
		}
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("github: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	target := c.baseURL + path
	request, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("github: creating request: %w", err)
	}
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("X-GitHub-Api-Version", apiVersion)
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodGet {
		if etag := c.etags.etag(target); etag != "" {
			request.Header.Set("If-None-Match", etag)
		}
	}

	started := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("github: %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	c.logger.Debug("github request",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", response.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)

	if response.StatusCode == http.StatusNotModified {
		if cached := c.etags.body(target); cached != nil {
			return cached, nil
		}
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("github: reading response body: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, parseAPIError(response.StatusCode, body)
	}

	if method == http.MethodGet {
		c.etags.put(target, response.Header.Get("ETag"), body)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("github: decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) put(ctx context.Context, path string, requestBody any, result any) error {
	body, err := c.do(ctx, http.MethodPut, path, requestBody)
	if err != nil {
		return err
	}
	if result == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("github: decoding %s: %w", path, err)
	}
	return nil
}
