package redmine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goware/urlx"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultUploadTimeout = 60 * time.Second
	DefaultRetryMax      = 3
	DefaultRetryWaitMin  = 1 * time.Second
	DefaultRetryWaitMax  = 30 * time.Second

	// APIKeyHeader carries the API key on every request.
	APIKeyHeader = "X-Redmine-API-Key"
)

// Version is sent in the User-Agent header.
var Version = "1.0.0"

// Config describes how to reach a Redmine server. Empty fields fall back to
// REDMINE_URL, REDMINE_API_KEY, REDMINE_USERNAME and REDMINE_PASSWORD.
type Config struct {
	URL      string
	APIKey   string
	Username string
	Password string

	Timeout       time.Duration
	UploadTimeout time.Duration

	// RetryMax is the number of retries after the first attempt.
	// A negative value disables retries.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	Logger *slog.Logger
}

// ConfigurationError reports a client that cannot be built.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "redmine configuration: " + e.Message
}

// Client is a Redmine API client. It is safe for concurrent use.
type Client struct {
	baseURL  string
	apiKey   string
	username string
	password string

	http     *retryablehttp.Client
	transfer *retryablehttp.Client
	logger   *slog.Logger
}

// NewClient creates a new Redmine client
func NewClient(cfg Config) (*Client, error) {
	return newClient(cfg.withEnvDefaults(), true)
}

// NewGatewayClient creates a client that may lack credentials of its own.
// Callers derive per-caller clients from it with WithAPIKey; requests made
// on a client without credentials are sent anonymously.
func NewGatewayClient(cfg Config) (*Client, error) {
	return newClient(cfg.withEnvDefaults(), false)
}

func newClient(cfg Config, requireAuth bool) (*Client, error) {

	if cfg.URL == "" {
		return nil, &ConfigurationError{Message: "Redmine URL is required (REDMINE_URL)"}
	}
	baseURL, err := normalizeBaseURL(cfg.URL)
	if err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("invalid Redmine URL %q: %v", cfg.URL, err)}
	}
	if requireAuth && !cfg.hasCredentials() {
		return nil, &ConfigurationError{Message: "API key or username/password is required (REDMINE_API_KEY or REDMINE_USERNAME/REDMINE_PASSWORD)"}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL: baseURL,
		logger:  logger,
	}
	if cfg.APIKey != "" {
		c.apiKey = cfg.APIKey
	} else {
		c.username = cfg.Username
		c.password = cfg.Password
	}

	transport := cleanTransport()
	c.http = newRetryClient(cfg, cfg.Timeout, transport, logger)
	c.transfer = newRetryClient(cfg, cfg.UploadTimeout, transport, logger)

	return c, nil
}

// WithAPIKey returns a copy of c that authenticates with key. The copy
// shares the connection pool and retry settings of c.
func (c *Client) WithAPIKey(key string) *Client {
	cp := *c
	cp.apiKey = key
	cp.username = ""
	cp.password = ""
	return &cp
}

// HasCredentials reports whether requests carry an API key or basic auth.
func (c *Client) HasCredentials() bool {
	return c.apiKey != "" || (c.username != "" && c.password != "")
}

func (cfg Config) hasCredentials() bool {
	return cfg.APIKey != "" || (cfg.Username != "" && cfg.Password != "")
}

// BaseURL returns the normalized server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (cfg Config) withEnvDefaults() Config {
	if cfg.URL == "" {
		cfg.URL = os.Getenv("REDMINE_URL")
	}
	if cfg.APIKey == "" && cfg.Username == "" {
		cfg.APIKey = os.Getenv("REDMINE_API_KEY")
	}
	if cfg.Username == "" {
		cfg.Username = os.Getenv("REDMINE_USERNAME")
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("REDMINE_PASSWORD")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultUploadTimeout
	}
	if cfg.RetryMax == 0 {
		cfg.RetryMax = DefaultRetryMax
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = DefaultRetryWaitMin
	}
	if cfg.RetryWaitMax <= 0 {
		cfg.RetryWaitMax = DefaultRetryWaitMax
	}
	if cfg.RetryWaitMax < cfg.RetryWaitMin {
		cfg.RetryWaitMax = cfg.RetryWaitMin
	}
	return cfg
}

// normalizeBaseURL accepts "redmine.example.com", "https://host/redmine/" and
// similar, returning scheme://host/path with no trailing slash.
func normalizeBaseURL(raw string) (string, error) {
	u, err := urlx.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return strings.TrimRight(u.String(), "/"), nil
}

// Request performs a JSON request against endpoint (for example "issues/1")
// and returns the decoded response object. 204 and empty bodies yield an
// empty map. Any other failure is an *APIError.
func (c *Client) Request(ctx context.Context, method, endpoint string, query url.Values, body any) (map[string]any, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	raw, err := c.send(ctx, c.http, method, c.endpointURL(endpoint, query), "application/json", "application/json", payload)
	if err != nil {
		return nil, err
	}
	return decodeObject(raw)
}

// requestInto is Request for callers that inspect specific response fields.
func (c *Client) requestInto(ctx context.Context, hc *retryablehttp.Client, method, endpoint string, query url.Values, contentType string, payload []byte, v any) error {
	raw, err := c.send(ctx, hc, method, c.endpointURL(endpoint, query), contentType, "application/json", payload)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &APIError{Message: fmt.Sprintf("failed to parse response: %v", err), Err: err}
	}
	return nil
}

func (c *Client) endpointURL(endpoint string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimPrefix(endpoint, "/") + ".json"
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// send executes one logical call (including retries) and returns the raw body
// of a successful response.
func (c *Client) send(ctx context.Context, hc *retryablehttp.Client, method, target, contentType, accept string, payload []byte) ([]byte, error) {
	var body any
	if payload != nil {
		body = payload
	}

	req, err := retryablehttp.NewRequestWithContext(withMethod(ctx, method), method, target, body)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("failed to create request: %v", err), Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "redmine-mcp/"+Version)
	c.authorize(req.Request)

	c.logger.Debug("redmine request", "method", method, "url", redactURL(target))

	resp, err := hc.Do(req)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("request failed: %v", err), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("failed to read response: %v", err), StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.Debug("redmine response", "method", method, "url", redactURL(target), "status", resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		if resp.StatusCode == http.StatusNoContent {
			return nil, nil
		}
		return raw, nil
	default:
		return nil, newAPIError(resp.StatusCode, raw)
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
		return
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}

func decodeObject(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("failed to parse response: %v", err), Err: err}
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// redactURL drops the query string so keys passed as parameters never reach logs.
func redactURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
