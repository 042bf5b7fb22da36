package redmine

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient starts h and returns an API-key client for it with
// millisecond retry waits.
func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	client, err := NewClient(Config{
		URL:          ts.URL,
		APIKey:       "test-key",
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"REDMINE_URL", "REDMINE_API_KEY", "REDMINE_USERNAME", "REDMINE_PASSWORD"} {
		t.Setenv(k, "")
	}
}

func readBody(t *testing.T, r *http.Request) string {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("failed to read request body: %v", err)
	}
	return string(body)
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewClient_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing url", Config{APIKey: "k"}},
		{"unsupported scheme", Config{URL: "ftp://redmine.example.com", APIKey: "k"}},
		{"missing credentials", Config{URL: "https://redmine.example.com"}},
		{"username without password", Config{URL: "https://redmine.example.com", Username: "admin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := NewClient(tt.cfg)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestNewClient_EnvironmentFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDMINE_URL", "https://env.example.com/")
	t.Setenv("REDMINE_API_KEY", "env-key")

	client, err := NewClient(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.BaseURL() != "https://env.example.com" {
		t.Errorf("BaseURL = %q", client.BaseURL())
	}
	if !client.HasCredentials() {
		t.Error("expected credentials from the environment")
	}
}

func TestNewClient_NormalizesURL(t *testing.T) {
	tests := map[string]string{
		"https://redmine.example.com/":         "https://redmine.example.com",
		"https://redmine.example.com/redmine/": "https://redmine.example.com/redmine",
		"redmine.example.com":                  "http://redmine.example.com",
		"http://redmine.example.com/?x=1":      "http://redmine.example.com",
	}
	for in, want := range tests {
		client, err := NewClient(Config{URL: in, APIKey: "k"})
		if err != nil {
			t.Errorf("%q: unexpected error: %v", in, err)
			continue
		}
		if client.BaseURL() != want {
			t.Errorf("%q: BaseURL = %q, want %q", in, client.BaseURL(), want)
		}
	}
}

func TestNewGatewayClient_WithoutCredentials(t *testing.T) {
	clearEnv(t)

	client, err := NewGatewayClient(Config{URL: "https://redmine.example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.HasCredentials() {
		t.Error("gateway client should have no credentials")
	}
	if !client.WithAPIKey("caller").HasCredentials() {
		t.Error("derived client should carry the caller key")
	}
}

// ---------------------------------------------------------------------------
// Request primitive
// ---------------------------------------------------------------------------

func TestRequest_SetsHeaders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /issues.json", func(w http.ResponseWriter, r *http.Request) {
		want := map[string]string{
			"X-Redmine-API-Key": "test-key",
			"Content-Type":      "application/json",
			"Accept":            "application/json",
			"User-Agent":        "redmine-mcp/" + Version,
		}
		for h, v := range want {
			if got := r.Header.Get(h); got != v {
				t.Errorf("%s = %q, want %q", h, got, v)
			}
		}
		if _, _, ok := r.BasicAuth(); ok {
			t.Error("API key requests must not send basic auth")
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"issue": {"id": 1}}`))
	})

	client := newTestClient(t, mux)
	if _, err := client.Request(context.Background(), http.MethodPost, "issues", nil, map[string]any{"issue": map[string]any{}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequest_BasicAuth(t *testing.T) {
	clearEnv(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			t.Errorf("basic auth = %q/%q (%v)", user, pass, ok)
		}
		if r.Header.Get("X-Redmine-API-Key") != "" {
			t.Error("basic auth requests must not send an API key")
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	client, err := NewClient(Config{URL: ts.URL, Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Request(context.Background(), http.MethodGet, "projects", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequest_APIKeyWinsOverBasicAuth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Redmine-API-Key") != "key" {
			t.Errorf("expected API key, got %q", r.Header.Get("X-Redmine-API-Key"))
		}
		if _, _, ok := r.BasicAuth(); ok {
			t.Error("unexpected basic auth")
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	client, err := NewClient(Config{URL: ts.URL, APIKey: "key", Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Request(context.Background(), http.MethodGet, "projects", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWithAPIKey_ReplacesCredentials(t *testing.T) {
	clearEnv(t)
	var gotKey string
	var gotBasic bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Redmine-API-Key")
		_, _, gotBasic = r.BasicAuth()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	base, err := NewClient(Config{URL: ts.URL, Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	derived := base.WithAPIKey("caller-key")
	if _, err := derived.Request(context.Background(), http.MethodGet, "projects", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "caller-key" || gotBasic {
		t.Errorf("derived client sent key=%q basic=%v", gotKey, gotBasic)
	}

	if _, err := base.Request(context.Background(), http.MethodGet, "projects", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "" || !gotBasic {
		t.Errorf("base client changed: key=%q basic=%v", gotKey, gotBasic)
	}
}

func TestRequest_EmptyResponses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /issues/1.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /issues/2.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, mux)
	for _, endpoint := range []string{"issues/1", "issues/2"} {
		resp, err := client.Request(context.Background(), http.MethodPut, endpoint, nil, map[string]any{})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", endpoint, err)
		}
		if resp == nil || len(resp) != 0 {
			t.Errorf("%s: expected empty map, got %#v", endpoint, resp)
		}
	}
}

func TestRequest_ValidationErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /issues.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":["Subject cannot be blank","Tracker is invalid"]}`))
	})

	client := newTestClient(t, mux)
	_, err := client.CreateIssue(context.Background(), map[string]any{"project_id": 1})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
	if apiErr.Message != "Subject cannot be blank, Tracker is invalid" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Body == nil {
		t.Error("expected decoded error body")
	}
}

func TestRequest_NonJSONErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects/private.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Forbidden"))
	})
	mux.HandleFunc("GET /projects/empty.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client := newTestClient(t, mux)

	_, err := client.Request(context.Background(), http.MethodGet, "projects/private", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "HTTP 403: Forbidden") {
		t.Errorf("expected 'HTTP 403: Forbidden', got %v", err)
	}

	_, err = client.Request(context.Background(), http.MethodGet, "projects/empty", nil, nil)
	if StatusCode(err) != http.StatusUnauthorized || !strings.Contains(err.Error(), "HTTP 401") {
		t.Errorf("expected HTTP 401, got %v", err)
	}
}

func TestRequest_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client, err := NewClient(Config{URL: url, APIKey: "k", RetryMax: -1})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Request(context.Background(), http.MethodGet, "projects", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != 0 {
		t.Errorf("transport failures carry no status, got %d", apiErr.StatusCode)
	}
}

func TestRequest_InvalidJSON(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})

	client := newTestClient(t, mux)
	_, err := client.Request(context.Background(), http.MethodGet, "projects", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "failed to parse response") {
		t.Errorf("expected parse error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Retry policy
// ---------------------------------------------------------------------------

func TestRequest_RetriesIdempotentMethods(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects.json", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"projects": []}`))
	})

	client := newTestClient(t, mux)
	if _, err := client.Request(context.Background(), http.MethodGet, "projects", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestRequest_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects.json", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client := newTestClient(t, mux)
	_, err := client.Request(context.Background(), http.MethodGet, "projects", nil, nil)
	if StatusCode(err) != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %v", err)
	}
	if calls.Load() != 4 {
		t.Errorf("expected 1 attempt + 3 retries, got %d", calls.Load())
	}
}

func TestRequest_DoesNotRetryPost(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /issues.json", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	client := newTestClient(t, mux)
	_, err := client.Request(context.Background(), http.MethodPost, "issues", nil, map[string]any{"issue": map[string]any{}})
	if StatusCode(err) != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("POST must not be retried, got %d attempts", calls.Load())
	}
}

func TestCreateIssue_NotReplayedAfterTimeout(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /issues.json", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"issue": {"id": 1}}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	client, err := NewClient(Config{
		URL:          ts.URL,
		APIKey:       "test-key",
		Timeout:      30 * time.Millisecond,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.CreateIssue(context.Background(), map[string]any{"project_id": 1, "subject": "t"}); err == nil {
		t.Fatal("expected timeout error")
	}
	if calls.Load() != 1 {
		t.Errorf("POST /issues.json reached the server %d times, want 1", calls.Load())
	}
}

func TestCheckRetry_TransportErrors(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	read := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}

	tests := []struct {
		name   string
		method string
		err    error
		want   bool
	}{
		{"get read error", http.MethodGet, read, true},
		{"put read error", http.MethodPut, read, true},
		{"post dial error", http.MethodPost, dial, true},
		{"post read error", http.MethodPost, read, false},
		{"post timeout", http.MethodPost, context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := checkRetry(withMethod(context.Background(), tt.method), nil, tt.err)
			if got != tt.want {
				t.Errorf("checkRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCappedBackoff_RetryAfter(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusTooManyRequests,
		Header:     http.Header{"Retry-After": []string{"3600"}},
	}
	if got := cappedBackoff(time.Millisecond, 5*time.Millisecond, 0, resp); got != 5*time.Millisecond {
		t.Errorf("backoff = %v, want 5ms", got)
	}

	resp.Header.Set("Retry-After", "0")
	if got := cappedBackoff(time.Millisecond, 5*time.Millisecond, 0, resp); got > 5*time.Millisecond {
		t.Errorf("backoff = %v exceeds ceiling", got)
	}
}

func TestRequest_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /issues/1.json", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	client := newTestClient(t, mux)
	_, _ = client.Request(context.Background(), http.MethodGet, "issues/1", nil, nil)
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestRequest_ContextCancelled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	client := newTestClient(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Request(ctx, http.MethodGet, "projects", nil, nil)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Uploads and downloads
// ---------------------------------------------------------------------------

func TestUpload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /uploads.json", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("filename"); got != "rapör.pdf" {
			t.Errorf("filename = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/octet-stream" {
			t.Errorf("Content-Type = %q", got)
		}
		if got := readBody(t, r); got != "%PDF-1.4" {
			t.Errorf("body = %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"upload": {"id": 7, "token": "7.ed32257a2ab0f7526c0d72c32994c58b"}}`))
	})

	client := newTestClient(t, mux)
	token, err := client.Upload(context.Background(), "rapör.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "7.ed32257a2ab0f7526c0d72c32994c58b" {
		t.Errorf("token = %q", token)
	}
}

func TestUpload_MissingToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /uploads.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"upload": {}}`))
	})

	client := newTestClient(t, mux)
	_, err := client.Upload(context.Background(), "a.txt", []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "token") {
		t.Errorf("expected missing token error, got %v", err)
	}
}

func TestDownloadAttachment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /attachments/5.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"attachment": {"id": 5, "filename": "a.txt", "content_url": "/attachments/download/5/a.txt"}}`))
	})
	mux.HandleFunc("GET /attachments/download/5/a.txt", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Redmine-API-Key") != "test-key" {
			t.Error("download must be authenticated")
		}
		_, _ = w.Write([]byte("hello"))
	})

	client := newTestClient(t, mux)
	data, err := client.DownloadAttachment(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}
}

func TestDownloadAttachment_NoContentURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /attachments/5.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"attachment": {"id": 5}}`))
	})

	client := newTestClient(t, mux)
	if _, err := client.DownloadAttachment(context.Background(), 5); err == nil {
		t.Fatal("expected error")
	}
}

func TestFetchAttachment_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /attachments/9.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	client := newTestClient(t, mux)

	info, data, err := client.FetchAttachment(context.Background(), 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Found || data != nil {
		t.Errorf("expected not found, got %+v, %q", info, data)
	}

	if _, err := client.DownloadAttachment(context.Background(), 9); StatusCode(err) != http.StatusNotFound {
		t.Errorf("expected 404 from DownloadAttachment, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func TestDateFilter(t *testing.T) {
	tests := []struct {
		from, to, want string
	}{
		{"2024-01-01", "2024-01-31", "><2024-01-01|2024-01-31"},
		{"2024-01-01", "", ">=2024-01-01"},
		{"", "2024-01-31", "<=2024-01-31"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := DateFilter(tt.from, tt.to); got != tt.want {
			t.Errorf("DateFilter(%q, %q) = %q, want %q", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Message: "Not found", StatusCode: 404}
	if err.Error() != "redmine API error (status 404): Not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should be true")
	}

	transport := &APIError{Message: "request failed: EOF"}
	if transport.Error() != "redmine: request failed: EOF" {
		t.Errorf("Error() = %q", transport.Error())
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("plain errors carry no status")
	}
}
