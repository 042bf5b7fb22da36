package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

// newTestDispatcher serves mux as the Redmine server behind a full tool set.
func newTestDispatcher(t *testing.T, mux http.Handler, opts Options) *Dispatcher {
	t.Helper()
	return NewDispatcher(newTestClient(t, mux), opts)
}

func newTestClient(t *testing.T, h http.Handler) *redmine.Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	client, err := redmine.NewClient(redmine.Config{
		URL:          ts.URL,
		APIKey:       "test-key",
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 2 * time.Millisecond,
	})
	require.NoError(t, err)
	return client
}

func callTool(t *testing.T, d *Dispatcher, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res := d.CallTool(context.Background(), name, args)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, res.IsError, "tool failed: %s", resultText(t, res))
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	return out
}

func readJSONBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newRequest(args map[string]any) mcp.CallToolRequest {
	var r mcp.CallToolRequest
	if args != nil {
		r.Params.Arguments = args
	}
	return r
}
