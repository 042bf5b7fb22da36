package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

// ErrNoCredentials is reported when a call has neither a per-request client
// nor a default one.
var ErrNoCredentials = errors.New("no Redmine credentials: set REDMINE_API_KEY or send the X-Redmine-API-Key header")

type clientKey struct{}

// WithClient returns a context whose tool calls use client instead of the
// default one.
func WithClient(ctx context.Context, client *redmine.Client) context.Context {
	return context.WithValue(ctx, clientKey{}, client)
}

func clientFromContext(ctx context.Context) *redmine.Client {
	c, _ := ctx.Value(clientKey{}).(*redmine.Client)
	return c
}

// ToolHandlers contains all MCP tool handlers
type ToolHandlers struct {
	client *redmine.Client
}

// NewToolHandlers creates new tool handlers. client is the default client and
// may be nil when every call carries its own (see WithClient).
func NewToolHandlers(client *redmine.Client) *ToolHandlers {
	return &ToolHandlers{client: client}
}

// clientFor picks the per-request client, falling back to the default.
func (h *ToolHandlers) clientFor(ctx context.Context) *redmine.Client {
	if c := clientFromContext(ctx); c != nil {
		return c
	}
	return h.client
}

// checkClient fails calls that would reach clientFor with no client at all.
func (h *ToolHandlers) checkClient(ctx context.Context) error {
	if h.clientFor(ctx) == nil {
		return ErrNoCredentials
	}
	return nil
}

// Tools returns every tool in the order it is listed to clients.
func (h *ToolHandlers) Tools() []Tool {
	var tools []Tool
	for _, group := range [][]Tool{
		h.projectTools(),
		h.issueTools(),
		h.userTools(),
		h.timeEntryTools(),
		h.attachmentTools(),
		h.enumerationTools(),
		h.relationTools(),
		h.versionTools(),
		h.membershipTools(),
		h.categoryTools(),
		h.wikiTools(),
		h.groupTools(),
		h.roleTools(),
		h.customFieldTools(),
		h.journalTools(),
		h.newsTools(),
		h.queryTools(),
		h.searchTools(),
		h.fileTools(),
		h.accountTools(),
	} {
		tools = append(tools, group...)
	}
	return tools
}

// newTool builds a definition carrying the given annotation hints.
func newTool(name, title string, hints AnnotationHint, opts ...mcp.ToolOption) mcp.Tool {
	opts = append(opts, mcp.WithToolAnnotation(toolAnnotations(title, hints)))
	return mcp.NewTool(name, opts...)
}

func jsonResult(data any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func notFound(resource string, id any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(fmt.Sprintf("%s with ID %v not found", resource, id)), nil
}

// pageResult renders a list page under key with its counters and the
// filters that produced it.
func pageResult(key string, page *redmine.Page, filters map[string]any) (*mcp.CallToolResult, error) {
	out := map[string]any{
		key:           page.Items,
		"total_count": page.TotalCount,
		"offset":      page.Offset,
		"limit":       page.Limit,
	}
	if len(filters) > 0 {
		out["filters"] = filters
	}
	return jsonResult(out)
}

func listResult(key string, items []map[string]any) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		key:           items,
		"total_count": len(items),
	})
}

// statusResult reports a write that has no response body of interest.
func statusResult(status string, fields map[string]any) (*mcp.CallToolResult, error) {
	out := map[string]any{"status": status}
	for k, v := range fields {
		out[k] = v
	}
	return jsonResult(out)
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// nestedName returns m[key]["name"], the shape Redmine uses for references.
func nestedName(m map[string]any, key string) string {
	if ref, ok := m[key].(map[string]any); ok {
		return stringField(ref, "name")
	}
	return ""
}
