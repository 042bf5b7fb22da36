package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

// ErrReadOnly is reported for write tools while read-only mode is on.
var ErrReadOnly = errors.New("server is in read-only mode - write operations are disabled")

// Tool pairs a published definition with the handler that serves it.
type Tool struct {
	Definition mcp.Tool
	Handler    server.ToolHandlerFunc
}

// McpServer is the subset of *server.MCPServer the dispatcher registers on.
type McpServer interface {
	AddTool(tool mcp.Tool, handler server.ToolHandlerFunc)
}

// Options configures a Dispatcher.
type Options struct {
	// ReadOnly refuses every tool not annotated as read-only.
	ReadOnly bool
	Logger   *slog.Logger
}

// Dispatcher routes tool calls by name. The tool set is fixed at
// construction; every call is independent and the dispatcher holds no
// per-call state, so it may be shared between sessions.
type Dispatcher struct {
	tools    []Tool
	index    map[string]int
	readOnly bool
	logger   *slog.Logger

	// precheck runs before every handler; nil skips it.
	precheck func(context.Context) error
}

// NewDispatcher builds the full Redmine tool set around client. client may
// be nil when every call supplies its own through WithClient.
func NewDispatcher(client *redmine.Client, opts Options) *Dispatcher {
	h := NewToolHandlers(client)
	d := newDispatcher(h.Tools(), opts)
	d.precheck = h.checkClient
	return d
}

func newDispatcher(tools []Tool, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		tools:    tools,
		index:    make(map[string]int, len(tools)),
		readOnly: opts.ReadOnly,
		logger:   logger,
	}
	for i, t := range tools {
		if _, dup := d.index[t.Definition.Name]; dup {
			panic(fmt.Sprintf("duplicate tool name %q", t.Definition.Name))
		}
		d.index[t.Definition.Name] = i
	}
	if d.readOnly {
		logger.Info("read-only mode enabled - all write operations will be blocked")
	}
	return d
}

// ListTools returns the tool definitions in registration order.
func (d *Dispatcher) ListTools() []mcp.Tool {
	defs := make([]mcp.Tool, len(d.tools))
	for i, t := range d.tools {
		defs[i] = t.Definition
	}
	return defs
}

// CallTool invokes the named tool. It never fails: unknown names, argument
// problems, Redmine errors and handler panics all come back as a result
// whose text describes the failure.
func (d *Dispatcher) CallTool(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	i, ok := d.index[name]
	if !ok {
		d.logger.Warn("unknown tool", "tool", name)
		return mcp.NewToolResultError(fmt.Sprintf("Unknown tool: %s", name))
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return d.invoke(ctx, d.tools[i], req)
}

// Register installs every tool on s. Calls arriving through s get the same
// failure containment as CallTool.
func (d *Dispatcher) Register(s McpServer) {
	for _, t := range d.tools {
		s.AddTool(t.Definition, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return d.invoke(ctx, t, req), nil
		})
	}
}

func (d *Dispatcher) invoke(ctx context.Context, t Tool, req mcp.CallToolRequest) (result *mcp.CallToolResult) {
	name := t.Definition.Name
	callID := uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			result = d.failure(name, callID, fmt.Errorf("%v", r))
		}
	}()

	if d.readOnly && !isReadOnly(t.Definition) {
		return d.failure(name, callID, ErrReadOnly)
	}

	if d.precheck != nil {
		if err := d.precheck(ctx); err != nil {
			return d.failure(name, callID, err)
		}
	}

	d.logger.Debug("tool call", "tool", name, "call_id", callID)

	res, err := t.Handler(ctx, req)
	if err != nil {
		return d.failure(name, callID, err)
	}
	if res == nil {
		return mcp.NewToolResultText("")
	}
	return res
}

func (d *Dispatcher) failure(name, callID string, err error) *mcp.CallToolResult {
	d.logger.Error("tool call failed",
		"tool", name,
		"call_id", callID,
		"status", redmine.StatusCode(err),
		"error", err,
	)
	return mcp.NewToolResultError(fmt.Sprintf("Error executing tool '%s': %v", name, err))
}

// HasTool reports whether name is registered.
func (d *Dispatcher) HasTool(name string) bool {
	_, ok := d.index[name]
	return ok
}

// ReadOnly reports whether write tools are blocked.
func (d *Dispatcher) ReadOnly() bool {
	return d.readOnly
}
