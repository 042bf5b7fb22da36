package mcp

import (
	"context"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

// ServerName is the implementation name announced during initialization.
const ServerName = "redmine-mcp-server"

// NewMCPServer creates the protocol server with every tool of d registered.
func NewMCPServer(d *Dispatcher) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		redmine.Version,
		server.WithToolCapabilities(false),
	)
	d.Register(s)
	return s
}

// ServeStdio runs an MCP session over in and out until ctx is cancelled or
// in reaches EOF. Protocol errors are logged through logger.
func ServeStdio(ctx context.Context, d *Dispatcher, in io.Reader, out io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	stdio := server.NewStdioServer(NewMCPServer(d))
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

	logger.Info("starting MCP server in stdio mode", "tools", len(d.ListTools()), "read_only", d.ReadOnly())
	return stdio.Listen(ctx, in, out)
}
