package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ycho/redmine-mcp/internal/api"
	"github.com/ycho/redmine-mcp/internal/config"
	"github.com/ycho/redmine-mcp/internal/mcp"
	"github.com/ycho/redmine-mcp/internal/output"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func (a *app) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server on stdio",
		Long:  "Serve MCP over stdin/stdout. REDMINE_URL and REDMINE_API_KEY (or username/password) are required.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := redmine.NewClient(a.cfg.Redmine)
			if err != nil {
				return err
			}
			d := mcp.NewDispatcher(client, mcp.Options{ReadOnly: a.cfg.ReadOnly, Logger: a.logger})

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return mcp.ServeStdio(ctx, d, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger)
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server",
		Long: `Serve MCP over SSE (/sse, /message) and a JSON tool gateway (/api/v1/tools).

Callers authenticate with the X-Redmine-API-Key header. When the server has
credentials of its own they are used for requests without the header, unless
--require-caller-key is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := redmine.NewGatewayClient(a.cfg.Redmine)
			if err != nil {
				return err
			}

			var def *redmine.Client
			switch {
			case a.cfg.HTTP.RequireCallerKey:
				a.logger.Info("caller key required; every request must send " + redmine.APIKeyHeader)
			case client.HasCredentials():
				def = client
				a.logger.Warn("requests without " + redmine.APIKeyHeader + " act with the server's Redmine credentials; use --require-caller-key to reject them")
			default:
				a.logger.Warn("no server credentials configured; every request must send " + redmine.APIKeyHeader)
			}
			d := mcp.NewDispatcher(def, mcp.Options{ReadOnly: a.cfg.ReadOnly, Logger: a.logger})

			srv := api.NewServer(api.Config{
				Addr:             a.cfg.HTTP.Addr,
				BaseURL:          publicURL(a.cfg.HTTP),
				RequireCallerKey: a.cfg.HTTP.RequireCallerKey,
				Logger:           a.logger,
			}, client, d)

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().String("addr", api.DefaultAddr, "Listen address")
	cmd.Flags().String("base-url", "", "Public URL of this server, used in SSE endpoint events")
	_ = a.v.BindPFlag("http.addr", cmd.Flags().Lookup("addr"))
	cmd.Flags().Bool("require-caller-key", false, "Reject requests without "+redmine.APIKeyHeader+" even when server credentials are set")
	_ = a.v.BindPFlag("http.base_url", cmd.Flags().Lookup("base-url"))
	_ = a.v.BindPFlag("http.require_caller_key", cmd.Flags().Lookup("require-caller-key"))
	return cmd
}

// publicURL defaults to localhost on the listen port.
func publicURL(cfg config.HTTPConfig) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	if strings.HasPrefix(cfg.Addr, ":") {
		return "http://localhost" + cfg.Addr
	}
	return "http://" + cfg.Addr
}

func (a *app) toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := mcp.NewDispatcher(nil, mcp.Options{ReadOnly: a.cfg.ReadOnly, Logger: a.logger})
			tools := d.ListTools()

			table := a.ui.Table([]string{"Name", "Title", "Access"})
			for _, t := range tools {
				readOnly := t.Annotations.ReadOnlyHint != nil && *t.Annotations.ReadOnlyHint
				if err := table.Append([]string{
					t.Name,
					t.Annotations.Title,
					output.AccessLabel(readOnly, d.ReadOnly()),
				}); err != nil {
					return err
				}
			}
			if err := table.Render(); err != nil {
				return err
			}

			a.ui.Info("%d tools registered", len(tools))
			if d.ReadOnly() {
				a.ui.Warning("read-only mode: write tools are refused")
			}
			return nil
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Test the connection to Redmine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := redmine.NewClient(a.cfg.Redmine)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a.ui.VerboseLog("connecting to %s", client.BaseURL())
			if err := client.TestConnection(ctx); err != nil {
				a.ui.Error("cannot reach %s", client.BaseURL())
				return err
			}
			user, err := client.GetCurrentUser(ctx)
			if err != nil {
				a.ui.Error("connected, but the current user could not be read")
				return err
			}

			a.ui.Success("Connected to %s", output.Cyan(client.BaseURL()))
			return a.ui.KeyValues([][2]string{
				{"URL", client.BaseURL()},
				{"Auth", authDescription(a.cfg)},
				{"User", fmt.Sprintf("%v (%v %v)", user["login"], user["firstname"], user["lastname"])},
				{"Read-only", fmt.Sprintf("%t", a.cfg.ReadOnly)},
			})
		},
	}
}

func authDescription(cfg *config.Config) string {
	switch {
	case cfg.Redmine.APIKey != "":
		return "API key " + config.RedactedKey(cfg.Redmine.APIKey)
	case cfg.Redmine.Username != "":
		return "basic auth as " + cfg.Redmine.Username
	default:
		return "none"
	}
}
