package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/ycho/redmine-mcp/internal/config"
	"github.com/ycho/redmine-mcp/internal/output"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand once the configuration
// has been loaded.
type app struct {
	v       *viper.Viper
	cfgFile string

	cfg    *config.Config
	logger *slog.Logger
	ui     *output.UI
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:     "redmine-mcp",
		Short:   "Redmine MCP Server - AI assistant integration for Redmine",
		Version: redmine.Version,
		Long: `redmine-mcp exposes the Redmine REST API as MCP tools.

Configuration is read from REDMINE_* environment variables, a .env file in
the working directory and ~/.config/redmine-mcp/config.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Config file (default ~/.config/redmine-mcp/config.yaml)")
	flags.String("redmine-url", "", "Redmine server URL (REDMINE_URL)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("read-only", false, "Refuse every tool that writes to Redmine")
	_ = a.v.BindPFlag("url", flags.Lookup("redmine-url"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("read_only", flags.Lookup("read-only"))

	rootCmd.AddCommand(
		a.mcpCmd(),
		a.serveCmd(),
		a.toolsCmd(),
		a.checkCmd(),
	)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = setupLogging(cfg.LogLevel, cmd.ErrOrStderr())
	a.cfg.Redmine.Logger = a.logger
	a.ui = &output.UI{Out: cmd.OutOrStdout(), ErrOut: cmd.ErrOrStderr()}
	return nil
}

// setupLogging installs a text handler on w. Logs never go to stdout, which
// belongs to the stdio transport.
func setupLogging(level slog.Level, w io.Writer) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
