// Package config loads server settings from the environment, an optional
// .env file and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/ycho/redmine-mcp/internal/redmine"
)

// EnvPrefix is prepended to every key when read from the environment, so
// "http.addr" is REDMINE_HTTP_ADDR.
const EnvPrefix = "REDMINE"

// Config is the resolved configuration of one process.
type Config struct {
	Redmine  redmine.Config
	ReadOnly bool
	LogLevel slog.Level
	HTTP     HTTPConfig
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr             string
	BaseURL          string
	RequireCallerKey bool
}

// LoadDotEnv loads the given files, or .env in the working directory. Missing
// files are ignored and variables already set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// DefaultConfigFile is ~/.config/redmine-mcp/config.yaml.
func DefaultConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "redmine-mcp", "config.yaml")
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("url", "")
	v.SetDefault("api_key", "")
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("timeout", redmine.DefaultTimeout)
	v.SetDefault("upload_timeout", redmine.DefaultUploadTimeout)
	v.SetDefault("retry_max", redmine.DefaultRetryMax)
	v.SetDefault("retry_wait_min", redmine.DefaultRetryWaitMin)
	v.SetDefault("retry_wait_max", redmine.DefaultRetryWaitMax)
	v.SetDefault("read_only", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.base_url", "")
	v.SetDefault("http.require_caller_key", false)

	// Older deployments set REDMINE_MCP_READ_ONLY.
	_ = v.BindEnv("read_only", "REDMINE_READ_ONLY", "REDMINE_MCP_READ_ONLY")

	return v
}

// ReadFile reads path into v. With an empty path the default location is
// tried and a missing file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile()
		if path == "" {
			return nil
		}
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !explicit && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load resolves v into a Config. It does not require a URL or credentials;
// callers that talk to Redmine check those through redmine.NewClient.
func Load(v *viper.Viper) (*Config, error) {
	level, err := ParseLevel(v.GetString("log_level"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Redmine: redmine.Config{
			URL:           v.GetString("url"),
			APIKey:        v.GetString("api_key"),
			Username:      v.GetString("username"),
			Password:      v.GetString("password"),
			Timeout:       v.GetDuration("timeout"),
			UploadTimeout: v.GetDuration("upload_timeout"),
			RetryMax:      v.GetInt("retry_max"),
			RetryWaitMin:  v.GetDuration("retry_wait_min"),
			RetryWaitMax:  v.GetDuration("retry_wait_max"),
		},
		ReadOnly: v.GetBool("read_only"),
		LogLevel: level,
		HTTP: HTTPConfig{
			Addr:             v.GetString("http.addr"),
			BaseURL:          strings.TrimRight(v.GetString("http.base_url"), "/"),
			RequireCallerKey: v.GetBool("http.require_caller_key"),
		},
	}

	// retry_max 0 means "no retries" here, while redmine.Config reads 0 as
	// "use the default".
	if cfg.Redmine.RetryMax == 0 {
		cfg.Redmine.RetryMax = -1
	}
	if cfg.Redmine.Timeout < 0 || cfg.Redmine.UploadTimeout < 0 {
		return nil, fmt.Errorf("timeouts must not be negative")
	}
	if cfg.Redmine.RetryWaitMin > 0 && cfg.Redmine.RetryWaitMax > 0 && cfg.Redmine.RetryWaitMax < cfg.Redmine.RetryWaitMin {
		return nil, fmt.Errorf("retry_wait_max (%s) is shorter than retry_wait_min (%s)",
			cfg.Redmine.RetryWaitMax, cfg.Redmine.RetryWaitMin)
	}
	return cfg, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// RedactedKey shows only the first four characters of a credential.
func RedactedKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 8)
}
