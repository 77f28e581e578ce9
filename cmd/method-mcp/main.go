// main.go
// -------
// Entrypoint for the Method CRM MCP server. Configuration comes from
// METHOD_* environment variables; logs go to stderr so stdout stays
// clean for the stdio MCP transport.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	methodmcp "github.com/methodcrm/method-mcp"
	"github.com/methodcrm/method-mcp/auth"
	"github.com/methodcrm/method-mcp/internal/config"
	"github.com/methodcrm/method-mcp/tools"
)

const serverVersion = "1.0.0"

func main() {
	root := &cobra.Command{
		Use:   "method-mcp",
		Short: "MCP server exposing the Method CRM API as agent tools",
		Long: `method-mcp serves Method CRM tables, files, event routines, user info
and API key management as MCP tools over stdio or streamable HTTP.

Configuration is read from METHOD_* environment variables:
  METHOD_API_KEY         API key (preferred credential)
  METHOD_CLIENT_ID       OAuth2 client id (used when no API key is set)
  METHOD_CLIENT_SECRET   OAuth2 client secret
  METHOD_TRANSPORT       "stdio" (default) or "http"
  METHOD_HTTP_PORT       port for the http transport (default 8000)
  METHOD_DEBUG           enable debug logging`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "method-mcp:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	creds, err := auth.Select(auth.Settings{
		APIKey:       cfg.APIKey,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.OAuthTokenURL,
	})
	if err != nil {
		return err
	}

	client, f := methodmcp.NewClient(cfg.APIBaseURL, creds,
		methodmcp.WithTimeout(cfg.RequestTimeout),
		methodmcp.WithRetryPolicy(methodmcp.RetryPolicy{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.BaseBackoff,
			MaxDelay:    10 * time.Second,
			Multiplier:  2.0,
			Jitter:      0.25,
		}),
		methodmcp.WithLogger(logger),
	)
	if f != nil {
		return f
	}

	s := server.NewMCPServer("method-crm", serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	tools.Register(s, tools.All(client, logger))

	logger.Info("starting server",
		zap.String("transport", cfg.Transport),
		zap.String("auth_scheme", creds.Scheme()),
		zap.String("base_url", client.BaseURL()),
	)

	switch cfg.Transport {
	case "http":
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		return server.NewStreamableHTTPServer(s).Start(addr)
	default:
		return server.ServeStdio(s)
	}
}

// newLogger builds a console logger writing to stderr. Stdout carries
// the MCP protocol and must never see log output.
func newLogger(debug bool) (*zap.Logger, error) {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
