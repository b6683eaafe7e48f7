package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"keycloak-mcp-go/internal/mcp"
	"keycloak-mcp-go/internal/server"
)

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve MCP over stdin/stdout",
	Long: `Speak MCP over stdin and stdout using the SDK stdio transport.
Logs go to stderr as JSON. Keycloak credentials come from the config
file or KC_DEV_USER/KC_DEV_PASSWORD, since stdio carries no bearer token.`,
	RunE: runStdio,
}

func init() {
	rootCmd.AddCommand(stdioCmd)
}

func runStdio(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel, false, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info().Msg("Serving MCP on stdio")
	return mcp.ServeStdio(ctx, server.New(cfg, serverInfo(), logger).MCP(), &mcpsdk.StdioTransport{})
}
