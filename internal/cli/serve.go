package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"keycloak-mcp-go/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over streamable HTTP",
	Long: `Start the HTTP server. MCP clients talk to POST/GET/DELETE /mcp;
/health, /metrics and /sessions/stats are served alongside.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]string{"addr": "server.addr"})
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel, true, os.Stderr)
	if cfg.Keycloak.DevUser != "" {
		logger.Warn().
			Str("user", cfg.Keycloak.DevUser).
			Msg("Dev credentials configured; requests without a bearer token use them")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.New(cfg, serverInfo(), logger).Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Server failed")
		return err
	}

	logger.Info().Msg("Server stopped")
	return nil
}
