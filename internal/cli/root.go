// Package cli implements the keycloak-mcp command line.
package cli

import (
	"fmt"
	"io"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"keycloak-mcp-go/internal/config"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "keycloak-mcp",
	Short: "MCP server exposing Keycloak realm roles",
	Long: `keycloak-mcp serves Keycloak realm-role lookups as Model Context
Protocol tools. Agents call get-realm-roles, get-realm-role and
get-role-composites over streamable HTTP or stdio.

The caller's bearer token is forwarded to the Keycloak admin API, so
Keycloak decides what each caller may read.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "keycloak-mcp %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ./"+config.DefaultConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information from build flags
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

func serverInfo() *mcp.Implementation {
	return &mcp.Implementation{Name: "keycloak-mcp", Version: version}
}

// loadConfig merges the config sources with the flags set on cmd.
func loadConfig(cmd *cobra.Command, overrides map[string]string) (*config.Config, error) {
	loader := config.NewLoader()
	if cmd.Flags().Changed("log-level") {
		loader.SetOverride("log_level", logLevel)
	}
	for flag, key := range overrides {
		if cmd.Flags().Changed(flag) {
			value, err := cmd.Flags().GetString(flag)
			if err != nil {
				return nil, err
			}
			loader.SetOverride(key, value)
		}
	}

	cfg, err := loader.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Console output is for humans; stdio
// mode logs JSON so stderr stays machine readable.
func newLogger(level string, console bool, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	if console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
