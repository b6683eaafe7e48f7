package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"keycloak-mcp-go/internal/server"
	"keycloak-mcp-go/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the MCP tools this server provides",
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	registry := server.New(cfg, serverInfo(), zerolog.Nop()).Tools()
	printTools(cmd.OutOrStdout(), registry.Definitions())
	return nil
}

func printTools(w io.Writer, defs []*mcp.Tool) {
	name := color.New(color.FgCyan, color.Bold)
	param := color.New(color.FgYellow)
	faint := color.New(color.Faint)

	for i, def := range defs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		name.Fprintln(w, def.Name)
		fmt.Fprintf(w, "  %s\n", def.Description)

		schema := tools.InputSchema(def)
		for _, p := range schema.Required {
			prop, ok := schema.Properties[p]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "  %s %s %s\n",
				param.Sprint(p),
				faint.Sprintf("(%s, required)", prop.Type),
				prop.Description,
			)
		}
	}

	fmt.Fprintf(w, "\n%s\n", faint.Sprint(strings.Repeat("-", 40)))
	fmt.Fprintf(w, "%d tools\n", len(defs))
}
