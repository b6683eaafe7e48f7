// Package main is the entry point for the keycloak-mcp server.
package main

import (
	"os"

	"keycloak-mcp-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
