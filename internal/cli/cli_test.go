package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keycloak-mcp-go/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		configPath = ""
		logLevel = ""
		configInitForce = false
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "keycloak-mcp 1.2.3")
	assert.Contains(t, out, "commit: abc123")
}

func TestToolsCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "tools")
	require.NoError(t, err)

	assert.Contains(t, out, "get-realm-roles\n  Get all roles from a keycloak realm")
	assert.Contains(t, out, "get-realm-role\n  Get a specific role from a keycloak realm")
	assert.Contains(t, out, "get-role-composites")
	assert.Contains(t, out, "roleName (string, required) A String denoting the name of the role")
	assert.Contains(t, out, "3 tools")
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+config.DefaultConfigFile)
	assert.FileExists(t, filepath.Join(dir, config.DefaultConfigFile))

	_, err = execute(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "--force")
	require.NoError(t, err)

	t.Setenv("KC_DEV_USER", "admin")
	t.Setenv("KC_DEV_PASSWORD", "hunter2")

	out, err = execute(t, "config", "show", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "url: http://localhost:8180")
	assert.Contains(t, out, "log_level: debug")
	assert.Contains(t, out, "dev_user: admin")
	assert.NotContains(t, out, "hunter2")
}

func TestConfigShow_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: loud\n"), 0600))

	_, err := execute(t, "config", "show", "--config", path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "'LogLevel' must be one of"))
}
