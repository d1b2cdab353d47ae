package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "database:\n  path: " + filepath.Join(dir, "companion.db") + "\n" +
		"log:\n  level: error\n" +
		"cache:\n  driver: none\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(args ...string) error {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestUserAddAndSweep(t *testing.T) {
	cfg := writeConfig(t)

	require.NoError(t, run("--config", cfg, "user", "add", "--name", "alice"))
	require.NoError(t, run("--config", cfg, "sweep"))
}

func TestUserAddRequiresName(t *testing.T) {
	assert.Error(t, run("--config", writeConfig(t), "user", "add"))
}

func TestReportGenerateFlags(t *testing.T) {
	cfg := writeConfig(t)
	assert.Error(t, run("--config", cfg, "report", "generate"))
	assert.Error(t, run("--config", cfg, "report", "generate", "--mac", "aa:bb:cc:dd:ee:ff", "--active"))

	err := run("--config", cfg, "report", "generate", "--mac", "aa:bb:cc:dd:ee:ff")
	assert.ErrorContains(t, err, "device not found")
}

func TestServeRejectsBadScheduleBeforeListening(t *testing.T) {
	cfg := writeConfig(t)
	f, err := os.OpenFile(cfg, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("scheduler:\n  enabled: true\n  expiry_sweep: \"every so often\"\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = serve(context.Background(), cfg)
	assert.ErrorContains(t, err, "invalid expiry_sweep schedule")
}
