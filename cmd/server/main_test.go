package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "procurement-decisions version "+Version)
}

func TestMigrateCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	dbPath := filepath.Join(dir, "data", "test.db")
	t.Setenv("PROCUREMENT_DATABASE_PATH", dbPath)
	t.Setenv("PROCUREMENT_LOGGER_OUTPUT_PATH", "stderr")

	for i, want := range []string{"applied 1 migration(s)", "applied 0 migration(s)"} {
		cmd := rootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"migrate"})
		require.NoError(t, cmd.Execute(), "run %d", i)
		assert.Contains(t, out.String(), want)
	}

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
