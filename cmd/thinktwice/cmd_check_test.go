package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckCommandValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".thinktwice.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_takeovers: 5\n"), 0o644))

	out, err := runCLI(t, "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
}

func TestCheckCommandInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".thinktwice.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_takeovers: -1\nmystery: 1\n"), 0o644))

	out, err := runCLI(t, "check", path)
	require.Error(t, err)
	assert.Contains(t, out, "problem(s)")
	assert.Contains(t, out, "/max_takeovers")
}

func TestCheckCommandMissingFile(t *testing.T) {
	_, err := runCLI(t, "check", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
