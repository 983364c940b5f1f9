package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	cfg, path, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	dir := t.TempDir()
	content := []byte("maxConcurrentAnalyses: 8\nmerge:\n  windowLines: 10\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".analyzer.yaml"), content, 0o644))

	cfg, path, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".analyzer.yaml"), path)
	assert.Equal(t, 8, cfg.MaxConcurrentAnalyses)
	assert.Equal(t, 10, cfg.Merge.WindowLines)
	assert.Equal(t, 3600, cfg.CacheTTLSeconds, "unset keys keep their defaults")
}

func TestLoadSearchesUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".analyzer.yaml"), []byte("queueDepth: 16\n"), 0o644))

	cfg, path, err := Load(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".analyzer.yaml"), path)
	assert.Equal(t, 16, cfg.QueueDepth)
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := Default()
	want.SolcPath = "/usr/local/bin/solc"
	path := filepath.Join(dir, ".analyzer.yaml")
	require.NoError(t, Write(path, want))

	got, loadedFrom, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, path, loadedFrom)
	assert.Equal(t, want, got)
}
