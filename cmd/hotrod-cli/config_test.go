package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCLIConfigFallsBackToDefaultWhenMissing(t *testing.T) {
	cfg, err := loadCLIConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	want := defaultCLIConfig()
	require.Equal(t, want.Servers, cfg.Servers)
	require.Equal(t, want.Timeout, cfg.Timeout)
}

func TestScaffoldThenLoadCLIConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotrod-cli.yaml")
	require.NoError(t, scaffoldCLIConfig(path))

	cfg, err := loadCLIConfig(path)
	require.NoError(t, err)

	want := defaultCLIConfig()
	require.Equal(t, want.Servers, cfg.Servers)
	require.Equal(t, want.Cache, cfg.Cache)
	require.Equal(t, want.Timeout, cfg.Timeout)
}

func TestSplitCommandLine(t *testing.T) {
	got := splitCommandLine("put  foo   bar baz")
	require.Equal(t, []string{"put", "foo", "bar", "baz"}, got)
}

func TestPutOptionsFromEmptyStringsYieldsNoOptions(t *testing.T) {
	opts := putOptionsFrom("", "")
	require.Len(t, opts, 0)
}

func TestPutOptionsFromSetFieldsYieldsOneOptionEach(t *testing.T) {
	opts := putOptionsFrom("10s", "5m")
	require.Len(t, opts, 2)
}
