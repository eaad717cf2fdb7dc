package app

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func resetSettingsStateForTest() {
	settingsOnce = sync.Once{}
	settings = Settings{}
	settingsErr = nil
	SetOverrides(Overrides{})
}

func TestGetStoreDir_PrioritizesCLIOverride(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvStoreDir, filepath.Join(home, "env", "slots"))

	overridePath := filepath.Join(home, "cli", "slots")
	SetOverrides(Overrides{StoreDir: overridePath})

	resolved, err := GetStoreDir()
	require.NoError(t, err)
	require.Equal(t, overridePath, resolved)
	require.DirExists(t, overridePath)
}

func TestResolveStoreDir_ReportsSourceForEnv(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)

	envPath := filepath.Join(home, "env", "slots")
	t.Setenv(EnvStoreDir, envPath)

	rv, err := ResolveStoreDir()
	require.NoError(t, err)
	require.Equal(t, envPath, rv.Value)
	require.Equal(t, "env(WRAPCRASH_STORE_DIR)", rv.Source)
}

func TestResolveDefaults(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvStoreDir, "")
	t.Setenv(EnvReportsDir, "")
	t.Setenv(EnvStoreBackend, "")
	chdirForTest(t, t.TempDir())

	rv, err := ResolveStoreDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "wrapcrash", "slots"), rv.Value)
	require.Equal(t, "default", rv.Source)

	reports, err := GetReportsDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "wrapcrash", "reports"), reports)

	backend, err := ResolveStoreBackend()
	require.NoError(t, err)
	require.Equal(t, "file", backend.Value)
}

func TestResolveReportsDir_ExpandsHome(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	SetOverrides(Overrides{ReportsDir: "~/crashes"})

	rv, err := ResolveReportsDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "crashes"), rv.Value)
	require.Equal(t, "cli", rv.Source)
}

func TestEnsureDir_CreatesParentDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deep")

	resolved, err := EnsureDir(dir)
	require.NoError(t, err)
	require.Equal(t, dir, resolved)
	require.DirExists(t, dir)
}
