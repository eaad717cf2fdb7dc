package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolvedValue is a setting value together with where it came from.
type ResolvedValue struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Environment variables consulted after CLI overrides.
const (
	EnvStoreDir     = "WRAPCRASH_STORE_DIR"
	EnvStoreBackend = "WRAPCRASH_STORE_BACKEND"
	EnvReportsDir   = "WRAPCRASH_REPORTS_DIR"
)

// resolve applies the precedence shared by every path-like setting:
// 1) CLI override 2) environment 3) config.yaml 4) default.
func resolve(cli, envKey string, fromConfig func(Settings) string, def func() (string, error)) (ResolvedValue, error) {
	if cli != "" {
		return ResolvedValue{Value: cli, Source: "cli"}, nil
	}
	if v := os.Getenv(envKey); v != "" {
		return ResolvedValue{Value: v, Source: fmt.Sprintf("env(%s)", envKey)}, nil
	}

	cfg, err := LoadSettings()
	if err != nil {
		return ResolvedValue{}, fmt.Errorf("failed to load config: %w", err)
	}
	if v := fromConfig(cfg); v != "" {
		return ResolvedValue{Value: v, Source: "config"}, nil
	}

	v, err := def()
	if err != nil {
		return ResolvedValue{}, err
	}
	return ResolvedValue{Value: v, Source: "default"}, nil
}

func underConfigDir(name string) func() (string, error) {
	return func() (string, error) {
		dir, err := ConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine config directory: %w", err)
		}
		return filepath.Join(dir, name), nil
	}
}

// ResolveStoreDir returns the slot directory and its source.
func ResolveStoreDir() (ResolvedValue, error) {
	rv, err := resolve(getOverrides().StoreDir, EnvStoreDir,
		func(s Settings) string { return s.StoreDir }, underConfigDir("slots"))
	if err != nil {
		return rv, err
	}
	rv.Value, err = expandHome(rv.Value)
	return rv, err
}

// ResolveReportsDir returns the native report manifest directory and its source.
func ResolveReportsDir() (ResolvedValue, error) {
	rv, err := resolve(getOverrides().ReportsDir, EnvReportsDir,
		func(s Settings) string { return s.ReportsDir }, underConfigDir("reports"))
	if err != nil {
		return rv, err
	}
	rv.Value, err = expandHome(rv.Value)
	return rv, err
}

// ResolveStoreBackend returns the configured slot backend and its source.
func ResolveStoreBackend() (ResolvedValue, error) {
	return resolve(getOverrides().StoreBackend, EnvStoreBackend,
		func(s Settings) string { return s.StoreBackend },
		func() (string, error) { return "file", nil })
}

// GetStoreDir resolves the slot directory and ensures it exists.
func GetStoreDir() (string, error) {
	rv, err := ResolveStoreDir()
	if err != nil {
		return "", err
	}
	return EnsureDir(rv.Value)
}

// GetReportsDir resolves the native report manifest directory.
func GetReportsDir() (string, error) {
	rv, err := ResolveReportsDir()
	if err != nil {
		return "", err
	}
	return rv.Value, nil
}

// EnsureDir creates dir and its parents.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return dir, nil
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, p[2:]), nil
}
