package app

import (
	"os"
	"path/filepath"
)

// ConfigDir returns ~/.config/wrapcrash/ on all platforms.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "wrapcrash"), nil
}

// EnsureConfigDir creates the config directory and default config.yaml if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0600)
	}
	return nil
}

const defaultConfig = `# wrapcrash configuration
# Run: wrapcrash --help

# Where wrapper exception slots live.
# Can also be set via WRAPCRASH_STORE_DIR or --store-dir.
# store_dir: ~/.config/wrapcrash/slots

# Slot storage: file (one file per slot) or sqlite.
# store_backend: file

# Where the native crash capture writes report manifests.
# reports_dir: ~/.config/wrapcrash/reports

# Uncorrelated or unconsumed slots older than this are pruned at startup.
# orphan_horizon_hours: 168

# cache_size: 64
# metrics_textfile: /var/lib/node_exporter/textfile/wrapcrash.prom
`
