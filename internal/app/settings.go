package app

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings represents configuration loaded from config.yaml.
// Field names match snake_case YAML keys.
type Settings struct {
	StoreDir           string `yaml:"store_dir"`
	StoreBackend       string `yaml:"store_backend"`
	ReportsDir         string `yaml:"reports_dir"`
	OrphanHorizonHours int    `yaml:"orphan_horizon_hours"`
	CacheSize          int    `yaml:"cache_size"`
	MetricsTextfile    string `yaml:"metrics_textfile"`
}

// LifecycleSettings are effective runtime values for resolution and augmentation.
type LifecycleSettings struct {
	OrphanHorizon time.Duration `json:"orphan_horizon"`
	CacheSize     int           `json:"cache_size"`
}

const (
	defaultOrphanHorizonHours = 7 * 24
	maxOrphanHorizonHours     = 365 * 24
	defaultCacheSize          = 64
	maxCacheSize              = 4096
)

// EffectiveLifecycleSettings returns validated settings with defaults.
// Invalid or missing config values fall back to safe defaults.
func EffectiveLifecycleSettings() LifecycleSettings {
	hours := defaultOrphanHorizonHours
	cacheSize := defaultCacheSize

	s, err := LoadSettings()
	if err == nil {
		if s.OrphanHorizonHours > 0 {
			hours = s.OrphanHorizonHours
		}
		if s.CacheSize > 0 {
			cacheSize = s.CacheSize
		}
	}

	if hours > maxOrphanHorizonHours {
		hours = maxOrphanHorizonHours
	}
	if cacheSize > maxCacheSize {
		cacheSize = maxCacheSize
	}
	return LifecycleSettings{
		OrphanHorizon: time.Duration(hours) * time.Hour,
		CacheSize:     cacheSize,
	}
}

// settingsOnce, settings, settingsErr implement the sync.Once lazy-load singleton for config.
// overrideMu and overrides hold process-wide CLI flag overrides.
//
//nolint:gochecknoglobals // sync.Once singleton + RWMutex override are intentional process-wide state
var (
	settingsOnce sync.Once
	settings     Settings
	settingsErr  error

	overrideMu sync.RWMutex
	overrides  Overrides
)

// Overrides are CLI-level values that win over env and config.
type Overrides struct {
	StoreDir     string
	StoreBackend string
	ReportsDir   string
}

// SetOverrides replaces the process-wide CLI overrides.
func SetOverrides(o Overrides) {
	overrideMu.Lock()
	overrides = o
	overrideMu.Unlock()
}

func getOverrides() Overrides {
	overrideMu.RLock()
	v := overrides
	overrideMu.RUnlock()
	return v
}

// LoadSettings loads configuration once using the documented lookup order.
// Lookup order (first found wins):
// 1) ~/.config/wrapcrash/config.yaml
// 2) /etc/wrapcrash/config.yaml
// 3) ./config.yaml (lowest priority)
// Environment variables are handled separately.
func LoadSettings() (Settings, error) {
	settingsOnce.Do(func() {
		settings = Settings{}

		paths, err := configPaths()
		if err != nil {
			settingsErr = err
			return
		}
		for _, p := range paths {
			s, err := loadSettingsFile(p)
			if err == nil {
				settings = s
				return
			}
			if !errors.Is(err, os.ErrNotExist) {
				settingsErr = err
				return
			}
		}
	})

	return settings, settingsErr
}

// configPaths lists config files in lookup order.
func configPaths() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(string(os.PathSeparator), "etc", "wrapcrash", "config.yaml"),
		"config.yaml",
	}, nil
}

func loadSettingsFile(path string) (Settings, error) {
	b, err := os.ReadFile(path) //nolint:gosec // G304: fixed lookup paths
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
