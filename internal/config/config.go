package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Default prefix shared by every recent-project value name.
const DefaultPrefix = "RecentlyUsedProjectPaths"

type Config struct {
	Store  StoreConfig
	Backup BackupConfig
	Log    LogConfig
}

// StoreConfig locates the recent-project list.
type StoreConfig struct {
	Backend  string // native, file or pebble
	Location string // registry key, defaults domain or namespace name
	Prefix   string
	Scheme   string // auto, hash or index
	Path     string // data location for the file and pebble backends
}

type BackupConfig struct {
	Enabled bool
	DataDir string
	Keep    int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Store: StoreConfig{
			Backend:  "native",
			Location: defaultStoreLocation(),
			Prefix:   DefaultPrefix,
			Scheme:   "auto",
		},
		Backup: BackupConfig{
			Enabled: true,
			DataDir: dataDir,
			Keep:    20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and
// environment variables.
//
// On macOS the backend is UserDefaults (domain: com.kalambet.recents).
// Elsewhere it is a JSON file at $XDG_CONFIG_HOME/recents/config.json.
//
// Environment variables (RECENTS_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case "native", "file", "pebble":
	default:
		return fmt.Errorf("invalid store.backend %q: want native, file or pebble", c.Store.Backend)
	}
	switch c.Store.Scheme {
	case "auto", "hash", "index":
	default:
		return fmt.Errorf("invalid store.scheme %q: want auto, hash or index", c.Store.Scheme)
	}
	if strings.TrimSpace(c.Store.Location) == "" {
		return fmt.Errorf("missing required config: store.location")
	}
	if c.Store.Prefix == "" {
		return fmt.Errorf("missing required config: store.prefix")
	}
	if c.Backup.Keep < 0 {
		return fmt.Errorf("invalid backup.keep %d: must not be negative", c.Backup.Keep)
	}
	return nil
}

// StorePath returns the data location for the configured backend. It is
// empty for the native backend on platforms with an OS store.
func (c Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	switch c.Store.Backend {
	case "file":
		return filepath.Join(c.Backup.DataDir, "store.json")
	case "pebble":
		return filepath.Join(c.Backup.DataDir, "store.pebble")
	default:
		return nativeStorePath(c.Backup.DataDir)
	}
}

// FallbackScheme is the key scheme assumed when the namespace holds no
// recent values to detect one from.
func (c Config) FallbackScheme() string {
	if c.Store.Backend == "native" {
		return nativeScheme
	}
	return "index"
}
