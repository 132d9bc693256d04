package config

// ConfigBackend is where persisted settings live between runs. Values are
// read once per Load; environment overrides are applied on top.
//
// macOS: UserDefaults domain com.kalambet.recents (defaults CLI).
// Elsewhere: $XDG_CONFIG_HOME/recents/config.json.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	// Delete removes key. Removing an absent key is not an error.
	Delete(key string) error
}
