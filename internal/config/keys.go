package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	choices []string // accepted values, any when empty
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "store.backend", typ: kString, env: "RECENTS_STORE_BACKEND",
		choices: []string{"native", "file", "pebble"},
		apply:   func(cfg *Config, v any) { cfg.Store.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.Backend },
	},
	{
		key: "store.location", typ: kString, env: "RECENTS_STORE_LOCATION",
		apply:   func(cfg *Config, v any) { cfg.Store.Location = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.Location },
	},
	{
		key: "store.prefix", typ: kString, env: "RECENTS_STORE_PREFIX",
		apply:   func(cfg *Config, v any) { cfg.Store.Prefix = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.Prefix },
	},
	{
		key: "store.scheme", typ: kString, env: "RECENTS_STORE_SCHEME",
		choices: []string{"auto", "hash", "index"},
		apply:   func(cfg *Config, v any) { cfg.Store.Scheme = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.Scheme },
	},
	{
		key: "store.path", typ: kString, env: "RECENTS_STORE_PATH",
		apply:   func(cfg *Config, v any) { cfg.Store.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.Path },
	},
	{
		key: "backup.enabled", typ: kBool, env: "RECENTS_BACKUP_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Backup.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Backup.Enabled },
	},
	{
		key: "backup.data_dir", typ: kString, env: "RECENTS_BACKUP_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Backup.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Backup.DataDir },
	},
	{
		key: "backup.keep", typ: kInt, env: "RECENTS_BACKUP_KEEP",
		apply:   func(cfg *Config, v any) { cfg.Backup.Keep = v.(int) },
		extract: func(cfg Config) any { return cfg.Backup.Keep },
	},
	{
		key: "log.level", typ: kString, env: "RECENTS_LOG_LEVEL",
		choices: []string{"debug", "info", "warn", "error"},
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					slog.Warn("could not parse bool from config key, using default value", "key", s.key, "value", v, "error", err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				slog.Warn("could not parse integer from env var, using default value", "env", s.env, "value", raw, "error", err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				slog.Warn("could not parse bool from env var, using default value", "env", s.env, "value", raw, "error", err)
			}
		}
	}
}
