package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kalambet/recents/internal/backup"
	"github.com/kalambet/recents/internal/config"
	"github.com/kalambet/recents/internal/kvstore"
	"github.com/kalambet/recents/internal/recent"
)

// app wires the configured store, backup history and recent list for one
// command invocation.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	store   kvstore.Store
	backups *backup.Store
	list    *recent.Model
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(os.Stderr, cfg.Log.Level)
	slog.SetDefault(logger)

	forced, err := recent.SchemeByName(cfg.Store.Scheme)
	if err != nil {
		return nil, err
	}
	fallback, err := recent.SchemeByName(cfg.FallbackScheme())
	if err != nil {
		return nil, err
	}

	store, err := kvstore.New(cfg.Store.Backend, cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}

	a := &app{cfg: cfg, logger: logger, store: store}

	opts := []recent.Option{
		recent.WithLogger(logger),
		recent.WithFallbackScheme(fallback),
	}
	if forced != nil {
		opts = append(opts, recent.WithScheme(forced))
	}
	if cfg.Backup.Enabled {
		a.backups, err = backup.Open(cfg.Backup.DataDir)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening backup history: %w", err)
		}
		opts = append(opts, recent.WithSnapshotter(a.recorder()))
	}

	a.list = recent.NewModel(store, a.layout(), opts...)
	return a, nil
}

func (a *app) layout() recent.Layout {
	return recent.Layout{Location: a.cfg.Store.Location, Prefix: a.cfg.Store.Prefix}
}

// where describes the configured list location for messages.
func (a *app) where() string {
	name := a.cfg.Store.Backend
	if name == kvstore.BackendNative {
		name = kvstore.NativeDescription
	}
	return fmt.Sprintf("%s (%s)", a.cfg.Store.Location, name)
}

func (a *app) recorder() recent.Snapshotter {
	if a.backups == nil {
		return nil
	}
	return backup.NewRecorder(a.backups, a.cfg.Backup.Keep)
}

// load reads the list and fails when there is nothing that could be saved.
func (a *app) load() error {
	if err := a.list.Load(); err != nil {
		return err
	}
	if a.list.State() != recent.Loaded {
		return fmt.Errorf("no recent-project list found at %s", a.where())
	}
	return nil
}

func (a *app) requireBackups() error {
	if a.backups == nil {
		return errors.New("backup history is disabled (backup.enabled = false)")
	}
	return nil
}

func (a *app) Close() error {
	var errs []error
	if a.backups != nil {
		errs = append(errs, a.backups.Close())
	}
	errs = append(errs, kvstore.Release(a.store))
	return errors.Join(errs...)
}
