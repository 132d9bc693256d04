package recent

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/recents/internal/kvstore"
)

// LoadState gates Save: only a Loaded model may write.
type LoadState int

const (
	Unloaded LoadState = iota
	Loaded
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	case LoadFailed:
		return "load failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// Layout locates the recent list: the namespace and the value-name prefix
// shared by every entry.
type Layout struct {
	Location string
	Prefix   string
}

func (l Layout) matches(key string) bool {
	return strings.HasPrefix(key, l.Prefix)
}

// Record is a raw stored value.
type Record struct {
	Key   string
	Value []byte
}

// Snapshotter records the persisted values a save is about to replace.
type Snapshotter interface {
	Snapshot(location string, records []Record) error
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// WithScheme forces a key scheme instead of detecting one at load time.
func WithScheme(s KeyScheme) Option {
	return func(m *Model) { m.forced = s }
}

// WithFallbackScheme sets the scheme used when the namespace has no
// matching values to detect from. Defaults to HashScheme.
func WithFallbackScheme(s KeyScheme) Option {
	return func(m *Model) { m.fallback = s }
}

// WithSnapshotter records the previous values before each save.
func WithSnapshotter(s Snapshotter) Option {
	return func(m *Model) { m.snap = s }
}

// Model owns the ordered recent list and its load state. It is not safe for
// concurrent use.
type Model struct {
	store    kvstore.Store
	layout   Layout
	forced   KeyScheme
	fallback KeyScheme
	snap     Snapshotter
	logger   *slog.Logger

	scheme  KeyScheme
	entries []Entry
	state   LoadState
}

// NewModel returns an empty, unloaded Model over store.
func NewModel(store kvstore.Store, layout Layout, opts ...Option) *Model {
	m := &Model{
		store:    store,
		layout:   layout,
		fallback: HashScheme{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State reports the outcome of the last load.
func (m *Model) State() LoadState { return m.state }

// Layout returns the namespace and prefix the model reads.
func (m *Model) Layout() Layout { return m.layout }

// Scheme returns the key scheme chosen by the last successful load.
func (m *Model) Scheme() KeyScheme {
	if m.scheme != nil {
		return m.scheme
	}
	if m.forced != nil {
		return m.forced
	}
	return m.fallback
}

// Len returns the number of entries.
func (m *Model) Len() int { return len(m.entries) }

// Entries returns a copy of the current list.
func (m *Model) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}

// Rows returns the display rows for the current order.
func (m *Model) Rows() []Row {
	rows := make([]Row, len(m.entries))
	for i, e := range m.entries {
		rows[i] = e.Row()
	}
	return rows
}

// Load replaces the list with the persisted one. A missing namespace leaves
// an empty list and a closed save gate without returning an error; any other
// store failure is returned and also closes the gate.
func (m *Model) Load() error {
	entries, scheme, err := m.read()
	if err != nil {
		m.entries = nil
		m.state = LoadFailed
		if errors.Is(err, kvstore.ErrNotFound) {
			m.logger.Debug("recent list namespace not found", "location", m.layout.Location)
			return nil
		}
		return fmt.Errorf("loading recent list: %w", err)
	}
	m.entries = entries
	m.scheme = scheme
	m.state = Loaded
	m.logger.Debug("recent list loaded", "location", m.layout.Location, "entries", len(entries), "scheme", scheme.Name())
	return nil
}

// Revert discards edits by loading again.
func (m *Model) Revert() error {
	return m.Load()
}

func (m *Model) read() ([]Entry, KeyScheme, error) {
	ns, err := m.store.Open(m.layout.Location, false)
	if err != nil {
		return nil, nil, err
	}
	defer ns.Close()

	keys, err := ns.Keys()
	if err != nil {
		return nil, nil, fmt.Errorf("enumerating %s: %w", m.layout.Location, err)
	}
	var matching []string
	for _, k := range keys {
		if m.layout.matches(k) {
			matching = append(matching, k)
		}
	}

	scheme := m.forced
	if scheme == nil {
		scheme = DetectScheme(m.layout.Prefix, matching, m.fallback)
	}

	entries := make([]Entry, 0, len(matching))
	for _, k := range matching {
		raw, err := ns.Get(k)
		if err != nil {
			if errors.Is(err, kvstore.ErrNotFound) {
				m.logger.Warn("recent entry vanished during load, skipping", "key", k)
				continue
			}
			return nil, nil, fmt.Errorf("reading %s: %w", k, err)
		}
		e, err := Decode(raw)
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				de.Key = k
			}
			m.logger.Warn("unreadable recent entry, skipping", "key", k, "error", err)
			continue
		}
		if !e.Terminated {
			m.logger.Debug("recent entry has no terminator", "key", k)
		}
		e.Suffix = scheme.Suffix(m.layout.Prefix, k)
		entries = append(entries, e)
	}
	return entries, scheme, nil
}

// unique returns the distinct positions of selected, in first-seen order.
func unique(selected []int) []int {
	seen := make(map[int]bool, len(selected))
	out := make([]int, 0, len(selected))
	for _, i := range selected {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out
}

// Delete removes the entries at the selected positions in one pass over the
// current order and returns how many were removed. Positions outside the
// list are ignored.
func (m *Model) Delete(selected []int) int {
	if len(selected) == 0 {
		return 0
	}
	drop := make(map[int]bool, len(selected))
	for _, i := range selected {
		drop[i] = true
	}
	kept := make([]Entry, 0, len(m.entries))
	for i, e := range m.entries {
		if !drop[i] {
			kept = append(kept, e)
		}
	}
	removed := len(m.entries) - len(kept)
	m.entries = kept
	return removed
}

// MoveUp swaps the single selected entry with the one above it and returns
// its new position. Anything other than exactly one selected position, or
// the first position, is a no-op.
func (m *Model) MoveUp(selected []int) (int, bool) {
	return m.move(selected, -1)
}

// MoveDown swaps the single selected entry with the one below it. It is a
// no-op unless exactly one position is selected and it is not the last.
func (m *Model) MoveDown(selected []int) (int, bool) {
	return m.move(selected, 1)
}

func (m *Model) move(selected []int, delta int) (int, bool) {
	sel := unique(selected)
	if len(sel) != 1 {
		return -1, false
	}
	from := sel[0]
	to := from + delta
	if from < 0 || from >= len(m.entries) || to < 0 || to >= len(m.entries) {
		return from, false
	}
	m.entries[from], m.entries[to] = m.entries[to], m.entries[from]
	return to, true
}

// Save replaces every persisted value under the prefix with the current
// list. It does nothing unless the last load succeeded. Store failures are
// returned as *WriteError.
func (m *Model) Save() error {
	if m.state != Loaded {
		m.logger.Info("save skipped, recent list was not loaded", "state", m.state.String())
		return nil
	}
	records, err := m.records()
	if err != nil {
		return err
	}
	if err := rewrite(m.store, m.layout, m.snap, records); err != nil {
		return err
	}
	m.logger.Debug("recent list saved", "location", m.layout.Location, "entries", len(records))
	return nil
}

// records computes the save key and encoded value of every entry.
func (m *Model) records() ([]Record, error) {
	seen := make(map[string]int, len(m.entries))
	records := make([]Record, len(m.entries))
	for i, e := range m.entries {
		key := m.scheme.Key(m.layout.Prefix, e, i)
		if j, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w %q at positions %d and %d", ErrDuplicateKey, key, j, i)
		}
		seen[key] = i
		records[i] = Record{Key: key, Value: Encode(e)}
	}
	return records, nil
}

// rewrite deletes every value under the prefix and writes records in order.
// Buffered stores drop their pending writes when any step fails.
func rewrite(store kvstore.Store, layout Layout, snap Snapshotter, records []Record) (err error) {
	ns, err := store.Open(layout.Location, true)
	if err != nil {
		return &WriteError{Op: "opening", Key: layout.Location, Err: err}
	}
	defer func() {
		if err != nil {
			kvstore.Abort(ns)
		}
		if cerr := ns.Close(); cerr != nil && err == nil {
			err = &WriteError{Op: "committing", Key: layout.Location, Err: cerr}
		}
	}()

	keys, err := ns.Keys()
	if err != nil {
		return &WriteError{Op: "enumerating", Key: layout.Location, Err: err}
	}
	var existing []string
	for _, k := range keys {
		if layout.matches(k) {
			existing = append(existing, k)
		}
	}

	if snap != nil {
		prev := make([]Record, 0, len(existing))
		for _, k := range existing {
			v, err := ns.Get(k)
			if err != nil {
				return &WriteError{Op: "reading", Key: k, Err: err}
			}
			prev = append(prev, Record{Key: k, Value: v})
		}
		if err := snap.Snapshot(layout.Location, prev); err != nil {
			return &WriteError{Op: "recording backup", Key: layout.Location, Err: err}
		}
	}

	for _, k := range existing {
		if err := ns.Delete(k); err != nil {
			return &WriteError{Op: "deleting", Key: k, Err: err}
		}
	}
	for _, r := range records {
		if err := ns.Set(r.Key, r.Value); err != nil {
			return &WriteError{Op: "writing", Key: r.Key, Err: err}
		}
	}
	return nil
}
