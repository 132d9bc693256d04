package backup

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kalambet/recents/internal/recent"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store keeps save snapshots in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the backup database in dataDir and runs pending
// migrations. Pass ":memory:" for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "backups.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and avoids
	// "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type migration struct {
	version int
	file    string
}

// pendingMigrations lists the embedded migrations newer than the applied
// set, oldest first.
func pendingMigrations(applied map[int]bool) ([]migration, error) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	var out []migration
	for _, f := range files {
		v, err := parseMigrationVersion(path.Base(f))
		if err != nil {
			return nil, err
		}
		if !applied[v] {
			out = append(out, migration{version: v, file: f})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	versions, err := s.AppliedMigrations()
	if err != nil {
		return err
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	pending, err := pendingMigrations(applied)
	if err != nil {
		return err
	}
	for _, m := range pending {
		if err := s.apply(m); err != nil {
			return err
		}
	}
	return nil
}

// apply runs one migration and records it in the same transaction.
func (s *Store) apply(m migration) (err error) {
	body, err := migrationsFS.ReadFile(m.file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", m.file, err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: %w", m.version, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	if _, err = tx.Exec(string(body)); err != nil {
		return fmt.Errorf("applying migration %d: %w", m.version, err)
	}
	if _, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("recording migration %d: %w", m.version, err)
	}
	return tx.Commit()
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Save records a snapshot of location and returns its ID.
func (s *Store) Save(location string, records []recent.Record) (string, error) {
	id := uuid.NewString()
	createdAt := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO snapshots (id, location, created_at, entry_count) VALUES (?, ?, ?, ?)`,
		id, location, createdAt, len(records)); err != nil {
		return "", fmt.Errorf("inserting snapshot: %w", err)
	}
	for i, r := range records {
		value := r.Value
		if value == nil {
			value = []byte{}
		}
		if _, err := tx.Exec(`INSERT INTO snapshot_records (snapshot_id, position, key, value) VALUES (?, ?, ?, ?)`,
			id, i, r.Key, value); err != nil {
			return "", fmt.Errorf("inserting snapshot record %s: %w", r.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing snapshot: %w", err)
	}
	return id, nil
}

// List returns the newest snapshots first, without records. An empty
// location lists every namespace.
func (s *Store) List(location string, limit int) ([]Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, location, created_at, entry_count FROM snapshots
		WHERE ? = '' OR location = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, location, location, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var snap Snapshot
	var createdAt string
	if err := row.Scan(&snap.ID, &snap.Location, &createdAt, &snap.Count); err != nil {
		return Snapshot{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parsing created_at: %w", err)
	}
	snap.CreatedAt = t
	return snap, nil
}

// Get returns the snapshot whose ID is id or starts with it, records
// included.
func (s *Store) Get(id string) (Snapshot, error) {
	if id == "" {
		return Snapshot{}, ErrNotFound
	}
	rows, err := s.db.Query(`
		SELECT id, location, created_at, entry_count FROM snapshots
		WHERE id = ? OR substr(id, 1, length(?)) = ? LIMIT 2`, id, id, id)
	if err != nil {
		return Snapshot{}, err
	}
	var matches []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			rows.Close()
			return Snapshot{}, err
		}
		matches = append(matches, snap)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	switch len(matches) {
	case 0:
		return Snapshot{}, ErrNotFound
	case 1:
	default:
		return Snapshot{}, fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}

	snap := matches[0]
	recs, err := s.db.Query(`SELECT key, value FROM snapshot_records WHERE snapshot_id = ? ORDER BY position ASC`, snap.ID)
	if err != nil {
		return Snapshot{}, err
	}
	defer recs.Close()
	for recs.Next() {
		var r recent.Record
		if err := recs.Scan(&r.Key, &r.Value); err != nil {
			return Snapshot{}, err
		}
		snap.Records = append(snap.Records, r)
	}
	return snap, recs.Err()
}

// Prune deletes all but the newest keep snapshots of location and returns
// how many were removed. keep <= 0 keeps everything.
func (s *Store) Prune(location string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	rows, err := s.db.Query(`
		SELECT id FROM snapshots WHERE location = ?
		ORDER BY created_at DESC, rowid DESC LIMIT -1 OFFSET ?`, location, keep)
	if err != nil {
		return 0, err
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		stale = append(stale, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	for _, id := range stale {
		if _, err := tx.Exec(`DELETE FROM snapshot_records WHERE snapshot_id = ?`, id); err != nil {
			return 0, fmt.Errorf("pruning snapshot %s: %w", id, err)
		}
		if _, err := tx.Exec(`DELETE FROM snapshots WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("pruning snapshot %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(stale), nil
}
