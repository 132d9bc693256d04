package backup

import (
	"fmt"
	"log/slog"

	"github.com/kalambet/recents/internal/recent"
)

// Recorder snapshots values before a save and applies retention.
type Recorder struct {
	store *Store
	keep  int
}

var _ recent.Snapshotter = (*Recorder)(nil)

// NewRecorder returns a Recorder keeping the newest keep snapshots per
// namespace. keep <= 0 disables pruning.
func NewRecorder(store *Store, keep int) *Recorder {
	return &Recorder{store: store, keep: keep}
}

// Snapshot stores records. An empty namespace is not recorded.
func (r *Recorder) Snapshot(location string, records []recent.Record) error {
	if len(records) == 0 {
		return nil
	}
	id, err := r.store.Save(location, records)
	if err != nil {
		return err
	}
	slog.Debug("backup recorded", "id", id, "location", location, "entries", len(records))
	if n, err := r.store.Prune(location, r.keep); err != nil {
		return fmt.Errorf("pruning backups: %w", err)
	} else if n > 0 {
		slog.Debug("old backups pruned", "location", location, "removed", n)
	}
	return nil
}
