package backup

import (
	"errors"
	"time"

	"github.com/kalambet/recents/internal/recent"
)

var (
	// ErrNotFound is returned when no snapshot matches an ID.
	ErrNotFound = errors.New("snapshot not found")
	// ErrAmbiguous is returned when an ID prefix matches several snapshots.
	ErrAmbiguous = errors.New("snapshot ID prefix is ambiguous")
)

// Snapshot is the set of recent-list values persisted in a namespace at the
// moment a save replaced them. Records is only filled by Get.
type Snapshot struct {
	ID        string
	Location  string
	CreatedAt time.Time
	Count     int
	Records   []recent.Record
}
