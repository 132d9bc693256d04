package recent

import (
	"fmt"

	"github.com/kalambet/recents/internal/kvstore"
)

// Restore replaces the persisted list with raw records, such as a backup
// snapshot, without decoding them. Every key must carry the layout prefix
// and appear once. The values being replaced are handed to snap first when
// it is non-nil.
func Restore(store kvstore.Store, layout Layout, records []Record, snap Snapshotter) error {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if !layout.matches(r.Key) {
			return fmt.Errorf("restoring: key %q lacks prefix %q", r.Key, layout.Prefix)
		}
		if seen[r.Key] {
			return fmt.Errorf("restoring: %w %q", ErrDuplicateKey, r.Key)
		}
		seen[r.Key] = true
	}
	return rewrite(store, layout, snap, records)
}
