package backup

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kalambet/recents/internal/recent"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// steppingClock returns times one second apart so snapshot order is stable.
func steppingClock() func() time.Time {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func sampleRecords() []recent.Record {
	return []recent.Record{
		{Key: "RecentlyUsedProjectPaths-0", Value: []byte("/a/One\x00")},
		{Key: "RecentlyUsedProjectPaths-1", Value: []byte{0xff, 0x00}},
	}
}

// TestMigrationsIdempotent opens the same directory twice and verifies the
// migration is not re-applied.
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()
	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) == 0 || len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	s.now = steppingClock()

	id, err := s.Save("unity", sampleRecords())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Location != "unity" || got.Count != 2 {
		t.Errorf("snapshot = %+v", got)
	}
	if !reflect.DeepEqual(got.Records, sampleRecords()) {
		t.Errorf("Records = %v, want %v", got.Records, sampleRecords())
	}

	byPrefix, err := s.Get(id[:8])
	if err != nil {
		t.Fatalf("Get by prefix: %v", err)
	}
	if byPrefix.ID != id {
		t.Errorf("prefix lookup returned %s, want %s", byPrefix.ID, id)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get("deadbeef"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty id err = %v, want ErrNotFound", err)
	}
}

func TestList_NewestFirstAndFiltered(t *testing.T) {
	s := openTestStore(t)
	s.now = steppingClock()

	first, _ := s.Save("unity", sampleRecords())
	other, _ := s.Save("other", sampleRecords()[:1])
	second, _ := s.Save("unity", sampleRecords()[:1])

	snaps, err := s.List("unity", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 2 || snaps[0].ID != second || snaps[1].ID != first {
		t.Fatalf("List = %+v", snaps)
	}
	if snaps[0].Records != nil {
		t.Error("List should not load records")
	}

	all, _ := s.List("", 10)
	if len(all) != 3 || all[1].ID != other {
		t.Errorf("List(all) = %+v", all)
	}
}

func TestPrune_KeepsNewest(t *testing.T) {
	s := openTestStore(t)
	s.now = steppingClock()

	var ids []string
	for i := 0; i < 4; i++ {
		id, _ := s.Save("unity", sampleRecords())
		ids = append(ids, id)
	}
	s.Save("other", sampleRecords())

	n, err := s.Prune("unity", 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}
	snaps, _ := s.List("unity", 10)
	if len(snaps) != 2 || snaps[0].ID != ids[3] || snaps[1].ID != ids[2] {
		t.Errorf("remaining = %+v", snaps)
	}
	if _, err := s.Get(ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("pruned snapshot still readable: %v", err)
	}
	if others, _ := s.List("other", 10); len(others) != 1 {
		t.Errorf("prune touched other namespace: %+v", others)
	}
}

func TestRecorder(t *testing.T) {
	s := openTestStore(t)
	s.now = steppingClock()
	r := NewRecorder(s, 1)

	if err := r.Snapshot("unity", nil); err != nil {
		t.Fatalf("Snapshot(empty): %v", err)
	}
	if snaps, _ := s.List("unity", 10); len(snaps) != 0 {
		t.Errorf("empty snapshot recorded: %+v", snaps)
	}

	r.Snapshot("unity", sampleRecords())
	r.Snapshot("unity", sampleRecords()[:1])
	snaps, _ := s.List("unity", 10)
	if len(snaps) != 1 || snaps[0].Count != 1 {
		t.Errorf("after retention: %+v", snaps)
	}
}
