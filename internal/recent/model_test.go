package recent

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/kalambet/recents/internal/kvstore"
)

const testLocation = `Software\Unity Technologies\Unity Editor 5.x`

var testLayout = Layout{Location: testLocation, Prefix: testPrefix}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedIndexed stores paths under prefix-N names, NUL-terminated.
func seedIndexed(mem *kvstore.Memory, paths ...string) {
	mem.Create(testLocation)
	for i, p := range paths {
		mem.Put(testLocation, IndexScheme{}.Key(testPrefix, Entry{}, i), []byte(p+"\x00"))
	}
}

func newTestModel(t *testing.T, mem *kvstore.Memory, opts ...Option) *Model {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	m := NewModel(mem, testLayout, opts...)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func paths(m *Model) []string {
	var out []string
	for _, e := range m.Entries() {
		out = append(out, e.Path)
	}
	return out
}

func TestLoad_NamespaceMissing(t *testing.T) {
	mem := kvstore.NewMemory()
	m := newTestModel(t, mem)

	if m.State() != LoadFailed {
		t.Errorf("State = %v, want %v", m.State(), LoadFailed)
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
}

func TestSave_GateClosedAfterMissingNamespace(t *testing.T) {
	mem := kvstore.NewMemory()
	m := newTestModel(t, mem)

	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	st := mem.Stats()
	if st.Sets != 0 || st.Deletes != 0 {
		t.Errorf("save wrote to store: %+v", st)
	}
	if names, _ := mem.Dump(testLocation); names != nil {
		t.Errorf("save created namespace with %v", names)
	}
}

func TestSave_GateClosedBeforeLoad(t *testing.T) {
	mem := kvstore.NewMemory()
	seedIndexed(mem, "/a/One")
	m := NewModel(mem, testLayout, WithLogger(quietLogger()))

	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if st := mem.Stats(); st.Opens != 0 {
		t.Errorf("unloaded save touched store: %+v", st)
	}
}

func TestLoad_OrderFilterAndSkip(t *testing.T) {
	mem := kvstore.NewMemory()
	mem.Create(testLocation)
	mem.Put(testLocation, testPrefix+"-2", []byte("/p/Two\x00"))
	mem.Put(testLocation, "UnrelatedSetting", []byte("1"))
	mem.Put(testLocation, testPrefix+"-0", []byte("/p/Zero\x00"))
	mem.Put(testLocation, testPrefix+"-1", []byte{0xff, 0xfe, 0})

	m := newTestModel(t, mem)

	if m.State() != Loaded {
		t.Fatalf("State = %v, want loaded", m.State())
	}
	want := []string{"/p/Two", "/p/Zero"}
	if got := paths(m); !reflect.DeepEqual(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}
	if m.Scheme().Name() != SchemeIndex {
		t.Errorf("Scheme = %s, want index", m.Scheme().Name())
	}
}

func TestLoad_StoreErrorIsReturned(t *testing.T) {
	boom := errors.New("access denied")
	m := NewModel(failingStore{err: boom}, testLayout, WithLogger(quietLogger()))

	err := m.Load()
	if !errors.Is(err, boom) {
		t.Fatalf("Load err = %v, want %v", err, boom)
	}
	if m.State() != LoadFailed {
		t.Errorf("State = %v, want load failed", m.State())
	}
}

func TestRevert_IdempotentAndDiscardsEdits(t *testing.T) {
	mem := kvstore.NewMemory()
	seedIndexed(mem, "/a/One", "/a/Two", "/a/Three")
	m := newTestModel(t, mem)
	original := m.Entries()

	m.Delete([]int{0})
	m.MoveDown([]int{0})

	if err := m.Revert(); err != nil {
		t.Fatalf("Revert: %v", err)
	}
	first := m.Entries()
	if err := m.Revert(); err != nil {
		t.Fatalf("Revert: %v", err)
	}
	second := m.Entries()

	if !reflect.DeepEqual(first, original) {
		t.Errorf("revert = %v, want %v", first, original)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("revert not idempotent: %v vs %v", first, second)
	}
}

func TestRevert_TogglesStateWhenNamespaceDisappears(t *testing.T) {
	mem := kvstore.NewMemory()
	seedIndexed(mem, "/a/One")
	m := newTestModel(t, mem)
	if m.State() != Loaded {
		t.Fatalf("State = %v, want loaded", m.State())
	}

	mem.Drop(testLocation)
	if err := m.Revert(); err != nil {
		t.Fatalf("Revert: %v", err)
	}
	if m.State() != LoadFailed || m.Len() != 0 {
		t.Errorf("after drop: state %v, len %d", m.State(), m.Len())
	}
}

func TestMove_UpThenDownRestoresOrder(t *testing.T) {
	mem := kvstore.NewMemory()
	seedIndexed(mem, "/a/One", "/a/Two", "/a/Three", "/a/Four")
	m := newTestModel(t, mem)
	original := m.Entries()

	for i := 1; i < m.Len(); i++ {
		to, ok := m.MoveUp([]int{i})
		if !ok || to != i-1 {
			t.Fatalf("MoveUp(%d) = %d, %v", i, to, ok)
		}
		back, ok := m.MoveDown([]int{to})
		if !ok || back != i {
			t.Fatalf("MoveDown(%d) = %d, %v", to, back, ok)
		}
		if got := m.Entries(); !reflect.DeepEqual(got, original) {
			t.Fatalf("order after up/down at %d = %v, want %v", i, got, original)
		}
	}
}

func TestMove_Guards(t *testing.T) {
	mem := kvstore.NewMemory()
	seedIndexed(mem, "/a/One", "/a/Two", "/a/Three")
	m := newTestModel(t, mem)
	original := m.Entries()

	tests := []struct {
		name string
		fn   func([]int) (int, bool)
		sel  []int
	}{
		{"up no selection", m.MoveUp, nil},
		{"down no selection", m.MoveDown, []int{}},
		{"up multi", m.MoveUp, []int{1, 2}},
		{"down multi", m.MoveDown, []int{0, 1}},
		{"up first", m.MoveUp, []int{0}},
		{"down last", m.MoveDown, []int{2}},
		{"up out of range", m.MoveUp, []int{7}},
		{"down negative", m.MoveDown, []int{-1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := tt.fn(tt.sel); ok {
				t.Error("move reported success")
			}
			if got := m.Entries(); !reflect.DeepEqual(got, original) {
				t.Errorf("list changed: %v", got)
			}
		})
	}
}

func TestMove_DuplicatePositionCountsOnce(t *testing.T) {
	mem := kvstore.NewMemory()
	seedIndexed(mem, "/a/One", "/a/Two")
	m := newTestModel(t, mem)

	if to, ok := m.MoveUp([]int{1, 1}); !ok || to != 0 {
		t.Fatalf("MoveUp = %d, %v", to, ok)
	}
	if got := paths(m); !reflect.DeepEqual(got, []string{"/a/Two", "/a/One"}) {
		t.Errorf("paths = %v", got)
	}
}

func TestDelete_RemovesExactlyOne(t *testing.T) {
	all := []string{"/a/One", "/a/Two", "/a/Three", "/a/Four"}
	for i := range all {
		mem := kvstore.NewMemory()
		seedIndexed(mem, all...)
		m := newTestModel(t, mem)

		if n := m.Delete([]int{i}); n != 1 {
			t.Fatalf("Delete({%d}) removed %d", i, n)
		}
		if m.Len() != len(all)-1 {
			t.Fatalf("Len = %d, want %d", m.Len(), len(all)-1)
		}
		for _, p := range paths(m) {
			if p == all[i] {
				t.Errorf("entry %q still present", p)
			}
		}
	}
}

func TestDelete_SelectionSet(t *testing.T) {
	mem := kvstore.NewMemory()
	seedIndexed(mem, "/a/One", "/a/Two", "/a/Three", "/a/Four")
	m := newTestModel(t, mem)

	if n := m.Delete(nil); n != 0 {
		t.Errorf("Delete(nil) removed %d", n)
	}
	if n := m.Delete([]int{3, 0, 3, 9, -1}); n != 2 {
		t.Errorf("Delete removed %d, want 2", n)
	}
	if got := paths(m); !reflect.DeepEqual(got, []string{"/a/Two", "/a/Three"}) {
		t.Errorf("paths = %v", got)
	}
}

func TestSave_IndexSchemeAfterDeletingMiddle(t *testing.T) {
	mem := kvstore.NewMemory()
	seedIndexed(mem, "/a/One", "/a/Two", "/a/Three")
	m := newTestModel(t, mem)

	m.Delete([]int{1})
	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	names, values := mem.Dump(testLocation)
	wantNames := []string{testPrefix + "-0", testPrefix + "-1"}
	if !reflect.DeepEqual(names, wantNames) {
		t.Fatalf("keys = %v, want %v", names, wantNames)
	}
	if string(values[testPrefix+"-0"]) != "/a/One\x00" {
		t.Errorf("-0 = %q", values[testPrefix+"-0"])
	}
	if string(values[testPrefix+"-1"]) != "/a/Three\x00" {
		t.Errorf("-1 = %q", values[testPrefix+"-1"])
	}
}

func TestSave_HashSchemeKeepsIdentityAcrossMoves(t *testing.T) {
	mem := kvstore.NewMemory()
	mem.Create(testLocation)
	mem.Put(testLocation, testPrefix+"-0_h111", []byte("/a/One\x00"))
	mem.Put(testLocation, testPrefix+"-1_h222", []byte("/a/Two\x00"))
	mem.Put(testLocation, "OtherPref", []byte("keep"))
	m := newTestModel(t, mem)

	if m.Scheme().Name() != SchemeHash {
		t.Fatalf("Scheme = %s, want hash", m.Scheme().Name())
	}
	m.MoveUp([]int{1})
	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	names, values := mem.Dump(testLocation)
	wantNames := []string{"OtherPref", testPrefix + "-1_h222", testPrefix + "-0_h111"}
	if !reflect.DeepEqual(names, wantNames) {
		t.Fatalf("keys = %v, want %v", names, wantNames)
	}
	if string(values[testPrefix+"-1_h222"]) != "/a/Two\x00" {
		t.Errorf("hash key lost its path: %q", values[testPrefix+"-1_h222"])
	}
	if string(values["OtherPref"]) != "keep" {
		t.Errorf("unrelated value changed: %q", values["OtherPref"])
	}
}

func TestSave_ForcedScheme(t *testing.T) {
	mem := kvstore.NewMemory()
	mem.Create(testLocation)
	mem.Put(testLocation, testPrefix+"-0_h111", []byte("/a/One\x00"))
	m := newTestModel(t, mem, WithScheme(IndexScheme{}))

	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	names, _ := mem.Dump(testLocation)
	if !reflect.DeepEqual(names, []string{testPrefix + "-0"}) {
		t.Errorf("keys = %v", names)
	}
}

func TestSave_DuplicateKeyTouchesNothing(t *testing.T) {
	mem := kvstore.NewMemory()
	mem.Create(testLocation)
	mem.Put(testLocation, testPrefix, []byte("/a/One\x00"))
	mem.Put(testLocation, testPrefix+"Old", []byte("/a/Two\x00"))
	m := newTestModel(t, mem)

	err := m.Save()
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("Save err = %v, want ErrDuplicateKey", err)
	}
	if st := mem.Stats(); st.Deletes != 0 || st.Sets != 0 {
		t.Errorf("store modified: %+v", st)
	}
}

func TestSave_WriteFailuresSurface(t *testing.T) {
	boom := errors.New("permission denied")
	tests := []struct {
		name   string
		inject func(*kvstore.Memory)
		op     string
	}{
		{"open", func(m *kvstore.Memory) { m.FailOpenWritable = boom }, "opening"},
		{"delete", func(m *kvstore.Memory) { m.FailDelete = boom }, "deleting"},
		{"set", func(m *kvstore.Memory) { m.FailSet = boom }, "writing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := kvstore.NewMemory()
			seedIndexed(mem, "/a/One", "/a/Two")
			m := newTestModel(t, mem)
			tt.inject(mem)

			err := m.Save()
			var we *WriteError
			if !errors.As(err, &we) {
				t.Fatalf("Save err = %v, want *WriteError", err)
			}
			if we.Op != tt.op {
				t.Errorf("Op = %q, want %q", we.Op, tt.op)
			}
			if !errors.Is(err, boom) {
				t.Errorf("err does not wrap cause: %v", err)
			}
		})
	}
}

type recordingSnapshotter struct {
	location string
	records  []Record
	err      error
}

func (r *recordingSnapshotter) Snapshot(location string, records []Record) error {
	r.location = location
	r.records = records
	return r.err
}

func TestSave_SnapshotsPreviousValues(t *testing.T) {
	mem := kvstore.NewMemory()
	seedIndexed(mem, "/a/One", "/a/Two")
	snap := &recordingSnapshotter{}
	m := newTestModel(t, mem, WithSnapshotter(snap))

	m.Delete([]int{0})
	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if snap.location != testLocation {
		t.Errorf("snapshot location = %q", snap.location)
	}
	want := []Record{
		{Key: testPrefix + "-0", Value: []byte("/a/One\x00")},
		{Key: testPrefix + "-1", Value: []byte("/a/Two\x00")},
	}
	if !reflect.DeepEqual(snap.records, want) {
		t.Errorf("snapshot = %v, want %v", snap.records, want)
	}
}

func TestSave_SnapshotFailureAbortsBeforeDelete(t *testing.T) {
	mem := kvstore.NewMemory()
	seedIndexed(mem, "/a/One")
	diskFull := errors.New("disk full")
	snap := &recordingSnapshotter{err: diskFull}
	m := newTestModel(t, mem, WithSnapshotter(snap))

	err := m.Save()
	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("Save error = %v, want *WriteError", err)
	}
	if werr.Op != "recording backup" || !errors.Is(err, diskFull) {
		t.Errorf("WriteError = %+v", werr)
	}
	if st := mem.Stats(); st.Deletes != 0 {
		t.Errorf("deletes = %d, want 0", st.Deletes)
	}
}

func TestRestore(t *testing.T) {
	mem := kvstore.NewMemory()
	seedIndexed(mem, "/a/New")
	records := []Record{
		{Key: testPrefix + "-0", Value: []byte("/a/Old1\x00")},
		{Key: testPrefix + "-1", Value: []byte{0xff}},
	}

	if err := Restore(mem, testLayout, records, nil); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	names, values := mem.Dump(testLocation)
	if !reflect.DeepEqual(names, []string{testPrefix + "-0", testPrefix + "-1"}) {
		t.Fatalf("keys = %v", names)
	}
	if string(values[testPrefix+"-1"]) != "\xff" {
		t.Errorf("raw value not restored verbatim: %q", values[testPrefix+"-1"])
	}
}

func TestRestore_RejectsForeignAndDuplicateKeys(t *testing.T) {
	mem := kvstore.NewMemory()
	seedIndexed(mem, "/a/New")

	if err := Restore(mem, testLayout, []Record{{Key: "Other", Value: nil}}, nil); err == nil {
		t.Error("expected error for key without prefix")
	}
	dup := []Record{{Key: testPrefix + "-0"}, {Key: testPrefix + "-0"}}
	if err := Restore(mem, testLayout, dup, nil); !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("err = %v, want ErrDuplicateKey", err)
	}
	if st := mem.Stats(); st.Deletes != 0 {
		t.Errorf("store modified: %+v", st)
	}
}

type failingStore struct{ err error }

func (f failingStore) Open(string, bool) (kvstore.Namespace, error) { return nil, f.err }
