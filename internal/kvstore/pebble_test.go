package kvstore

import (
	"errors"
	"reflect"
	"testing"
)

func openTestPebble(t *testing.T) *PebbleStore {
	t.Helper()
	s, err := OpenPebble(t.TempDir())
	if err != nil {
		t.Fatalf("OpenPebble: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPebble_NamespaceMustExist(t *testing.T) {
	s := openTestPebble(t)
	if _, err := s.Open("unity", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := s.Create("unity"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	ns, err := s.Open("unity", false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ns.Close()
	keys, err := ns.Keys()
	if err != nil || len(keys) != 0 {
		t.Errorf("Keys = %v, %v", keys, err)
	}
}

func TestPebble_EnumeratesInInsertionOrder(t *testing.T) {
	s := openTestPebble(t)
	s.Create("unity")

	ns, _ := s.Open("unity", true)
	for _, k := range []string{"p-2", "p-10", "p-0"} {
		if err := ns.Set(k, []byte("/"+k)); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	// Overwrite keeps the original position.
	ns.Set("p-2", []byte("/again"))
	if err := ns.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ro, _ := s.Open("unity", false)
	defer ro.Close()
	keys, _ := ro.Keys()
	if !reflect.DeepEqual(keys, []string{"p-2", "p-10", "p-0"}) {
		t.Errorf("Keys = %v", keys)
	}
	v, _ := ro.Get("p-2")
	if string(v) != "/again" {
		t.Errorf("Get = %q", v)
	}
}

func TestPebble_DeleteThenRewriteAppends(t *testing.T) {
	s := openTestPebble(t)
	s.Create("unity")
	ns, _ := s.Open("unity", true)
	ns.Set("a", []byte("1"))
	ns.Set("b", []byte("2"))
	ns.Close()

	ns, _ = s.Open("unity", true)
	if err := ns.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ns.Set("a", []byte("3"))
	keys, _ := ns.Keys()
	if !reflect.DeepEqual(keys, []string{"b", "a"}) {
		t.Errorf("Keys within batch = %v", keys)
	}
	ns.Close()

	if err := (func() error {
		ro, _ := s.Open("unity", false)
		defer ro.Close()
		_, err := ro.Get("missing")
		return err
	})(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v", err)
	}
}

func TestPebble_AbortDiscardsBatch(t *testing.T) {
	s := openTestPebble(t)
	s.Create("unity")
	ns, _ := s.Open("unity", true)
	ns.Set("a", []byte("1"))
	Abort(ns)
	if err := ns.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ro, _ := s.Open("unity", false)
	defer ro.Close()
	if keys, _ := ro.Keys(); len(keys) != 0 {
		t.Errorf("aborted write persisted: %v", keys)
	}
}

func TestPebble_NamespacesAreIsolated(t *testing.T) {
	s := openTestPebble(t)
	s.Create("a")
	s.Create("ab")
	ns, _ := s.Open("ab", true)
	ns.Set("x", []byte("1"))
	ns.Close()

	ro, _ := s.Open("a", false)
	defer ro.Close()
	if keys, _ := ro.Keys(); len(keys) != 0 {
		t.Errorf("namespace a sees %v", keys)
	}
}
