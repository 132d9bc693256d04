package kvstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/cockroachdb/pebble"
)

// PebbleStore keeps namespaces in a pebble database. Each value is keyed
// "<location>\x00<name>" and prefixed with an 8-byte insertion sequence so
// enumeration follows insertion order rather than byte order. The bare
// "<location>\x00" key marks that the namespace exists.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a pebble database in dir.
func OpenPebble(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble at %s: %w", dir, err)
	}
	return &PebbleStore{db: db}, nil
}

// Close closes the underlying database.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}

// Create marks location as an existing namespace.
func (s *PebbleStore) Create(location string) error {
	return s.db.Set(markerKey(location), nil, pebble.Sync)
}

func (s *PebbleStore) Open(location string, writable bool) (Namespace, error) {
	_, closer, err := s.db.Get(markerKey(location))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("opening namespace %s: %w", location, err)
	}
	closer.Close()

	n := &pebbleNamespace{location: location, reader: s.db}
	if writable {
		n.batch = s.db.NewIndexedBatch()
		n.reader = n.batch
	}
	if n.next, err = n.maxSeq(); err != nil {
		n.discard()
		return nil, err
	}
	return n, nil
}

type pebbleNamespace struct {
	location string
	reader   pebble.Reader
	batch    *pebble.Batch
	next     uint64
	closed   bool
}

type pebbleEntry struct {
	name string
	seq  uint64
}

func markerKey(location string) []byte {
	return append([]byte(location), 0)
}

func (n *pebbleNamespace) valueKey(name string) []byte {
	return append(markerKey(n.location), name...)
}

// scan visits every named value in the namespace in byte order.
func (n *pebbleNamespace) scan(fn func(name string, seq uint64)) error {
	lower := markerKey(n.location)
	upper := append([]byte(n.location), 1)
	iter, err := n.reader.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		name := string(iter.Key()[len(lower):])
		if name == "" {
			continue
		}
		val := iter.Value()
		if len(val) < 8 {
			return fmt.Errorf("corrupt value for %q in %s", name, n.location)
		}
		fn(name, binary.BigEndian.Uint64(val[:8]))
	}
	return iter.Error()
}

func (n *pebbleNamespace) maxSeq() (uint64, error) {
	var max uint64
	err := n.scan(func(_ string, seq uint64) {
		if seq > max {
			max = seq
		}
	})
	return max + 1, err
}

func (n *pebbleNamespace) check(write bool) error {
	if n.closed {
		return ErrClosed
	}
	if write && n.batch == nil {
		return ErrReadOnly
	}
	return nil
}

func (n *pebbleNamespace) Keys() ([]string, error) {
	if err := n.check(false); err != nil {
		return nil, err
	}
	var entries []pebbleEntry
	if err := n.scan(func(name string, seq uint64) {
		entries = append(entries, pebbleEntry{name: name, seq: seq})
	}); err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.name
	}
	return keys, nil
}

func (n *pebbleNamespace) get(name string) ([]byte, error) {
	val, closer, err := n.reader.Get(n.valueKey(name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	if len(val) < 8 {
		return nil, fmt.Errorf("corrupt value for %q in %s", name, n.location)
	}
	return append([]byte(nil), val...), nil
}

func (n *pebbleNamespace) Get(key string) ([]byte, error) {
	if err := n.check(false); err != nil {
		return nil, err
	}
	val, err := n.get(key)
	if err != nil {
		return nil, err
	}
	return val[8:], nil
}

func (n *pebbleNamespace) Set(key string, value []byte) error {
	if err := n.check(true); err != nil {
		return err
	}
	seq := n.next
	if old, err := n.get(key); err == nil {
		seq = binary.BigEndian.Uint64(old[:8])
	} else if errors.Is(err, ErrNotFound) {
		n.next++
	} else {
		return err
	}
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf, seq)
	copy(buf[8:], value)
	return n.batch.Set(n.valueKey(key), buf, nil)
}

func (n *pebbleNamespace) Delete(key string) error {
	if err := n.check(true); err != nil {
		return err
	}
	if _, err := n.get(key); err != nil {
		return err
	}
	return n.batch.Delete(n.valueKey(key), nil)
}

func (n *pebbleNamespace) discard() {
	if n.batch != nil {
		n.batch.Close()
	}
}

func (n *pebbleNamespace) Abort() {
	if n.closed {
		return
	}
	n.closed = true
	n.discard()
}

// Close commits buffered writes atomically.
func (n *pebbleNamespace) Close() error {
	if n.closed {
		return nil
	}
	n.closed = true
	if n.batch == nil {
		return nil
	}
	defer n.batch.Close()
	if n.batch.Empty() {
		return nil
	}
	if err := n.batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("committing namespace %s: %w", n.location, err)
	}
	return nil
}
