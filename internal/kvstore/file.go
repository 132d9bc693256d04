package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileStore keeps namespaces in a single JSON document. Records are kept as
// ordered arrays so enumeration order survives a rewrite.
type FileStore struct {
	fs   afero.Fs
	path string
}

type fileRecord struct {
	Name  string `json:"name"`
	Value []byte `json:"value"`
}

type fileDoc struct {
	Namespaces map[string][]fileRecord `json:"namespaces"`
}

// NewFileStore returns a FileStore reading and writing path on fs.
func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

func (s *FileStore) load() (fileDoc, error) {
	doc := fileDoc{Namespaces: make(map[string][]fileRecord)}
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	if doc.Namespaces == nil {
		doc.Namespaces = make(map[string][]fileRecord)
	}
	return doc, nil
}

// save replaces the document atomically via a temp file and rename.
func (s *FileStore) save(doc fileDoc) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// Create makes an empty namespace at location if none exists.
func (s *FileStore) Create(location string) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Namespaces[location]; ok {
		return nil
	}
	doc.Namespaces[location] = []fileRecord{}
	return s.save(doc)
}

func (s *FileStore) Open(location string, writable bool) (Namespace, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	records, ok := doc.Namespaces[location]
	if !ok {
		return nil, ErrNotFound
	}
	return &fileNamespace{
		store:    s,
		location: location,
		writable: writable,
		records:  append([]fileRecord(nil), records...),
	}, nil
}

// fileNamespace buffers writes in memory and flushes them on Close.
type fileNamespace struct {
	store    *FileStore
	location string
	writable bool
	dirty    bool
	closed   bool
	records  []fileRecord
}

func (n *fileNamespace) index(key string) int {
	for i, r := range n.records {
		if r.Name == key {
			return i
		}
	}
	return -1
}

func (n *fileNamespace) check(write bool) error {
	if n.closed {
		return ErrClosed
	}
	if write && !n.writable {
		return ErrReadOnly
	}
	return nil
}

func (n *fileNamespace) Keys() ([]string, error) {
	if err := n.check(false); err != nil {
		return nil, err
	}
	keys := make([]string, len(n.records))
	for i, r := range n.records {
		keys[i] = r.Name
	}
	return keys, nil
}

func (n *fileNamespace) Get(key string) ([]byte, error) {
	if err := n.check(false); err != nil {
		return nil, err
	}
	i := n.index(key)
	if i < 0 {
		return nil, ErrNotFound
	}
	return append([]byte(nil), n.records[i].Value...), nil
}

func (n *fileNamespace) Set(key string, value []byte) error {
	if err := n.check(true); err != nil {
		return err
	}
	v := append([]byte(nil), value...)
	if i := n.index(key); i >= 0 {
		n.records[i].Value = v
	} else {
		n.records = append(n.records, fileRecord{Name: key, Value: v})
	}
	n.dirty = true
	return nil
}

func (n *fileNamespace) Delete(key string) error {
	if err := n.check(true); err != nil {
		return err
	}
	i := n.index(key)
	if i < 0 {
		return ErrNotFound
	}
	n.records = append(n.records[:i], n.records[i+1:]...)
	n.dirty = true
	return nil
}

func (n *fileNamespace) Abort() {
	n.dirty = false
	n.closed = true
}

func (n *fileNamespace) Close() error {
	if n.closed {
		return nil
	}
	n.closed = true
	if !n.dirty {
		return nil
	}
	// Re-read so namespaces other than ours are not clobbered.
	doc, err := n.store.load()
	if err != nil {
		return err
	}
	doc.Namespaces[n.location] = n.records
	return n.store.save(doc)
}
