package kvstore

import "sync"

// MemoryStats counts calls made against a Memory store.
type MemoryStats struct {
	Opens   int
	Sets    int
	Deletes int
}

// Memory is an in-process Store that preserves insertion order, with call
// counters and injectable failures for tests.
type Memory struct {
	mu         sync.Mutex
	namespaces map[string]*memNamespace
	stats      MemoryStats

	// FailOpenWritable, FailSet and FailDelete inject errors into the
	// corresponding operations when non-nil.
	FailOpenWritable error
	FailSet          error
	FailDelete       error
}

type memNamespace struct {
	names  []string
	values map[string][]byte
}

// NewMemory returns an empty Memory store with no namespaces.
func NewMemory() *Memory {
	return &Memory{namespaces: make(map[string]*memNamespace)}
}

// Create makes an empty namespace at location if none exists.
func (m *Memory) Create(location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(location)
	return nil
}

// Drop removes the namespace at location.
func (m *Memory) Drop(location string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.namespaces, location)
}

// Put writes a value directly, creating the namespace if needed.
func (m *Memory) Put(location, key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(location).set(key, value)
}

// Dump returns the namespace contents in enumeration order.
func (m *Memory) Dump(location string) ([]string, map[string][]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.namespaces[location]
	if !ok {
		return nil, nil
	}
	names := append([]string(nil), ns.names...)
	values := make(map[string][]byte, len(ns.values))
	for k, v := range ns.values {
		values[k] = append([]byte(nil), v...)
	}
	return names, values
}

// Stats returns a copy of the call counters.
func (m *Memory) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Memory) ensure(location string) *memNamespace {
	ns, ok := m.namespaces[location]
	if !ok {
		ns = &memNamespace{values: make(map[string][]byte)}
		m.namespaces[location] = ns
	}
	return ns
}

func (ns *memNamespace) set(key string, value []byte) {
	if _, ok := ns.values[key]; !ok {
		ns.names = append(ns.names, key)
	}
	ns.values[key] = append([]byte(nil), value...)
}

func (ns *memNamespace) remove(key string) bool {
	if _, ok := ns.values[key]; !ok {
		return false
	}
	delete(ns.values, key)
	for i, n := range ns.names {
		if n == key {
			ns.names = append(ns.names[:i], ns.names[i+1:]...)
			break
		}
	}
	return true
}

func (m *Memory) Open(location string, writable bool) (Namespace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Opens++
	if writable && m.FailOpenWritable != nil {
		return nil, m.FailOpenWritable
	}
	if _, ok := m.namespaces[location]; !ok {
		return nil, ErrNotFound
	}
	return &memHandle{store: m, location: location, writable: writable}, nil
}

type memHandle struct {
	store    *Memory
	location string
	writable bool
	closed   bool
}

func (h *memHandle) ns() (*memNamespace, error) {
	if h.closed {
		return nil, ErrClosed
	}
	ns, ok := h.store.namespaces[h.location]
	if !ok {
		return nil, ErrNotFound
	}
	return ns, nil
}

func (h *memHandle) Keys() ([]string, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	ns, err := h.ns()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), ns.names...), nil
}

func (h *memHandle) Get(key string) ([]byte, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	ns, err := h.ns()
	if err != nil {
		return nil, err
	}
	v, ok := ns.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (h *memHandle) Set(key string, value []byte) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	ns, err := h.ns()
	if err != nil {
		return err
	}
	if !h.writable {
		return ErrReadOnly
	}
	h.store.stats.Sets++
	if h.store.FailSet != nil {
		return h.store.FailSet
	}
	ns.set(key, value)
	return nil
}

func (h *memHandle) Delete(key string) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	ns, err := h.ns()
	if err != nil {
		return err
	}
	if !h.writable {
		return ErrReadOnly
	}
	h.store.stats.Deletes++
	if h.store.FailDelete != nil {
		return h.store.FailDelete
	}
	if !ns.remove(key) {
		return ErrNotFound
	}
	return nil
}

func (h *memHandle) Close() error {
	h.closed = true
	return nil
}
