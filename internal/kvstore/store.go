// Package kvstore adapts per-user configuration stores to a single flat
// key/value namespace contract: open a namespace, enumerate its value names,
// and get, set or delete raw values by exact name.
package kvstore

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNotFound is returned when a namespace or value does not exist.
	ErrNotFound = errors.New("not found")
	// ErrReadOnly is returned when writing through a namespace opened read-only.
	ErrReadOnly = errors.New("namespace opened read-only")
	// ErrClosed is returned when using a namespace after Close.
	ErrClosed = errors.New("namespace closed")
	// ErrCannotCreate is returned by Create for stores whose namespaces
	// only the host application creates.
	ErrCannotCreate = errors.New("store cannot create namespaces")
)

// Store opens namespaces by location name.
type Store interface {
	Open(location string, writable bool) (Namespace, error)
}

// Namespace is an open handle onto one flat key space. Keys returns names in
// the store's enumeration order. Writes may be buffered until Close, so a
// writable handle's Close error must be checked.
type Namespace interface {
	Keys() ([]string, error)
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Release closes the store if it holds process-level resources.
func Release(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Creator is implemented by stores that can create an empty namespace.
// Creating one that exists is a no-op.
type Creator interface {
	Create(location string) error
}

// Create makes an empty namespace at location on stores that support it.
func Create(s Store, location string) error {
	c, ok := s.(Creator)
	if !ok {
		return ErrCannotCreate
	}
	if err := c.Create(location); err != nil {
		return fmt.Errorf("creating namespace %s: %w", location, err)
	}
	return nil
}

// Aborter is implemented by namespaces that buffer writes until Close.
// Abort drops the pending writes; a later Close is a no-op.
type Aborter interface {
	Abort()
}

// Abort drops buffered writes on ns if it supports it.
func Abort(ns Namespace) {
	if a, ok := ns.(Aborter); ok {
		a.Abort()
	}
}
