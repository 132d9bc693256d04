//go:build windows

package kvstore

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// RegistryStore maps namespaces to keys under HKEY_CURRENT_USER and values
// to registry values on those keys.
type RegistryStore struct {
	root registry.Key
}

// NewRegistryStore returns a store rooted at HKEY_CURRENT_USER.
func NewRegistryStore() *RegistryStore {
	return &RegistryStore{root: registry.CURRENT_USER}
}

// Create makes the key HKCU\<location> if it does not exist.
func (s *RegistryStore) Create(location string) error {
	k, _, err := registry.CreateKey(s.root, location, registry.QUERY_VALUE)
	if err != nil {
		return err
	}
	return k.Close()
}

func (s *RegistryStore) Open(location string, writable bool) (Namespace, error) {
	access := uint32(registry.QUERY_VALUE)
	if writable {
		access |= registry.SET_VALUE
	}
	k, err := registry.OpenKey(s.root, location, access)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("opening HKCU\\%s: %w", location, err)
	}
	return &registryNamespace{key: k, writable: writable}, nil
}

type registryNamespace struct {
	key      registry.Key
	writable bool
	closed   bool
}

func (n *registryNamespace) check(write bool) error {
	if n.closed {
		return ErrClosed
	}
	if write && !n.writable {
		return ErrReadOnly
	}
	return nil
}

func (n *registryNamespace) Keys() ([]string, error) {
	if err := n.check(false); err != nil {
		return nil, err
	}
	return n.key.ReadValueNames(0)
}

func (n *registryNamespace) Get(key string) ([]byte, error) {
	if err := n.check(false); err != nil {
		return nil, err
	}
	v, _, err := n.key.GetBinaryValue(key)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, registry.ErrNotExist):
		return nil, ErrNotFound
	case errors.Is(err, registry.ErrUnexpectedType):
		s, _, serr := n.key.GetStringValue(key)
		if serr != nil {
			return nil, serr
		}
		return []byte(s), nil
	default:
		return nil, err
	}
}

func (n *registryNamespace) Set(key string, value []byte) error {
	if err := n.check(true); err != nil {
		return err
	}
	return n.key.SetBinaryValue(key, value)
}

func (n *registryNamespace) Delete(key string) error {
	if err := n.check(true); err != nil {
		return err
	}
	if err := n.key.DeleteValue(key); err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (n *registryNamespace) Close() error {
	if n.closed {
		return nil
	}
	n.closed = true
	return n.key.Close()
}
