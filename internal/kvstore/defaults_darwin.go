//go:build darwin

package kvstore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"howett.net/plist"
)

// DefaultsStore maps namespaces to UserDefaults domains, driven through the
// `defaults` CLI.
type DefaultsStore struct {
	run func(args ...string) ([]byte, error)
}

// NewDefaultsStore returns a store backed by /usr/bin/defaults.
func NewDefaultsStore() *DefaultsStore {
	return &DefaultsStore{run: runDefaults}
}

// errNoDomain is the exit status 1 defaults uses for a missing domain or key.
var errNoDomain = errors.New("domain or key does not exist")

func runDefaults(args ...string) ([]byte, error) {
	cmd := exec.Command("defaults", args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() == 1 {
				err = errNoDomain
			}
			return nil, fmt.Errorf("defaults %s: %w, output: %s", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("defaults %s: %w", args[0], err)
	}
	return out, nil
}

func (s *DefaultsStore) Open(domain string, writable bool) (Namespace, error) {
	out, err := s.run("export", domain, "-")
	if err != nil {
		if errors.Is(err, errNoDomain) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("exporting defaults domain %s: %w", domain, err)
	}
	values := make(map[string]any)
	if _, err := plist.Unmarshal(out, &values); err != nil {
		return nil, fmt.Errorf("parsing defaults domain %s: %w", domain, err)
	}
	// export prints an empty dictionary for a domain that was never written.
	if len(values) == 0 {
		return nil, ErrNotFound
	}
	return &defaultsNamespace{store: s, domain: domain, writable: writable, values: values}, nil
}

type defaultsNamespace struct {
	store    *DefaultsStore
	domain   string
	writable bool
	closed   bool
	values   map[string]any
}

func (n *defaultsNamespace) check(write bool) error {
	if n.closed {
		return ErrClosed
	}
	if write && !n.writable {
		return ErrReadOnly
	}
	return nil
}

// Keys returns names in a stable order, since `defaults export` does not
// keep write order. Names ending in "-<number>" come first, grouped by stem
// and ordered by number, so "x-2" precedes "x-10". Other names follow
// alphabetically.
func (n *defaultsNamespace) Keys() ([]string, error) {
	if err := n.check(false); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(n.values))
	for k := range n.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessDefaultsKey(keys[i], keys[j]) })
	return keys, nil
}

// indexSuffix splits "stem-<digits>" into its stem and number.
func indexSuffix(name string) (string, uint64, bool) {
	dash := strings.LastIndexByte(name, '-')
	if dash < 0 || dash == len(name)-1 {
		return "", 0, false
	}
	num, err := strconv.ParseUint(name[dash+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return name[:dash], num, true
}

func lessDefaultsKey(a, b string) bool {
	as, an, aok := indexSuffix(a)
	bs, bn, bok := indexSuffix(b)
	switch {
	case aok && bok:
		if as != bs {
			return as < bs
		}
		if an != bn {
			return an < bn
		}
		return a < b
	case aok != bok:
		return aok
	default:
		return a < b
	}
}

func (n *defaultsNamespace) Get(key string) ([]byte, error) {
	if err := n.check(false); err != nil {
		return nil, err
	}
	v, ok := n.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	switch val := v.(type) {
	case string:
		return []byte(val), nil
	case []byte:
		return append([]byte(nil), val...), nil
	default:
		return nil, fmt.Errorf("value %s in %s has unsupported type %T", key, n.domain, v)
	}
}

func (n *defaultsNamespace) Set(key string, value []byte) error {
	if err := n.check(true); err != nil {
		return err
	}
	var err error
	if utf8.Valid(value) && !strings.ContainsRune(string(value), 0) {
		_, err = n.store.run("write", n.domain, key, "-string", string(value))
		if err == nil {
			n.values[key] = string(value)
		}
	} else {
		_, err = n.store.run("write", n.domain, key, "-data", hex.EncodeToString(value))
		if err == nil {
			n.values[key] = append([]byte(nil), value...)
		}
	}
	return err
}

func (n *defaultsNamespace) Delete(key string) error {
	if err := n.check(true); err != nil {
		return err
	}
	if _, ok := n.values[key]; !ok {
		return ErrNotFound
	}
	if _, err := n.store.run("delete", n.domain, key); err != nil {
		return err
	}
	delete(n.values, key)
	return nil
}

func (n *defaultsNamespace) Close() error {
	n.closed = true
	return nil
}
