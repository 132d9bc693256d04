package recent

import (
	"fmt"
	"strconv"
	"strings"
)

// Scheme names.
const (
	SchemeAuto  = "auto"
	SchemeHash  = "hash"
	SchemeIndex = "index"
)

// KeyScheme maps entries to value names within the namespace.
type KeyScheme interface {
	Name() string
	// Suffix extracts the identity token stored on an Entry from an
	// existing value name.
	Suffix(prefix, key string) string
	// Key returns the value name an entry is saved under at position.
	Key(prefix string, e Entry, position int) string
}

// HashScheme names values prefix+token, where the token is everything from
// the last '-' of the original name ("-0_h1234567").
type HashScheme struct{}

func (HashScheme) Name() string { return SchemeHash }

func (HashScheme) Suffix(_, key string) string {
	if i := strings.LastIndexByte(key, '-'); i >= 0 {
		return key[i:]
	}
	return ""
}

func (HashScheme) Key(prefix string, e Entry, _ int) string {
	return prefix + e.Suffix
}

// IndexScheme names values prefix-N by list position.
type IndexScheme struct{}

func (IndexScheme) Name() string { return SchemeIndex }

func (IndexScheme) Suffix(string, string) string { return "" }

func (IndexScheme) Key(prefix string, _ Entry, position int) string {
	return prefix + "-" + strconv.Itoa(position)
}

// SchemeByName resolves a configured scheme. SchemeAuto returns nil.
func SchemeByName(name string) (KeyScheme, error) {
	switch name {
	case "", SchemeAuto:
		return nil, nil
	case SchemeHash:
		return HashScheme{}, nil
	case SchemeIndex:
		return IndexScheme{}, nil
	default:
		return nil, fmt.Errorf("unknown key scheme %q", name)
	}
}

// DetectScheme picks the scheme from the matching value names. All names of
// the form prefix-<digits> select IndexScheme; any other name selects
// HashScheme. With no names, fallback is returned.
func DetectScheme(prefix string, keys []string, fallback KeyScheme) KeyScheme {
	if len(keys) == 0 {
		return fallback
	}
	for _, k := range keys {
		if !isIndexKey(prefix, k) {
			return HashScheme{}
		}
	}
	return IndexScheme{}
}

func isIndexKey(prefix, key string) bool {
	rest, ok := strings.CutPrefix(key, prefix+"-")
	if !ok || rest == "" {
		return false
	}
	for _, c := range rest {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
