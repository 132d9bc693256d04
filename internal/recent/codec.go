package recent

import (
	"bytes"
	"unicode/utf8"
)

// Decode parses a stored value. Exactly one trailing NUL is stripped; its
// absence is tolerated and recorded in Entry.Terminated. The Suffix is left
// for the caller's key scheme.
func Decode(raw []byte) (Entry, error) {
	terminated := len(raw) > 0 && raw[len(raw)-1] == 0
	text := raw
	if terminated {
		text = raw[:len(raw)-1]
	}
	switch {
	case len(text) == 0:
		return Entry{}, &DecodeError{Reason: "empty path"}
	case !utf8.Valid(text):
		return Entry{}, &DecodeError{Reason: "invalid UTF-8"}
	case bytes.IndexByte(text, 0) >= 0:
		return Entry{}, &DecodeError{Reason: "embedded NUL"}
	}
	return Entry{Path: string(text), Terminated: terminated}, nil
}

// Encode returns the bytes to store for e. The terminator is written only if
// the entry was read with one.
func Encode(e Entry) []byte {
	return []byte(e.raw())
}
