package recent

import (
	"errors"
	"fmt"
)

// ErrDuplicateKey is returned by Save when two entries map to the same key.
var ErrDuplicateKey = errors.New("duplicate save key")

// DecodeError reports a stored value that could not be read as an entry.
type DecodeError struct {
	Key    string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Key == "" {
		return "decoding entry: " + e.Reason
	}
	return fmt.Sprintf("decoding entry %s: %s", e.Key, e.Reason)
}

// WriteError reports a failed store operation during a save or restore.
type WriteError struct {
	Op  string
	Key string
	Err error
}

func (e *WriteError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
