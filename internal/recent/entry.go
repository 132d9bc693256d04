// Package recent holds the recent-project list: decoding stored values into
// entries, editing their order, and writing the edited list back.
package recent

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// UnparsablePlaceholder is shown for entries whose path has no usable
// final segment.
const UnparsablePlaceholder = "Unable to parse project path."

const rowFormat = "%-31s%s"

// Entry is one recent-project record.
type Entry struct {
	// Path is the project root as stored, without the terminator.
	Path string
	// Suffix is the hash token carried by hash-suffixed key names.
	Suffix string
	// Terminated reports whether the stored value ended with a NUL byte.
	Terminated bool
}

// Row is the display form of an Entry.
type Row struct {
	Name       string
	Remainder  string
	Unparsable bool
}

func (r Row) String() string {
	if r.Unparsable {
		return UnparsablePlaceholder
	}
	return fmt.Sprintf(rowFormat, r.Name, r.Remainder)
}

// raw is the text as it was stored, terminator included.
func (e Entry) raw() string {
	if e.Terminated {
		return e.Path + "\x00"
	}
	return e.Path
}

// Row derives the project name and parent directory from the path. The name
// length is measured against the stored text and drops one character for
// the terminator, so an unterminated path loses its last character.
func (e Entry) Row() Row {
	slash := strings.LastIndexByte(e.Path, '/')
	if slash <= 0 {
		return Row{Unparsable: true}
	}
	name := e.Path[slash+1:]
	if !e.Terminated {
		if name == "" {
			return Row{Unparsable: true}
		}
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return Row{
		Name:      name,
		Remainder: e.Path[:slash],
	}
}

// DisplayName returns the project name, or false when it cannot be derived.
func (e Entry) DisplayName() (string, bool) {
	r := e.Row()
	return r.Name, !r.Unparsable
}
