package kvstore

import (
	"fmt"

	"github.com/spf13/afero"
)

// Backend names accepted by New.
const (
	BackendNative = "native"
	BackendFile   = "file"
	BackendPebble = "pebble"
)

// New builds the Store for backend. path is the data location for the file
// and pebble backends and is ignored by the native one. Stores that hold
// resources are released with Release.
func New(backend, path string) (Store, error) {
	switch backend {
	case "", BackendNative:
		return newNativeStore(path), nil
	case BackendFile:
		return NewFileStore(afero.NewOsFs(), path), nil
	case BackendPebble:
		return OpenPebble(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
