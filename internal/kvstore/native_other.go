//go:build !windows && !darwin

package kvstore

import "github.com/spf13/afero"

// NativeDescription names the platform store used by the native backend.
const NativeDescription = "JSON file"

func newNativeStore(path string) Store {
	return NewFileStore(afero.NewOsFs(), path)
}
