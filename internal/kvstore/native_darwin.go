//go:build darwin

package kvstore

// NativeDescription names the platform store used by the native backend.
const NativeDescription = "macOS UserDefaults"

func newNativeStore(string) Store {
	return NewDefaultsStore()
}
