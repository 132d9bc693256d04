//go:build windows

package kvstore

// NativeDescription names the platform store used by the native backend.
const NativeDescription = "Windows registry (HKCU)"

func newNativeStore(string) Store {
	return NewRegistryStore()
}
