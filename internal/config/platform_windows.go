//go:build windows

package config

// Unity 5.x writes hash-suffixed REG_BINARY values under this HKCU key.
const nativeScheme = "hash"

func defaultStoreLocation() string {
	return `Software\Unity Technologies\Unity Editor 5.x`
}

func nativeStorePath(string) string { return "" }
