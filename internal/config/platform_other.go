//go:build !windows && !darwin

package config

import "path/filepath"

const nativeScheme = "index"

func defaultStoreLocation() string {
	return "unity3d/UnityEditor5.x"
}

func nativeStorePath(dataDir string) string {
	return filepath.Join(dataDir, "store.json")
}
