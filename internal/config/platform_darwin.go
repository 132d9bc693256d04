//go:build darwin

package config

const nativeScheme = "index"

func defaultStoreLocation() string {
	return "com.unity3d.UnityEditor5.x"
}

func nativeStorePath(string) string { return "" }
