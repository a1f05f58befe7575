//go:build darwin
// +build darwin

package platform

import (
	"path/filepath"
)

func getDataDir() string {
	return filepath.Join(UserHomeDir(), "Library", "Application Support", AppDisplayName)
}

func getCacheDir() string {
	return filepath.Join(UserHomeDir(), "Library", "Caches", AppName)
}

func onnxRuntimeLibName() string {
	return "libonnxruntime.dylib"
}
