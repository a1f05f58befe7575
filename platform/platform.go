// Package platform provides per-OS directory locations and library names.
package platform

import (
	"os"
)

// AppName is used for directory naming on Unix systems.
const AppName = "depthviz"

// AppDisplayName is used for directory naming on Windows and macOS.
const AppDisplayName = "DepthViz"

// GetDataDir returns the directory holding config.json and the frame index.
// Windows: %APPDATA%\DepthViz
// macOS: ~/Library/Application Support/DepthViz
// Linux: $XDG_DATA_HOME/depthviz or ~/.local/share/depthviz
func GetDataDir() string {
	return getDataDir()
}

// GetCacheDir returns the default directory for rendered images.
// Windows: %LOCALAPPDATA%\DepthViz\cache
// macOS: ~/Library/Caches/depthviz
// Linux: $XDG_CACHE_HOME/depthviz or ~/.cache/depthviz
func GetCacheDir() string {
	return getCacheDir()
}

// OnnxRuntimeLibName is the file name of the onnxruntime shared library.
func OnnxRuntimeLibName() string {
	return onnxRuntimeLibName()
}

// UserHomeDir returns the user's home directory, or "." when unknown.
func UserHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
