// Package store persists client-side preferences: the per-group last-seen
// marks, the language and the theme.
package store

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "rlxui"

// DataDir returns the path to the rlxui data directory.
// Uses XDG_DATA_HOME or defaults to ~/.local/share/rlxui.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, AppName), nil
}

// PrefsPath returns the path to the preferences file.
func PrefsPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "prefs.json"), nil
}
