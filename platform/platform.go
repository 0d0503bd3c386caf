// Package platform provides per-OS directory locations and helpers for
// handing files to the desktop.
package platform

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under the per-user data and cache roots.
const AppName = "stereoprep"

// AppDisplayName is the directory name used where the OS prefers display names.
const AppDisplayName = "Stereo Prep"

// GetDataDir returns the directory holding the default config file and the
// validation journal.
// Windows: %APPDATA%\Stereo Prep
// Linux: ~/.local/share/stereoprep
// macOS: ~/Library/Application Support/Stereo Prep
func GetDataDir() string {
	return getDataDir()
}

// GetCacheDir returns the directory used for generated previews.
// Windows: %APPDATA%\Stereo Prep
// Linux: ~/.cache/stereoprep
// macOS: ~/Library/Caches/stereoprep
func GetCacheDir() string {
	return getCacheDir()
}

// OpenFile opens a file or directory with the default application.
func OpenFile(path string) error {
	return openFile(path)
}

// UserHomeDir returns the user's home directory with proper fallbacks.
func UserHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// JournalPath returns the default location of the validation journal.
func JournalPath() string {
	return filepath.Join(GetDataDir(), "journal.db")
}
