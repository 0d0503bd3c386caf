//go:build windows
// +build windows

package platform

import (
	"os"
	"os/exec"
	"path/filepath"
)

func getDataDir() string {
	appDataDir := os.Getenv("APPDATA")
	if appDataDir == "" {
		return filepath.Join(UserHomeDir(), "."+AppName)
	}
	return filepath.Join(appDataDir, AppDisplayName)
}

func getCacheDir() string {
	// On Windows, cache and data are typically in the same location
	return getDataDir()
}

func openFile(path string) error {
	// The empty string after /c start is for the title parameter
	return exec.Command("cmd", "/c", "start", "", path).Start()
}
