package database

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// GetAppDataPath returns the per-user data directory for appName, creating
// it if needed.
func GetAppDataPath(appName string) (string, error) {
	usr, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %v", err)
	}

	var appDataPath string
	switch runtime.GOOS {
	case "windows":
		appDataPath = filepath.Join(usr.HomeDir, "AppData", "Local", appName)
	case "darwin":
		appDataPath = filepath.Join(usr.HomeDir, "Library", "Application Support", appName)
	case "linux":
		appDataPath = filepath.Join(usr.HomeDir, ".local", "share", appName)
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(appDataPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create app data directory: %v", err)
	}

	return appDataPath, nil
}

// DefaultDatabasePath returns the default sqlite file location used when
// the config does not override it.
func DefaultDatabasePath() (string, error) {
	appDataPath, err := GetAppDataPath("cuentix")
	if err != nil {
		return "", err
	}

	return filepath.Join(appDataPath, "cuentix.sqlite"), nil
}
