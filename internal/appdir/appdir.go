// Package appdir locates the livedesk data directory, which holds the
// visitor storage file and the offline ticket cache.
package appdir

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const (
	// DirEnv overrides the data directory.
	DirEnv = "LIVEDESK_DIR"

	// StorageFileName holds the persisted visitor key/value pairs.
	StorageFileName = "storage.json"

	// CacheFileName is the SQLite ticket cache.
	CacheFileName = "tickets.db"

	// LogsDirName is the subdirectory for rotated log files.
	LogsDirName = "logs"
)

var (
	cachedDir string
	mu        sync.RWMutex
)

// Dir returns the data directory:
//  1. LIVEDESK_DIR, when set
//  2. macOS: ~/Library/Application Support/livedesk
//  3. Windows: %APPDATA%\livedesk
//  4. otherwise: $XDG_DATA_HOME/livedesk or ~/.local/share/livedesk
//
// The directory is not created; see EnsureDir.
func Dir() (string, error) {
	mu.RLock()
	if cachedDir != "" {
		dir := cachedDir
		mu.RUnlock()
		return dir, nil
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	if cachedDir != "" {
		return cachedDir, nil
	}

	dir, err := resolveDir()
	if err != nil {
		return "", err
	}
	cachedDir = dir
	return dir, nil
}

func resolveDir() (string, error) {
	if envDir := os.Getenv(DirEnv); envDir != "" {
		return envDir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "livedesk"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(homeDir, "AppData", "Roaming")
		}
		return filepath.Join(appData, "livedesk"), nil
	default:
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			dataDir = filepath.Join(homeDir, ".local", "share")
		}
		return filepath.Join(dataDir, "livedesk"), nil
	}
}

// EnsureDir creates the data directory and its logs subdirectory.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(dir, LogsDirName), 0700); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return nil
}

// StoragePath returns the path of the visitor storage file.
func StoragePath() (string, error) {
	return join(StorageFileName)
}

// CachePath returns the path of the ticket cache database.
func CachePath() (string, error) {
	return join(CacheFileName)
}

// LogPath returns the default rotating log file path.
func LogPath() (string, error) {
	return join(LogsDirName, "livedesk.log")
}

func join(elem ...string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{dir}, elem...)...), nil
}

// ResetCache forgets the resolved directory. Used by tests.
func ResetCache() {
	mu.Lock()
	defer mu.Unlock()
	cachedDir = ""
}
