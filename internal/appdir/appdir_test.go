package appdir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func withDirEnv(t *testing.T, value string) {
	t.Helper()
	ResetCache()
	t.Setenv(DirEnv, value)
	t.Cleanup(ResetCache)
}

func TestDir_EnvOverride(t *testing.T) {
	customDir := t.TempDir()
	withDirEnv(t, customDir)

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() failed: %v", err)
	}
	if dir != customDir {
		t.Errorf("Dir() = %q, want %q", dir, customDir)
	}
}

func TestDir_DefaultPath(t *testing.T) {
	withDirEnv(t, "")

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() failed: %v", err)
	}
	if !strings.Contains(strings.ToLower(dir), "livedesk") {
		t.Errorf("Dir() = %q, expected path to contain 'livedesk'", dir)
	}
}

func TestDir_Cached(t *testing.T) {
	first := t.TempDir()
	withDirEnv(t, first)
	if _, err := Dir(); err != nil {
		t.Fatal(err)
	}

	t.Setenv(DirEnv, t.TempDir())
	dir, _ := Dir()
	if dir != first {
		t.Errorf("Dir() = %q after env change, want cached %q", dir, first)
	}
}

func TestEnsureDirAndPaths(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "livedesk")
	withDirEnv(t, root)

	if err := EnsureDir(); err != nil {
		t.Fatalf("EnsureDir() failed: %v", err)
	}
	if info, err := os.Stat(filepath.Join(root, LogsDirName)); err != nil || !info.IsDir() {
		t.Fatalf("logs directory not created: %v", err)
	}

	storage, _ := StoragePath()
	if storage != filepath.Join(root, StorageFileName) {
		t.Errorf("StoragePath() = %q", storage)
	}
	cache, _ := CachePath()
	if cache != filepath.Join(root, CacheFileName) {
		t.Errorf("CachePath() = %q", cache)
	}
	logPath, _ := LogPath()
	if logPath != filepath.Join(root, LogsDirName, "livedesk.log") {
		t.Errorf("LogPath() = %q", logPath)
	}
}
