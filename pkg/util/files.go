package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CleanupFiles removes multiple files, ignoring errors
func CleanupFiles(paths ...string) {
	for _, path := range paths {
		_ = os.Remove(path)
	}
}

// CleanupDir removes a directory and its contents. Safe to call on a
// missing or already-removed directory.
func CleanupDir(dir string) error {
	if dir == "" {
		return nil
	}
	err := os.RemoveAll(dir)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// ScratchFramePath returns the scratch file name for an absolute frame index.
func ScratchFramePath(dir string, frame int) string {
	return filepath.Join(dir, fmt.Sprintf("frame_%d.jpg", frame))
}
