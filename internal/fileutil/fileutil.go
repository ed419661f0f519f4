// Package fileutil writes command output to disk.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrFileExists is returned when the target exists and overwriting is off.
var ErrFileExists = errors.New("file already exists")

// FileExists checks if a regular file exists at the given path
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// WriteFile replaces filePath with data, creating parent directories.
// An existing file is kept unless overwrite is set. Readers never see a
// partially written file.
func WriteFile(filePath string, data []byte, overwrite bool) error {
	if FileExists(filePath) && !overwrite {
		return fmt.Errorf("%s: %w (use --overwrite)", filePath, ErrFileExists)
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filePath, err)
	}
	return nil
}
