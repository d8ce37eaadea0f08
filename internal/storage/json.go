package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	filePermissions = 0644
	dirPermissions  = 0755
)

// SaveJSON writes v to path as indented JSON. The file is written to a
// temporary sibling first and renamed into place, so readers never observe
// a partial document.
func SaveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// LoadJSON reads path into v. A missing file is not an error: found is false
// and v is left untouched.
func LoadJSON(path string, v any) (found bool, err error) {
	// stale temp file from an interrupted write
	_ = os.Remove(path + ".tmp")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}
	return true, nil
}
