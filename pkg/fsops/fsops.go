// Package fsops implements the filesystem command bodies. Every
// operation is a thin pass-through to the OS API; errors are returned
// to the dispatcher, which reports them as ok:false responses.
package fsops

import (
	"fmt"
	"os"
	"sort"
)

// Entry describes one directory entry for listDir.
type Entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"isDir"`
}

// ReadFile returns the file's content as a string.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile writes data to path, creating the file if needed.
func WriteFile(path, data string) error {
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

// ListDir returns all entries of a directory. An empty path lists the
// current directory.
func ListDir(path string) ([]Entry, error) {
	if path == "" {
		path = "."
	}
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, e := range dirEntries {
		entries = append(entries, Entry{Name: e.Name(), IsDir: e.IsDir()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// ListDirs returns the names of subdirectories only.
func ListDirs(path string) ([]string, error) {
	entries, err := ListDir(path)
	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir {
			dirs = append(dirs, e.Name)
		}
	}
	return dirs, nil
}

// CreateDir creates a directory, including missing parents.
func CreateDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// DeleteFile removes a single file.
func DeleteFile(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}

// DeleteDir removes a directory. Non-empty directories require
// recursive.
func DeleteDir(path string, recursive bool) error {
	var err error
	if recursive {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return fmt.Errorf("failed to delete directory %s: %w", path, err)
	}
	return nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.IsDir(), nil
}

// Rename moves a file or directory.
func Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", oldPath, newPath, err)
	}
	return nil
}
