// =============================================================================
// DFR Chargeback Bundler - Work Area Utility
// =============================================================================
//
// This module provides the scoped temporary directory each source file is
// bundled in. The artifacts of one file (submission header, index file,
// ZIP and composite) are written here before upload, and the directory is
// removed before the next file starts.
//
// LIFECYCLE:
//   1. NewWorkArea creates a fresh directory under the configured work dir
//   2. Write stores each artifact
//   3. Keep optionally copies the artifacts to a permanent directory
//   4. Cleanup removes the directory and everything in it
//
// =============================================================================

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// =============================================================================
// WORK AREA
// =============================================================================

// WorkArea is a temporary directory owned by one source file.
type WorkArea struct {
	// Dir is the absolute path of the directory.
	Dir string

	files []string
}

// NewWorkArea creates a new work area under parent.
//
// PARAMETERS:
//   - parent: The directory to create the work area in. Created if missing.
//   - label: A readable part of the directory name, e.g. the source file name.
//
// RETURNS:
//   - The work area.
//   - An error if the directory cannot be created.
func NewWorkArea(parent, label string) (*WorkArea, error) {
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work directory %s: %w", parent, err)
	}

	dir, err := os.MkdirTemp(parent, "dfr-"+sanitize(label)+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work area: %w", err)
	}

	return &WorkArea{Dir: dir}, nil
}

// Path returns the location of name inside the work area.
func (w *WorkArea) Path(name string) string {
	return filepath.Join(w.Dir, filepath.Base(name))
}

// Write stores an artifact and returns its path.
func (w *WorkArea) Write(name string, data []byte) (string, error) {
	path := w.Path(name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	w.files = append(w.files, filepath.Base(name))
	return path, nil
}

// Files returns the names of the written artifacts, sorted.
func (w *WorkArea) Files() []string {
	files := append([]string(nil), w.files...)
	sort.Strings(files)
	return files
}

// Keep copies every written artifact into dir.
//
// RETURNS:
//   - The paths of the copies.
//   - An error if any copy fails.
func (w *WorkArea) Keep(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create keep directory %s: %w", dir, err)
	}

	var kept []string
	for _, name := range w.Files() {
		dst := filepath.Join(dir, name)
		if err := copyFile(w.Path(name), dst); err != nil {
			return kept, fmt.Errorf("failed to keep %s: %w", name, err)
		}
		kept = append(kept, dst)
	}
	return kept, nil
}

// Cleanup removes the work area. It is safe to call more than once.
func (w *WorkArea) Cleanup() error {
	if w.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		return fmt.Errorf("failed to remove work area %s: %w", w.Dir, err)
	}
	w.files = nil
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// sanitize turns an object name into something usable in a directory name.
func sanitize(label string) string {
	label = filepath.Base(strings.ReplaceAll(label, "\\", "/"))
	label = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			return r
		default:
			return '_'
		}
	}, label)
	if label == "" || label == "." {
		return "file"
	}
	return label
}
