package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Manager handles file storage under a base download directory: folder
// creation, collision-safe filenames, and atomic writes through .part files.
type Manager struct {
	baseDir string

	mu       sync.Mutex
	reserved map[string]bool
}

// NewManager creates a storage manager rooted at baseDir
func NewManager(baseDir string) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &Manager{
		baseDir:  baseDir,
		reserved: make(map[string]bool),
	}, nil
}

// BaseDir returns the base download directory
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// FolderPath returns the absolute path of a download folder under the base
// directory. An empty folder name maps to the base directory itself.
func (m *Manager) FolderPath(folder string) string {
	if folder == "" {
		return m.baseDir
	}
	return filepath.Join(m.baseDir, filepath.FromSlash(folder))
}

// EnsureFolder creates a download folder under the base directory
func (m *Manager) EnsureFolder(folder string) (string, error) {
	path := m.FolderPath(folder)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("failed to create download folder: %w", err)
	}
	return path, nil
}

// Exists reports whether the named file already exists in the folder
func (m *Manager) Exists(folder, filename string) bool {
	_, err := os.Stat(filepath.Join(m.FolderPath(folder), filename))
	return err == nil
}

// ResolveFilename returns a filename that does not collide with existing
// files in the folder, appending " (N)" before the extension when needed.
// The result is reserved so concurrent downloads cannot pick the same name.
func (m *Manager) ResolveFilename(folder, filename string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := m.FolderPath(folder)
	candidate := filename
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	for n := 1; ; n++ {
		key := filepath.Join(dir, candidate)
		if !m.reserved[key] {
			if _, err := os.Stat(key); os.IsNotExist(err) {
				m.reserved[key] = true
				return candidate
			}
		}
		candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
}

// Release frees a name reserved by ResolveFilename without writing it
func (m *Manager) Release(folder, filename string) {
	m.mu.Lock()
	delete(m.reserved, filepath.Join(m.FolderPath(folder), filename))
	m.mu.Unlock()
}

// Save writes the reader's content to folder/filename atomically: data goes
// to a .part file first and is renamed into place only on success.
func (m *Manager) Save(r io.Reader, folder, filename string) (int64, error) {
	dir, err := m.EnsureFolder(folder)
	if err != nil {
		return 0, err
	}

	final := filepath.Join(dir, filename)
	partial := final + ".part"

	out, err := os.Create(partial)
	if err != nil {
		return 0, fmt.Errorf("failed to create partial file: %w", err)
	}

	written, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(partial)
		return 0, fmt.Errorf("failed to write file data: %w", err)
	}
	if closeErr != nil {
		os.Remove(partial)
		return 0, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(partial, final); err != nil {
		os.Remove(partial)
		return 0, fmt.Errorf("failed to finalize file: %w", err)
	}
	return written, nil
}

// SetModTime stamps the file's modification time from a Unix timestamp.
// A zero or negative timestamp is ignored.
func (m *Manager) SetModTime(folder, filename string, unix int64) error {
	if unix <= 0 {
		return nil
	}
	path := filepath.Join(m.FolderPath(folder), filename)
	ts := time.Unix(unix, 0)
	return os.Chtimes(path, ts, ts)
}
