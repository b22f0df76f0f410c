package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"mediagrab/pkg/logger"
)

// History records download outcomes across runs: completed media URLs mapped
// to their final filenames, and failed media URLs mapped to the download
// folder they were headed for, which retry runs use to restore placement.
type History struct {
	Completed map[string]string `json:"completed"` // media URL -> filename
	Failed    map[string]string `json:"failed"`    // media URL -> download folder
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Version   int               `json:"version"`
}

// Manager handles history persistence
type Manager struct {
	path   string
	logger logger.Logger

	mu      sync.Mutex
	history *History
}

// NewManager creates a history manager. An empty path places the file in
// the platform data directory.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		dataDir, err := dataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		path = filepath.Join(dataDir, "history.json")
	}

	m := &Manager{
		path:   path,
		logger: logger.GetLogger(),
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.history = &History{
				Completed: make(map[string]string),
				Failed:    make(map[string]string),
				CreatedAt: time.Now(),
				Version:   1,
			}
			return nil
		}
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	var h History
	if err := json.NewDecoder(file).Decode(&h); err != nil {
		return fmt.Errorf("failed to decode history: %w", err)
	}
	if h.Completed == nil {
		h.Completed = make(map[string]string)
	}
	if h.Failed == nil {
		h.Failed = make(map[string]string)
	}
	m.history = &h

	m.logger.DebugWithFields("history loaded", map[string]interface{}{
		"path":      m.path,
		"completed": len(h.Completed),
		"failed":    len(h.Failed),
	})
	return nil
}

// save writes the history to disk atomically. Caller holds mu.
func (m *Manager) save() error {
	m.history.UpdatedAt = time.Now()

	tempPath := m.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary history file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m.history); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync history file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close history file: %w", err)
	}
	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

// IsCompleted reports whether the media URL finished downloading in any run
func (m *Manager) IsCompleted(mediaURL string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.history.Completed[mediaURL]
	return ok
}

// RecordCompleted marks a media URL as downloaded and clears any earlier
// failure record for it.
func (m *Manager) RecordCompleted(mediaURL, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history.Completed[mediaURL] = filename
	delete(m.history.Failed, mediaURL)
	return m.save()
}

// RecordFailure marks a media URL as permanently failed, remembering the
// download folder so a retry run can place the file where it belonged.
func (m *Manager) RecordFailure(mediaURL, folder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, done := m.history.Completed[mediaURL]; done {
		return nil
	}
	m.history.Failed[mediaURL] = folder
	return m.save()
}

// FailedEntries returns a copy of the failure records, media URL to folder
func (m *Manager) FailedEntries() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make(map[string]string, len(m.history.Failed))
	for u, folder := range m.history.Failed {
		entries[u] = folder
	}
	return entries
}

// Counts returns how many completed and failed records exist
func (m *Manager) Counts() (completed, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history.Completed), len(m.history.Failed)
}

// Clear removes all history records and deletes the file
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history.Completed = make(map[string]string)
	m.history.Failed = make(map[string]string)
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

// dataDirectory returns the platform data directory for history files
func dataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "mediagrab")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "mediagrab")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "mediagrab")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "mediagrab")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
