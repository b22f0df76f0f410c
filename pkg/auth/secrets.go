package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// SiteSecrets holds the credential material for one site, for example the
// DDOS-Guard cookie values used to prime a crawler's session.
type SiteSecrets struct {
	Site         string            `json:"site"`
	Values       map[string]string `json:"values"`
	LastModified time.Time         `json:"last_modified"`
}

// SecretStore is the interface for storing and retrieving site secrets
type SecretStore interface {
	// Store saves secrets for a site
	Store(secrets *SiteSecrets) error

	// Retrieve gets secrets for a site
	Retrieve(site string) (*SiteSecrets, error)

	// List returns all stored site secrets
	List() ([]*SiteSecrets, error)

	// Delete removes secrets for a site
	Delete(site string) error

	// Exists checks if secrets exist for a site
	Exists(site string) bool
}

// Manager handles secret storage with fallback mechanisms
type Manager struct {
	stores []SecretStore
}

// NewManager creates a secret manager with the available storage backends:
// system keychain first, encrypted file as fallback, environment last.
func NewManager() (*Manager, error) {
	var stores []SecretStore

	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "secrets.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves secrets using the first available store
func (m *Manager) Store(secrets *SiteSecrets) error {
	if secrets == nil || secrets.Site == "" {
		return errors.New("site is required")
	}
	if len(secrets.Values) == 0 {
		return errors.New("at least one secret value is required")
	}

	secrets.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(secrets); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store secrets: %w", lastErr)
	}
	return errors.New("no available secret stores")
}

// Retrieve gets secrets from the first store that has them
func (m *Manager) Retrieve(site string) (*SiteSecrets, error) {
	for _, store := range m.stores {
		if secrets, err := store.Retrieve(site); err == nil && secrets != nil {
			return secrets, nil
		}
	}
	return nil, fmt.Errorf("secrets not found for site: %s", site)
}

// List returns all stored site secrets from all stores
func (m *Manager) List() ([]*SiteSecrets, error) {
	siteMap := make(map[string]*SiteSecrets)

	for _, store := range m.stores {
		entries, err := store.List()
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if existing, ok := siteMap[entry.Site]; !ok || entry.LastModified.After(existing.LastModified) {
				siteMap[entry.Site] = entry
			}
		}
	}

	var result []*SiteSecrets
	for _, entry := range siteMap {
		result = append(result, entry)
	}
	return result, nil
}

// Delete removes secrets from all stores
func (m *Manager) Delete(site string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(site); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete secrets: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("secrets not found for site: %s", site)
	}
	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "mediagrab")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "mediagrab")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "mediagrab")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "mediagrab")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// MaskSecrets creates a copy of the secrets with values masked for display
func MaskSecrets(secrets *SiteSecrets) *SiteSecrets {
	if secrets == nil {
		return nil
	}

	masked := make(map[string]string, len(secrets.Values))
	for key, value := range secrets.Values {
		masked[key] = maskString(value)
	}
	return &SiteSecrets{
		Site:         secrets.Site,
		Values:       masked,
		LastModified: secrets.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrSecretsNotFound  = errors.New("secrets not found")
	ErrInvalidSecrets   = errors.New("invalid secrets")
	ErrStoreUnavailable = errors.New("secret store unavailable")
)
