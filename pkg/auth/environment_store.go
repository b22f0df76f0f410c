package auth

import (
	"os"
	"strings"
	"time"
)

// EnvironmentStore implements SecretStore using environment variables of
// the form MEDIAGRAB_AUTH_<SITE>_<KEY>. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based secret store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

const envPrefix = "MEDIAGRAB_AUTH_"

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(secrets *SiteSecrets) error {
	return ErrStoreUnavailable
}

// Retrieve gets site secrets from environment variables
func (e *EnvironmentStore) Retrieve(site string) (*SiteSecrets, error) {
	if site == "" {
		return nil, ErrInvalidSecrets
	}

	sitePrefix := envPrefix + strings.ToUpper(site) + "_"
	values := make(map[string]string)
	for _, entry := range os.Environ() {
		if !strings.HasPrefix(entry, sitePrefix) {
			continue
		}
		pair := strings.SplitN(strings.TrimPrefix(entry, sitePrefix), "=", 2)
		if len(pair) != 2 || pair[1] == "" {
			continue
		}
		values[strings.ToLower(pair[0])] = pair[1]
	}

	if len(values) == 0 {
		return nil, ErrSecretsNotFound
	}
	return &SiteSecrets{
		Site:         site,
		Values:       values,
		LastModified: time.Now(),
	}, nil
}

// List returns the site secrets present in the environment
func (e *EnvironmentStore) List() ([]*SiteSecrets, error) {
	sites := make(map[string]bool)
	for _, entry := range os.Environ() {
		if !strings.HasPrefix(entry, envPrefix) {
			continue
		}
		rest := strings.TrimPrefix(entry, envPrefix)
		if idx := strings.Index(rest, "_"); idx > 0 {
			sites[strings.ToLower(rest[:idx])] = true
		}
	}

	var result []*SiteSecrets
	for site := range sites {
		if secrets, err := e.Retrieve(site); err == nil {
			result = append(result, secrets)
		}
	}
	return result, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(site string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment secrets exist for the site
func (e *EnvironmentStore) Exists(site string) bool {
	secrets, err := e.Retrieve(site)
	return err == nil && secrets != nil
}
