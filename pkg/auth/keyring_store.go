package auth

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "mediagrab"
	keyringPrefix  = "site_"
)

// KeyringStore implements SecretStore using the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a keyring-based secret store
func NewKeyringStore() (*KeyringStore, error) {
	// Test if keyring is available
	testKey := "test_availability"
	err := keyring.Set(keyringService, testKey, "test")
	if err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves site secrets to the system keychain
func (k *KeyringStore) Store(secrets *SiteSecrets) error {
	if secrets == nil || secrets.Site == "" {
		return ErrInvalidSecrets
	}

	data, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	key := keyringPrefix + secrets.Site
	if err := keyring.Set(keyringService, key, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Retrieve gets site secrets from the system keychain
func (k *KeyringStore) Retrieve(site string) (*SiteSecrets, error) {
	if site == "" {
		return nil, ErrInvalidSecrets
	}

	key := keyringPrefix + site
	data, err := keyring.Get(keyringService, key)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, ErrSecretsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var secrets SiteSecrets
	if err := json.Unmarshal([]byte(data), &secrets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secrets: %w", err)
	}
	return &secrets, nil
}

// List returns all stored site secrets from the keychain. The keyring
// library cannot enumerate keys, so this always returns empty.
func (k *KeyringStore) List() ([]*SiteSecrets, error) {
	return []*SiteSecrets{}, nil
}

// Delete removes site secrets from the system keychain
func (k *KeyringStore) Delete(site string) error {
	if site == "" {
		return ErrInvalidSecrets
	}

	key := keyringPrefix + site
	err := keyring.Delete(keyringService, key)
	if err != nil {
		if err == keyring.ErrNotFound {
			return ErrSecretsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// Exists checks if secrets exist in the keychain
func (k *KeyringStore) Exists(site string) bool {
	if site == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+site)
	return err == nil
}
