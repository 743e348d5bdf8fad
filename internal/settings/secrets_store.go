// Package settings persists user-managed secrets to a local file.
package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// SecretsStore holds provider API keys in secrets.json, separate from the
// main config file so the config stays shareable.
//
// Keys must never be surfaced back to a UI in plaintext; callers should only
// expose derived status ("key set" / "key missing").
type SecretsStore struct {
	path string
	mu   sync.Mutex
}

func NewSecretsStore(path string) *SecretsStore {
	return &SecretsStore{path: filepath.Clean(strings.TrimSpace(path))}
}

type secretsFile struct {
	SchemaVersion   int               `json:"schema_version"`
	ProviderAPIKeys map[string]string `json:"provider_api_keys,omitempty"`
}

// APIKey returns the key for providerID. A missing file or entry is
// reported as (_, false, nil): absence is not an error.
func (s *SecretsStore) APIKey(providerID string) (string, bool, error) {
	if s == nil {
		return "", false, errors.New("nil secrets store")
	}
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return "", false, errors.New("missing provider id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sf, err := s.loadLocked()
	if err != nil {
		return "", false, err
	}
	v := strings.TrimSpace(sf.ProviderAPIKeys[providerID])
	if v == "" {
		return "", false, nil
	}
	return v, true, nil
}

// SetAPIKey stores or replaces the key for providerID.
func (s *SecretsStore) SetAPIKey(providerID string, apiKey string) error {
	if s == nil {
		return errors.New("nil secrets store")
	}
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return errors.New("missing provider id")
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("missing api key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sf, err := s.loadLocked()
	if err != nil {
		return err
	}
	if sf.ProviderAPIKeys == nil {
		sf.ProviderAPIKeys = make(map[string]string)
	}
	sf.ProviderAPIKeys[providerID] = apiKey
	return s.saveLocked(sf)
}

// ClearAPIKey removes the key for providerID. Clearing an absent key is a
// no-op.
func (s *SecretsStore) ClearAPIKey(providerID string) error {
	if s == nil {
		return errors.New("nil secrets store")
	}
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return errors.New("missing provider id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sf, err := s.loadLocked()
	if err != nil {
		return err
	}
	if _, ok := sf.ProviderAPIKeys[providerID]; !ok {
		return nil
	}
	delete(sf.ProviderAPIKeys, providerID)
	if len(sf.ProviderAPIKeys) == 0 {
		sf.ProviderAPIKeys = nil
	}
	return s.saveLocked(sf)
}

func (s *SecretsStore) loadLocked() (*secretsFile, error) {
	path := strings.TrimSpace(s.path)
	if path == "" {
		return nil, errors.New("missing secrets path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &secretsFile{SchemaVersion: 1}, nil
		}
		return nil, err
	}
	var sf secretsFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return nil, err
	}
	if sf.SchemaVersion == 0 {
		sf.SchemaVersion = 1
	}
	return &sf, nil
}

func (s *SecretsStore) saveLocked(sf *secretsFile) error {
	if sf == nil {
		return errors.New("nil secrets")
	}
	path := strings.TrimSpace(s.path)
	if path == "" {
		return errors.New("missing secrets path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	b, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
