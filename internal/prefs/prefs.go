// Package prefs persists the client-local org-scope fallback preference,
// the only state the dashboard keeps outside the conversation store.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	prefsDirPerm  = 0o755
	prefsFilePerm = 0o644
)

type prefsFile struct {
	OrgID string `json:"org_id,omitempty"`
}

// Store reads and writes the preference file.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path. An empty path
// defaults to <user-config-dir>/orgdesk/prefs.json.
func NewStore(path string) (*Store, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		path = filepath.Join(configDir, "orgdesk", "prefs.json")
	}
	return &Store{path: path}, nil
}

// OrgID returns the persisted org preference, or "" when unset or the file
// is unreadable. Scope resolution must never fail on a missing preference.
func (s *Store) OrgID() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	var prefs prefsFile
	if err := json.Unmarshal(data, &prefs); err != nil {
		return ""
	}
	return prefs.OrgID
}

// SetOrgID persists the org preference atomically (temp file + rename).
func (s *Store) SetOrgID(orgID string) error {
	prefs := s.load()
	prefs.OrgID = orgID
	return s.save(prefs)
}

func (s *Store) load() prefsFile {
	var prefs prefsFile
	data, err := os.ReadFile(s.path)
	if err != nil {
		return prefs
	}
	_ = json.Unmarshal(data, &prefs)
	return prefs
}

func (s *Store) save(prefs prefsFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), prefsDirPerm); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, prefsFilePerm); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		removeErr := os.Remove(tmp)
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return fmt.Errorf("replace prefs: %w (cleanup: %v)", err, removeErr)
		}
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}
