package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const authFileName = "auth.json"

// storeFile is the on-disk format of auth.json.
type storeFile struct {
	Profiles        []*UserProfile `json:"profiles"`
	ActiveProfileID *string        `json:"activeProfileId"`
}

// Store holds user profiles and the active profile selection.
// It is a process-wide singleton with lifecycle = process lifetime;
// every mutation rewrites auth.json atomically.
type Store struct {
	mu       sync.RWMutex
	dir      string
	profiles []*UserProfile
	activeID *string
}

// NewStore creates a store rooted at dir (typically ~/.mcp-inspector),
// loading any existing auth.json. A missing file is a fresh start; a corrupt
// file is logged and treated as empty.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	s := &Store{dir: dir}
	s.load()
	return s, nil
}

// DefaultDir returns ~/.mcp-inspector.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home dir: %w", err)
	}
	return filepath.Join(home, ".mcp-inspector"), nil
}

func (s *Store) load() {
	path := filepath.Join(s.dir, authFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read auth file", "path", path, "error", err)
		}
		return
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		// Corrupt file: start empty, keep the file until the next good save.
		slog.Warn("Corrupt auth file, starting with empty profile store", "path", path, "error", err)
		return
	}

	s.profiles = file.Profiles
	s.activeID = file.ActiveProfileID
}

// save writes auth.json via a temp file and rename. Callers hold s.mu.
func (s *Store) save() error {
	file := storeFile{Profiles: s.profiles, ActiveProfileID: s.activeID}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	path := filepath.Join(s.dir, authFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Create adds a new profile and persists the store.
func (s *Store) Create(displayName, colorTag string, headers map[string]string, authorization string) (*UserProfile, error) {
	p, err := NewUserProfile(displayName, colorTag)
	if err != nil {
		return nil, err
	}
	if headers != nil {
		p.Headers = headers
	}
	p.Authorization = authorization

	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles = append(s.profiles, p)
	if err := s.save(); err != nil {
		slog.Error("Failed to persist profiles", "error", err)
	}
	return p, nil
}

// Update modifies an existing profile and persists the store.
func (s *Store) Update(id string, mutate func(*UserProfile)) (*UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.profiles {
		if p.ID == id {
			mutate(p)
			p.UpdatedAt = time.Now().UnixMilli()
			if !ValidColorTag(p.ColorTag) {
				return nil, fmt.Errorf("invalid color tag %q", p.ColorTag)
			}
			if err := s.save(); err != nil {
				slog.Error("Failed to persist profiles", "error", err)
			}
			return p, nil
		}
	}
	return nil, fmt.Errorf("profile %s not found", id)
}

// Delete removes a profile. Deleting the active profile clears the selection.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.profiles {
		if p.ID == id {
			s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
			if s.activeID != nil && *s.activeID == id {
				s.activeID = nil
			}
			if err := s.save(); err != nil {
				slog.Error("Failed to persist profiles", "error", err)
			}
			return nil
		}
	}
	return fmt.Errorf("profile %s not found", id)
}

// List returns a copy of all profiles.
func (s *Store) List() []*UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*UserProfile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// Get returns the profile with the given id.
func (s *Store) Get(id string) (*UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// SetActive selects the active profile; an empty id clears the selection.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		s.activeID = nil
	} else {
		found := false
		for _, p := range s.profiles {
			if p.ID == id {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("profile %s not found", id)
		}
		s.activeID = &id
	}

	if err := s.save(); err != nil {
		slog.Error("Failed to persist profiles", "error", err)
	}
	return nil
}

// Active returns the active profile, or nil if none is selected.
func (s *Store) Active() *UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeID == nil {
		return nil
	}
	for _, p := range s.profiles {
		if p.ID == *s.activeID {
			return p
		}
	}
	return nil
}

// ActiveID returns the active profile id, or "" if none.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeID == nil {
		return ""
	}
	return *s.activeID
}

// ActiveHeaders returns the header set of the active profile, including the
// Authorization header when present. Used by the proxy to decorate requests.
func (s *Store) ActiveHeaders() map[string]string {
	active := s.Active()
	if active == nil {
		return nil
	}

	headers := make(map[string]string, len(active.Headers)+1)
	for k, v := range active.Headers {
		headers[k] = v
	}
	if active.Authorization != "" {
		headers["Authorization"] = active.Authorization
	}
	return headers
}
