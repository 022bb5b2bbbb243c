// Package indexer mines identifiers from tool responses and persists them.
//
// Tool servers return deeply nested, often double-encoded JSON; the indexer
// unwraps the envelope, walks the structure, and keeps anything that looks
// like a persistent identifier (UUIDs, numeric ids, paths, slugs, issue keys),
// attributed to the acting user profile.
package indexer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iamsonidarshan/mcp-inspector/pkg/profile"
)

const resourcesFileName = "resources.json"

// AnonymousUser attributes resources discovered without an active profile.
const AnonymousUser = "anonymous"

// Resource is one indexed identifier.
type Resource struct {
	EntryID            string         `json:"entryId"`
	ID                 string         `json:"id"`
	Type               string         `json:"type"`
	FieldName          string         `json:"fieldName"`
	FieldPath          string         `json:"fieldPath"`
	ParentContext      map[string]any `json:"parentContext,omitempty"`
	DiscoveredByTool   string         `json:"discoveredByTool"`
	DiscoveredFromUser string         `json:"discoveredFromUser"`
	UserDisplayName    string         `json:"userDisplayName,omitempty"`
	UserColorTag       string         `json:"userColorTag,omitempty"`
	Timestamp          int64          `json:"timestamp"`
}

// indexFile is the on-disk format of resources.json.
type indexFile struct {
	Resources []*Resource `json:"resources"`
}

// Indexer extracts and persists identifiers, deduplicating per (id, user).
// It is a process-wide singleton; the full list is rewritten on every insert.
type Indexer struct {
	mu        sync.Mutex
	dir       string
	profiles  *profile.Store
	resources []*Resource
	seen      map[string]bool
}

// New creates an indexer rooted at dir, loading any existing resources.json.
// profiles may be nil; it is only used to decorate entries with display
// metadata.
func New(dir string, profiles *profile.Store) (*Indexer, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	idx := &Indexer{
		dir:      dir,
		profiles: profiles,
		seen:     make(map[string]bool),
	}
	idx.load()
	return idx, nil
}

func dedupKey(id, userID string) string {
	if userID == "" {
		userID = AnonymousUser
	}
	return id + "::" + userID
}

func (x *Indexer) load() {
	path := filepath.Join(x.dir, resourcesFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read resource index", "path", path, "error", err)
		}
		return
	}

	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		// Corrupt file: start empty; the file is only replaced on the next
		// successful insertion.
		slog.Warn("Corrupt resource index, starting empty", "path", path, "error", err)
		return
	}

	x.resources = file.Resources
	for _, r := range x.resources {
		x.seen[dedupKey(r.ID, r.DiscoveredFromUser)] = true
	}
}

// save rewrites resources.json via a temp file and rename. Callers hold x.mu.
func (x *Indexer) save() error {
	data, err := json.MarshalIndent(indexFile{Resources: x.resources}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal resource index: %w", err)
	}

	path := filepath.Join(x.dir, resourcesFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write resource index: %w", err)
	}
	return os.Rename(tmp, path)
}

// IndexResponse extracts identifiers from a tool response, filters duplicates
// per (id, user), persists the index, and returns the newly added entries.
// An empty userID attributes the discovery to "anonymous".
func (x *Indexer) IndexResponse(userID, toolName string, response any) []*Resource {
	candidates := extract(response)
	if len(candidates) == 0 {
		return nil
	}

	user := userID
	if user == "" {
		user = AnonymousUser
	}

	var displayName, colorTag string
	if x.profiles != nil && userID != "" {
		if p, ok := x.profiles.Get(userID); ok {
			displayName = p.DisplayName
			colorTag = p.ColorTag
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	var added []*Resource
	for _, c := range candidates {
		key := dedupKey(c.id, user)
		if x.seen[key] {
			continue
		}
		x.seen[key] = true

		r := &Resource{
			EntryID:            uuid.NewString(),
			ID:                 c.id,
			Type:               c.resourceType,
			FieldName:          c.fieldName,
			FieldPath:          c.fieldPath,
			ParentContext:      c.parentContext,
			DiscoveredByTool:   toolName,
			DiscoveredFromUser: user,
			UserDisplayName:    displayName,
			UserColorTag:       colorTag,
			Timestamp:          time.Now().UnixMilli(),
		}
		x.resources = append(x.resources, r)
		added = append(added, r)
	}

	if len(added) > 0 {
		if err := x.save(); err != nil {
			slog.Error("Failed to persist resource index", "error", err)
		}
		slog.Debug("Indexed resources", "tool", toolName, "user", user, "new", len(added))
	}

	return added
}

// List returns all indexed resources, optionally filtered by user.
func (x *Indexer) List(userID string) []*Resource {
	x.mu.Lock()
	defer x.mu.Unlock()

	if userID == "" {
		out := make([]*Resource, len(x.resources))
		copy(out, x.resources)
		return out
	}

	var out []*Resource
	for _, r := range x.resources {
		if r.DiscoveredFromUser == userID {
			out = append(out, r)
		}
	}
	return out
}

// Remove deletes a single entry by its entryId and frees its dedup slot.
func (x *Indexer) Remove(entryID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for i, r := range x.resources {
		if r.EntryID == entryID {
			delete(x.seen, dedupKey(r.ID, r.DiscoveredFromUser))
			x.resources = append(x.resources[:i], x.resources[i+1:]...)
			if err := x.save(); err != nil {
				slog.Error("Failed to persist resource index", "error", err)
			}
			return nil
		}
	}
	return fmt.Errorf("resource entry %s not found", entryID)
}

// Clear removes all entries and persists the empty index.
func (x *Indexer) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.resources = nil
	x.seen = make(map[string]bool)
	if err := x.save(); err != nil {
		slog.Error("Failed to persist resource index", "error", err)
	}
}

// Count returns the number of indexed resources.
func (x *Indexer) Count() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.resources)
}
