package indexer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleUUID = "550e8400-e29b-41d4-a716-446655440000"

// envelope wraps a raw JSON payload the way tool servers do.
func envelope(payload string) map[string]any {
	return map[string]any{
		"content": []any{
			map[string]any{"type": "text", "text": payload},
		},
	}
}

func TestIndexResponseExtractsNestedUUID(t *testing.T) {
	idx, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	response := envelope(`{"results":[{"id":"` + sampleUUID + `","title":"hello"}]}`)
	added := idx.IndexResponse("u1", "listThings", response)

	require.Len(t, added, 1)
	r := added[0]
	assert.Equal(t, sampleUUID, r.ID)
	assert.Equal(t, "uuid", r.Type)
	assert.Equal(t, "id", r.FieldName)
	assert.Equal(t, "results[0].id", r.FieldPath)
	assert.Equal(t, map[string]any{"title": "hello"}, r.ParentContext)
	assert.Equal(t, "listThings", r.DiscoveredByTool)
	assert.Equal(t, "u1", r.DiscoveredFromUser)
	assert.NotEmpty(t, r.EntryID)
}

func TestIndexResponseDeduplicatesAcrossCalls(t *testing.T) {
	idx, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	response := envelope(`{"results":[{"id":"` + sampleUUID + `","title":"hello"}]}`)

	first := idx.IndexResponse("u1", "listThings", response)
	second := idx.IndexResponse("u1", "listThings", response)

	assert.Len(t, first, 1)
	assert.Empty(t, second)
	assert.Equal(t, 1, idx.Count())
}

func TestIndexResponseSeparateUsersKeepSeparateEntries(t *testing.T) {
	idx, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	response := envelope(`{"id":"` + sampleUUID + `"}`)

	assert.Len(t, idx.IndexResponse("u1", "getThing", response), 1)
	assert.Len(t, idx.IndexResponse("u2", "getThing", response), 1)
	assert.Equal(t, 2, idx.Count())
}

func TestIndexResponseAnonymousUser(t *testing.T) {
	idx, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	added := idx.IndexResponse("", "getThing", envelope(`{"id":"`+sampleUUID+`"}`))
	require.Len(t, added, 1)
	assert.Equal(t, AnonymousUser, added[0].DiscoveredFromUser)
}

func TestIndexPersistsAndReloads(t *testing.T) {
	dir := t.TempDir()

	idx, err := New(dir, nil)
	require.NoError(t, err)
	idx.IndexResponse("u1", "listThings", envelope(`{"id":"`+sampleUUID+`"}`))

	reloaded, err := New(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Count())

	// The dedup set must survive the reload.
	assert.Empty(t, reloaded.IndexResponse("u1", "listThings", envelope(`{"id":"`+sampleUUID+`"}`)))
}

func TestRemoveFreesDedupSlot(t *testing.T) {
	idx, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	added := idx.IndexResponse("u1", "getThing", envelope(`{"id":"`+sampleUUID+`"}`))
	require.Len(t, added, 1)

	require.NoError(t, idx.Remove(added[0].EntryID))
	assert.Equal(t, 0, idx.Count())
	assert.Len(t, idx.IndexResponse("u1", "getThing", envelope(`{"id":"`+sampleUUID+`"}`)), 1)
}

func TestBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		response any
		want     int
	}{
		{
			name:     "501_char_string_never_indexed",
			response: map[string]any{"id": strings.Repeat("a", 501)},
			want:     0,
		},
		{
			name:     "numeric_at_most_100_not_indexed",
			response: map[string]any{"userId": float64(100)},
			want:     0,
		},
		{
			name:     "numeric_above_100_indexed",
			response: map[string]any{"userId": float64(101)},
			want:     1,
		},
		{
			name:     "uuid_outside_id_like_field_indexed",
			response: map[string]any{"description": sampleUUID},
			want:     1,
		},
		{
			name:     "slug_under_non_id_like_field_not_indexed",
			response: map[string]any{"description": "some-slug-value"},
			want:     0,
		},
		{
			name:     "slug_under_id_like_field_indexed",
			response: map[string]any{"projectId": "some-slug-value"},
			want:     1,
		},
		{
			name:     "atlassian_key_outside_id_like_field_indexed",
			response: map[string]any{"summary": "PROJ-1234"},
			want:     1,
		},
		{
			name:     "empty_string_not_indexed",
			response: map[string]any{"id": ""},
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := New(t.TempDir(), nil)
			require.NoError(t, err)
			added := idx.IndexResponse("u1", "tool", tt.response)
			assert.Len(t, added, tt.want)
		})
	}
}

func TestTypeDetectionOrder(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{sampleUUID, "uuid"},
		{"ari:cloud:jira::site/abc-123", "path"},
		{"PROJ-42", "slug"},
		{"123456", "numeric"},
		{"/wiki/spaces/DEV", "path"},
		{"my-page-slug", "slug"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			idx, err := New(t.TempDir(), nil)
			require.NoError(t, err)
			added := idx.IndexResponse("u1", "tool", map[string]any{"id": tt.value})
			require.Len(t, added, 1)
			assert.Equal(t, tt.want, added[0].Type)
		})
	}
}

func TestParentContextTruncatesLongStrings(t *testing.T) {
	idx, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	long := strings.Repeat("x", 250)
	added := idx.IndexResponse("u1", "tool", map[string]any{
		"id":    sampleUUID,
		"notes": long,
		"count": float64(3),
	})
	require.Len(t, added, 1)

	notes, ok := added[0].ParentContext["notes"].(string)
	require.True(t, ok)
	assert.Len(t, notes, 203)
	assert.True(t, strings.HasSuffix(notes, "..."))
	assert.Equal(t, float64(3), added[0].ParentContext["count"])
	assert.NotContains(t, added[0].ParentContext, "id")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func TestCorruptIndexFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, resourcesFileName, "{not json")

	idx, err := New(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Count())
}

func TestEnvelopeFanOut(t *testing.T) {
	idx, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	// Two parseable text items: both traversed.
	response := map[string]any{
		"content": []any{
			map[string]any{"type": "text", "text": `{"id":"` + sampleUUID + `"}`},
			map[string]any{"type": "text", "text": `{"issueId":"123456"}`},
		},
	}
	added := idx.IndexResponse("u1", "tool", response)
	assert.Len(t, added, 2)

	// No parseable text: the raw envelope is traversed and yields nothing.
	raw := map[string]any{
		"content": []any{
			map[string]any{"type": "text", "text": "plain prose"},
		},
	}
	assert.Empty(t, idx.IndexResponse("u1", "other", raw))
}
