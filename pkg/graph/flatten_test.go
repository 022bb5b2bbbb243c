package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenRecordsBareKeyAndFullPath(t *testing.T) {
	flat := Flatten(map[string]any{
		"user": map[string]any{
			"id":   "u-1",
			"name": "Ada",
		},
	})

	assert.Equal(t, "u-1", flat["user.id"])
	assert.Equal(t, "u-1", flat["id"])
	assert.Equal(t, "Ada", flat["user.name"])
	assert.Equal(t, "Ada", flat["name"])
}

func TestFlattenArraysUseFirstElement(t *testing.T) {
	items := []any{
		map[string]any{"id": "first"},
		map[string]any{"id": "second"},
	}
	flat := Flatten(map[string]any{"results": items})

	assert.Equal(t, "first", flat["results.id"])
	assert.Equal(t, "first", flat["id"])
	assert.Equal(t, items, flat["results_array"])
}

func TestFlattenUnwrapsEnvelope(t *testing.T) {
	response := map[string]any{
		"content": []any{
			map[string]any{"type": "text", "text": `{"issue":{"key":"PROJ-7"}}`},
		},
	}
	flat := Flatten(response)

	assert.Equal(t, "PROJ-7", flat["issue.key"])
	assert.Equal(t, "PROJ-7", flat["key"])
}

func TestFlattenRootArray(t *testing.T) {
	flat := Flatten([]any{map[string]any{"id": "x"}})
	assert.Equal(t, "x", flat["id"])
	require.Contains(t, flat, "array")
}

func TestAvailableContextRedactsLongStrings(t *testing.T) {
	g := New()

	long := ""
	for i := 0; i < 150; i++ {
		long += "word "
	}

	nodeID := g.AddPendingTool("describe")
	g.RecordToolExecution(nodeID, map[string]any{
		"summary": long,
		"code":    "ok-1",
	}, nil)

	ctx := g.AvailableContext()
	require.Contains(t, ctx, "describe")
	assert.Equal(t, redactedPlaceholder, ctx["describe"]["summary"])
	assert.Equal(t, "ok-1", ctx["describe"]["code"])
}

func TestSanitizeForLLMTruncatesArrays(t *testing.T) {
	items := make([]any, 30)
	for i := range items {
		items[i] = "v"
	}
	out := sanitizeForLLM(items)
	arr, ok := out.([]any)
	require.True(t, ok)
	assert.Len(t, arr, 10)
}
