package graph

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolNodeLifecycle(t *testing.T) {
	g := New()

	nodeID := g.AddPendingTool("listThings")
	node, ok := g.Node(nodeID)
	require.True(t, ok)
	assert.Equal(t, StatusPending, node.Status)
	assert.Equal(t, NodeTypeTool, node.Type)
	assert.Equal(t, "listThings", node.Name)

	g.MarkToolRunning(nodeID, map[string]any{"limit": 5})
	node, _ = g.Node(nodeID)
	assert.Equal(t, StatusRunning, node.Status)

	g.RecordToolExecution(nodeID, map[string]any{"count": float64(2)}, nil)
	node, _ = g.Node(nodeID)
	assert.Equal(t, StatusCompleted, node.Status)

	flat, ok := g.ToolResult("listThings")
	require.True(t, ok)
	assert.Equal(t, float64(2), flat["count"])
}

func TestTerminalStatusIsSticky(t *testing.T) {
	g := New()

	nodeID := g.AddPendingTool("tool")
	g.MarkToolFailed(nodeID, "boom")

	g.MarkToolRunning(nodeID, nil)
	g.RecordToolExecution(nodeID, map[string]any{"x": "y"}, nil)
	g.MarkToolSkipped(nodeID, "late", nil)

	node, _ := g.Node(nodeID)
	assert.Equal(t, StatusFailed, node.Status)
	assert.Equal(t, "boom", node.Data["error"])
	_, hasResult := g.ToolResult("tool")
	assert.False(t, hasResult)
}

func TestUnknownNodeIDsAreIgnored(t *testing.T) {
	g := New()
	g.MarkToolRunning("missing", nil)
	g.RecordToolExecution("missing", map[string]any{}, nil)
	g.MarkToolFailed("missing", "err")
	g.MarkToolSkipped("missing", "r", nil)
	assert.Empty(t, g.Serialize().Nodes)
}

func TestProvidedEdgesRequireExistingSource(t *testing.T) {
	g := New()

	sourceID := g.AddPendingTool("getUser")
	g.RecordToolExecution(sourceID, map[string]any{"accountId": "acct-12"}, nil)

	targetID := g.AddPendingTool("getAccount")
	g.RecordToolExecution(targetID, map[string]any{"ok": true}, map[string]string{
		"accountId": sourceID,
		"missing":   "tool_nope_1",
	})

	snap := g.Serialize()
	var provided []*Edge
	for _, e := range snap.Edges {
		if e.Relation == "provided_accountId" {
			provided = append(provided, e)
		}
		assert.NotEqual(t, "provided_missing", e.Relation)
	}
	require.Len(t, provided, 1)
	assert.Equal(t, sourceID, provided[0].Source)
	assert.Equal(t, targetID, provided[0].Target)

	// Every edge endpoint must exist.
	for _, e := range snap.Edges {
		_, sourceOK := g.Node(e.Source)
		_, targetOK := g.Node(e.Target)
		assert.True(t, sourceOK, "edge source %s", e.Source)
		assert.True(t, targetOK, "edge target %s", e.Target)
	}
}

func TestNodeIDForToolReturnsMostRecent(t *testing.T) {
	g := New()

	first := g.AddPendingTool("search")
	second := g.AddPendingTool("search")
	require.NotEqual(t, first, second)

	id, ok := g.NodeIDForTool("search")
	require.True(t, ok)
	assert.Equal(t, second, id)

	_, ok = g.NodeIDForTool("unknown")
	assert.False(t, ok)
}

func TestResourceExtractionCreatesNodesAndEdges(t *testing.T) {
	g := New()

	nodeID := g.AddPendingTool("listProjects")
	g.RecordToolExecution(nodeID, map[string]any{
		"projects": []any{
			map[string]any{"projectId": "proj-1", "name": "Alpha"},
		},
	}, nil)

	_, ok := g.Node("resource_projectId_proj-1")
	assert.True(t, ok)
	_, ok = g.Node("resource_name_Alpha")
	assert.True(t, ok)

	var discovered int
	for _, e := range g.Serialize().Edges {
		if e.Relation == "discovered" && e.Source == nodeID {
			discovered++
		}
	}
	assert.Equal(t, 2, discovered)
}

func TestResourceNodeCreatedOncePerLifetime(t *testing.T) {
	g := New()

	a := g.AddPendingTool("toolA")
	g.RecordToolExecution(a, map[string]any{"userId": "u-9"}, nil)
	b := g.AddPendingTool("toolB")
	g.RecordToolExecution(b, map[string]any{"userId": "u-9"}, nil)

	var resourceNodes, discovered int
	snap := g.Serialize()
	for _, n := range snap.Nodes {
		if n.Type == NodeTypeResource {
			resourceNodes++
		}
	}
	for _, e := range snap.Edges {
		if e.Relation == "discovered" {
			discovered++
		}
	}
	assert.Equal(t, 1, resourceNodes)
	assert.Equal(t, 1, discovered)
}

func TestResourceExtractionCapsArrays(t *testing.T) {
	g := New()

	items := make([]any, 25)
	for i := range items {
		items[i] = map[string]any{"itemId": "item-" + strconv.Itoa(i)}
	}

	nodeID := g.AddPendingTool("listItems")
	g.RecordToolExecution(nodeID, map[string]any{"items": items}, nil)

	var resourceNodes int
	for _, n := range g.Serialize().Nodes {
		if n.Type == NodeTypeResource {
			resourceNodes++
		}
	}
	assert.Equal(t, maxArrayItems, resourceNodes)
}

func TestResourceValuePredicate(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"plain_id", "abc-123", true},
		{"url_rejected", "https://example.com/x", false},
		{"double_space_rejected", "two  spaces", false},
		{"four_words_rejected", "one two three four", false},
		{"three_words_accepted", "one two three", true},
		{"empty_rejected", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isIDLikeValue(tt.value))
		})
	}
}

func TestGraphFieldPredicate(t *testing.T) {
	assert.True(t, isGraphIDField("projectId"))
	assert.True(t, isGraphIDField("issueKey"))
	assert.True(t, isGraphIDField("slug"))
	assert.True(t, isGraphIDField("name"))
	assert.False(t, isGraphIDField("apiKey"))
	assert.False(t, isGraphIDField("secretKey"))
	assert.False(t, isGraphIDField("description"))
}

func TestResetClearsEverything(t *testing.T) {
	g := New()
	id := g.AddPendingTool("tool")
	g.RecordToolExecution(id, map[string]any{"userId": "u-1"}, nil)

	g.Reset()

	snap := g.Serialize()
	assert.Empty(t, snap.Nodes)
	assert.Empty(t, snap.Edges)
	assert.Empty(t, snap.ToolResults)
}
