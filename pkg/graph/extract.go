package graph

import (
	"strings"

	"github.com/iamsonidarshan/mcp-inspector/pkg/envelope"
)

// maxArrayItems caps traversal of arrays during resource extraction.
const maxArrayItems = 10

// graphIDFields are exact matches accepted by the graph's loose predicate.
var graphIDFields = map[string]bool{
	"uuid":       true,
	"slug":       true,
	"name":       true,
	"code":       true,
	"handle":     true,
	"identifier": true,
}

// isGraphIDField is the graph's loose field predicate. The graph wants
// coverage for visualization, not the indexer's purity.
func isGraphIDField(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, "id") {
		return true
	}
	if strings.HasSuffix(lower, "key") &&
		!strings.Contains(lower, "api") && !strings.Contains(lower, "secret") {
		return true
	}
	return graphIDFields[lower]
}

// isIDLikeValue filters out prose and URLs.
func isIDLikeValue(value string) bool {
	if len(value) == 0 || len(value) > 100 {
		return false
	}
	if strings.Contains(value, "  ") {
		return false
	}
	if len(strings.Fields(value)) > 3 {
		return false
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return false
	}
	return true
}

// extractResources walks a completed tool's result and adds one resource node
// per newly seen (fieldName, value) pair, with a "discovered" edge from the
// tool node. Callers hold g.mu.
func (g *Graph) extractResources(toolNode *Node, result any) {
	g.walkResources(toolNode, envelope.Unwrap(result), "")
}

func (g *Graph) walkResources(toolNode *Node, value any, fieldName string) {
	switch v := value.(type) {
	case string:
		if fieldName == "" || !isGraphIDField(fieldName) || !isIDLikeValue(v) {
			return
		}
		g.addResourceNode(toolNode, fieldName, v)

	case []any:
		for i, item := range v {
			if i >= maxArrayItems {
				break
			}
			g.walkResources(toolNode, item, fieldName)
		}

	case map[string]any:
		for key, item := range v {
			g.walkResources(toolNode, item, key)
		}
	}
}

// addResourceNode creates the synthetic resource node once per
// (fieldName, value) across the graph's lifetime. Callers hold g.mu.
func (g *Graph) addResourceNode(toolNode *Node, fieldName, value string) {
	id := "resource_" + fieldName + "_" + value
	if _, exists := g.nodes[id]; exists {
		return
	}

	g.nextSeq++
	g.nodes[id] = &Node{
		ID:   id,
		Type: NodeTypeResource,
		Name: value,
		Data: map[string]any{
			"fieldName": fieldName,
			"value":     value,
		},
		Timestamp: toolNode.Timestamp,
		Status:    StatusCompleted,
		seq:       g.nextSeq,
	}
	g.order = append(g.order, id)

	g.addEdge(toolNode.ID, id, "discovered", fieldName)
}
