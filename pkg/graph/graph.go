// Package graph maintains the in-memory provenance DAG of an agent run.
//
// Nodes are tool invocations and discovered identifiers; edges record which
// tool provided which parameter ("provided_<param>") and which tool surfaced
// which identifier ("discovered"). The graph doubles as the context source
// for LLM parameter extraction and as the visualization payload for the UI.
package graph

import (
	"fmt"
	"sync"
	"time"
)

type NodeType string

const (
	NodeTypeTool     NodeType = "tool"
	NodeTypeResource NodeType = "resource"
)

type NodeStatus string

const (
	StatusPending   NodeStatus = "pending"
	StatusRunning   NodeStatus = "running"
	StatusCompleted NodeStatus = "completed"
	StatusFailed    NodeStatus = "failed"
	StatusSkipped   NodeStatus = "skipped"
)

// terminal reports whether a status admits no further transitions.
func terminal(s NodeStatus) bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Node is a tool invocation or a discovered identifier.
type Node struct {
	ID        string         `json:"id"`
	Type      NodeType       `json:"type"`
	Name      string         `json:"name"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Status    NodeStatus     `json:"status"`

	seq int64
}

// Edge is a directed provenance link between two nodes.
type Edge struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Relation  string `json:"relation"`
	ParamName string `json:"paramName,omitempty"`
}

// Snapshot is the serializable view of a graph.
type Snapshot struct {
	Nodes       []*Node                   `json:"nodes"`
	Edges       []*Edge                   `json:"edges"`
	ToolResults map[string]map[string]any `json:"toolResults"`
}

// Graph is owned by a single orchestrator; reads from the control surface may
// race with the run loop, so all access is guarded.
type Graph struct {
	mu          sync.RWMutex
	nodes       map[string]*Node
	order       []string
	edges       []*Edge
	toolResults map[string]map[string]any

	nextSeq  int64
	nextEdge int64
}

func New() *Graph {
	return &Graph{
		nodes:       make(map[string]*Node),
		toolResults: make(map[string]map[string]any),
	}
}

// AddPendingTool creates a pending tool node and returns its id.
// Tool node ids are time-unique within a run.
func (g *Graph) AddPendingTool(name string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextSeq++
	id := fmt.Sprintf("tool_%s_%d", name, time.Now().UnixNano())
	if _, exists := g.nodes[id]; exists {
		id = fmt.Sprintf("%s_%d", id, g.nextSeq)
	}
	g.nodes[id] = &Node{
		ID:        id,
		Type:      NodeTypeTool,
		Name:      name,
		Data:      map[string]any{},
		Timestamp: time.Now().UnixMilli(),
		Status:    StatusPending,
		seq:       g.nextSeq,
	}
	g.order = append(g.order, id)
	return id
}

// MarkToolRunning transitions a pending tool node to running and records its
// resolved parameters. Unknown node ids are silently ignored.
func (g *Graph) MarkToolRunning(nodeID string, params map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[nodeID]
	if !ok || terminal(node.Status) {
		return
	}
	node.Status = StatusRunning
	node.Data["params"] = params
}

// RecordToolExecution completes a tool node: stores the result, publishes the
// flattened result under the tool name, adds one provenance edge per resolved
// parameter source, then extracts resource nodes from the result.
// Unknown node ids are silently ignored.
func (g *Graph) RecordToolExecution(nodeID string, result any, paramSources map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[nodeID]
	if !ok || terminal(node.Status) {
		return
	}

	node.Status = StatusCompleted
	node.Data["result"] = result

	// Most recent result wins.
	g.toolResults[node.Name] = Flatten(result)

	for paramName, sourceID := range paramSources {
		if _, ok := g.nodes[sourceID]; !ok {
			continue
		}
		g.addEdge(sourceID, nodeID, "provided_"+paramName, paramName)
	}

	g.extractResources(node, result)
}

// MarkToolFailed transitions a tool node to failed with an error message.
// Unknown node ids are silently ignored.
func (g *Graph) MarkToolFailed(nodeID string, errMsg string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[nodeID]
	if !ok || terminal(node.Status) {
		return
	}
	node.Status = StatusFailed
	node.Data["error"] = errMsg
}

// MarkToolSkipped transitions a tool node to skipped, recording why and which
// parameters were missing. Unknown node ids are silently ignored.
func (g *Graph) MarkToolSkipped(nodeID, reason string, missingParams []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[nodeID]
	if !ok || terminal(node.Status) {
		return
	}
	node.Status = StatusSkipped
	node.Data["reason"] = reason
	if len(missingParams) > 0 {
		node.Data["missingParams"] = missingParams
	}
}

// addEdge appends an edge; callers hold g.mu and have checked endpoints.
func (g *Graph) addEdge(source, target, relation, paramName string) {
	g.nextEdge++
	g.edges = append(g.edges, &Edge{
		ID:        fmt.Sprintf("edge_%d", g.nextEdge),
		Source:    source,
		Target:    target,
		Relation:  relation,
		ParamName: paramName,
	})
}

// NodeIDForTool returns the most recently added tool node with that name.
// Used to resolve parameter sources to concrete nodes.
func (g *Graph) NodeIDForTool(name string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var best *Node
	for _, node := range g.nodes {
		if node.Type != NodeTypeTool || node.Name != name {
			continue
		}
		if best == nil || node.seq > best.seq {
			best = node
		}
	}
	if best == nil {
		return "", false
	}
	return best.ID, true
}

// Node returns a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[id]
	return node, ok
}

// ToolResult returns the flattened result of a tool's most recent completion.
func (g *Graph) ToolResult(toolName string) (map[string]any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	flat, ok := g.toolResults[toolName]
	return flat, ok
}

// AvailableContext returns tool name → sanitized flattened result, the sole
// input to LLM parameter extraction.
func (g *Graph) AvailableContext() map[string]map[string]any {
	g.mu.RLock()
	defer g.mu.RUnlock()

	context := make(map[string]map[string]any, len(g.toolResults))
	for toolName, flat := range g.toolResults {
		sanitized := make(map[string]any, len(flat))
		for key, value := range flat {
			sanitized[key] = sanitizeForLLM(value)
		}
		context[toolName] = sanitized
	}
	return context
}

// Serialize returns a snapshot of the graph in insertion order.
func (g *Graph) Serialize() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := &Snapshot{
		Nodes:       make([]*Node, 0, len(g.order)),
		Edges:       make([]*Edge, len(g.edges)),
		ToolResults: make(map[string]map[string]any, len(g.toolResults)),
	}
	for _, id := range g.order {
		snap.Nodes = append(snap.Nodes, g.nodes[id])
	}
	copy(snap.Edges, g.edges)
	for k, v := range g.toolResults {
		snap.ToolResults[k] = v
	}
	return snap
}

// Reset clears all nodes, edges and results for a new run.
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]*Node)
	g.order = nil
	g.edges = nil
	g.toolResults = make(map[string]map[string]any)
}
