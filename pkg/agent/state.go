package agent

import (
	"github.com/iamsonidarshan/mcp-inspector/pkg/graph"
	"github.com/iamsonidarshan/mcp-inspector/pkg/llm"
	"github.com/iamsonidarshan/mcp-inspector/pkg/protocol"
)

// Status is the orchestrator lifecycle state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Step statuses. Skipped steps never reach the downstream server.
const (
	StepRunning   = "running"
	StepCompleted = "completed"
	StepFailed    = "failed"
	StepSkipped   = "skipped"
)

// ExecutionStep is one entry of the run history.
type ExecutionStep struct {
	ToolName         string            `json:"toolName"`
	NodeID           string            `json:"nodeId"`
	Parameters       map[string]any    `json:"parameters"`
	ParameterSources map[string]string `json:"parameterSources"`
	Status           string            `json:"status"`
	Result           any               `json:"result,omitempty"`
	Error            string            `json:"error,omitempty"`
	Timestamp        int64             `json:"timestamp"`
	Depth            int               `json:"depth"`
}

// FlaggedTool records a tool the agent declined to execute and why.
type FlaggedTool struct {
	Tool   string `json:"tool"`
	Reason string `json:"reason"`
}

// State is a point-in-time snapshot of an orchestrator run.
type State struct {
	Status           Status                   `json:"status"`
	Tools            []protocol.ToolInfo      `json:"tools"`
	Analysis         []llm.DependencyAnalysis `json:"analysis"`
	ExecutionHistory []ExecutionStep          `json:"executionHistory"`
	CurrentStep      int                      `json:"currentStep"`
	CurrentDepth     int                      `json:"currentDepth"`
	MaxDepth         int                      `json:"maxDepth"`
	FlaggedTools     []FlaggedTool            `json:"flaggedTools"`
	Graph            *graph.Snapshot          `json:"graph,omitempty"`
	StartTime        *int64                   `json:"startTime,omitempty"`
	EndTime          *int64                   `json:"endTime,omitempty"`
	Error            string                   `json:"error,omitempty"`
}
