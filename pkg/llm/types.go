// Package llm implements the model capability used by the agent: dependency
// analysis, parameter extraction, and next-tool selection. Provider variants
// (Anthropic, Gemini, OpenAI) differ only in transport; prompts, parsing and
// fallback policies are shared.
//
// None of the three operations propagate transport or parse errors: a failed
// or malformed model reply degrades to a deterministic fallback.
package llm

import (
	"context"

	"github.com/iamsonidarshan/mcp-inspector/pkg/protocol"
)

// Dependency names a parameter that a prior tool's output can satisfy.
type Dependency struct {
	ParamName   string  `json:"paramName"`
	SourceTool  string  `json:"sourceTool"`
	SourceField string  `json:"sourceField"`
	Confidence  float64 `json:"confidence"`
}

// DependencyAnalysis is the model's per-tool verdict on execution order and
// parameter provenance.
type DependencyAnalysis struct {
	Tool                     string       `json:"tool"`
	RequiredParams           []string     `json:"requiredParams"`
	CanExecuteWithoutContext bool         `json:"canExecuteWithoutContext"`
	SuggestedOrder           int          `json:"suggestedOrder"`
	Dependencies             []Dependency `json:"dependencies"`
}

// ParameterExtraction is the model's best-effort parameter mapping for a tool.
// Sources values use the "toolName.fieldPath" convention; only the token
// before the first dot identifies the source tool.
type ParameterExtraction struct {
	Params        map[string]any    `json:"params"`
	Sources       map[string]string `json:"sources"`
	Confidence    float64           `json:"confidence"`
	MissingParams []string          `json:"missingParams"`
}

// ToolSelection is the model's pick for the next tool. An empty Tool means
// no further tool should run; Reason says why.
type ToolSelection struct {
	Tool   string `json:"tool"`
	Reason string `json:"reason"`
}

// Context is the flattened, sanitized result map per executed tool, as
// produced by the resource graph.
type Context = map[string]map[string]any

// Provider is the three-operation capability the orchestrator consumes.
type Provider interface {
	AnalyzeToolDependencies(ctx context.Context, tools []protocol.ToolInfo) []DependencyAnalysis
	ExtractParameters(ctx context.Context, tool protocol.ToolInfo, toolContext Context) ParameterExtraction
	SelectNextTool(ctx context.Context, tools []protocol.ToolInfo, executed []string, toolContext Context, currentDepth, maxDepth int) ToolSelection
	Name() string
}

// Completer is the thin transport each provider variant implements: one
// prompt in, one text reply out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}
