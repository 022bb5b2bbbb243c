package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iamsonidarshan/mcp-inspector/pkg/protocol"
)

// Client implements Provider on top of a Completer transport.
type Client struct {
	completer Completer
}

// NewClient wraps a provider transport with the shared prompt, parsing and
// fallback logic.
func NewClient(completer Completer) *Client {
	return &Client{completer: completer}
}

func (c *Client) Name() string {
	return c.completer.Name()
}

// stripFences removes leading/trailing markdown code fences. Models emit
// them despite instructions not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// AnalyzeToolDependencies asks the model for a per-tool dependency analysis.
// Transport and parse failures degrade to a schema-derived fallback.
func (c *Client) AnalyzeToolDependencies(ctx context.Context, tools []protocol.ToolInfo) []DependencyAnalysis {
	reply, err := c.completer.Complete(ctx, analyzePrompt(tools))
	if err != nil {
		slog.Warn("Dependency analysis failed, using schema fallback", "provider", c.Name(), "error", err)
		return fallbackAnalysis(tools)
	}

	var analysis []DependencyAnalysis
	if err := json.Unmarshal([]byte(stripFences(reply)), &analysis); err != nil {
		slog.Warn("Dependency analysis unparseable, using schema fallback", "provider", c.Name(), "error", err)
		return fallbackAnalysis(tools)
	}
	return analysis
}

// ExtractParameters asks the model to fill a tool's parameters from context.
// Failures degrade to an empty extraction that lists all required parameters
// as missing.
func (c *Client) ExtractParameters(ctx context.Context, tool protocol.ToolInfo, toolContext Context) ParameterExtraction {
	reply, err := c.completer.Complete(ctx, extractPrompt(tool, toolContext))
	if err != nil {
		slog.Warn("Parameter extraction failed, using empty fallback", "provider", c.Name(), "tool", tool.Name, "error", err)
		return fallbackExtraction(tool)
	}

	var extraction ParameterExtraction
	if err := json.Unmarshal([]byte(stripFences(reply)), &extraction); err != nil {
		slog.Warn("Parameter extraction unparseable, using empty fallback", "provider", c.Name(), "tool", tool.Name, "error", err)
		return fallbackExtraction(tool)
	}

	// Partial replies are normalized rather than rejected.
	if extraction.Params == nil {
		extraction.Params = map[string]any{}
	}
	if extraction.Sources == nil {
		extraction.Sources = map[string]string{}
	}
	return extraction
}

// rawSelection tolerates a null tool in the model reply.
type rawSelection struct {
	Tool   any    `json:"tool"`
	Reason string `json:"reason"`
}

func (r rawSelection) toSelection() (ToolSelection, bool) {
	sel := ToolSelection{Reason: r.Reason}
	switch v := r.Tool.(type) {
	case string:
		sel.Tool = v
		return sel, true
	case nil:
		return sel, true
	default:
		return sel, false
	}
}

// SelectNextTool asks the model to pick the next tool from the unexecuted
// subset. Depth exhaustion and full execution short-circuit before any model
// call; failures degrade to a deterministic heuristic.
func (c *Client) SelectNextTool(ctx context.Context, tools []protocol.ToolInfo, executed []string, toolContext Context, currentDepth, maxDepth int) ToolSelection {
	if currentDepth >= maxDepth {
		return ToolSelection{Reason: "Maximum depth reached"}
	}

	unexecuted := unexecutedTools(tools, executed)
	if len(unexecuted) == 0 {
		return ToolSelection{Reason: "All tools have been executed"}
	}

	reply, err := c.completer.Complete(ctx, selectPrompt(tools, executed, toolContext, currentDepth, maxDepth))
	if err != nil {
		slog.Warn("Tool selection failed, using heuristic fallback", "provider", c.Name(), "error", err)
		return fallbackSelection(unexecuted, toolContext)
	}

	stripped := stripFences(reply)

	// Some models reply with a single-element array.
	var asArray []rawSelection
	if err := json.Unmarshal([]byte(stripped), &asArray); err == nil {
		if len(asArray) > 0 && asArray[0].Tool != nil {
			if sel, ok := asArray[0].toSelection(); ok {
				return sel
			}
		}
		return fallbackSelection(unexecuted, toolContext)
	}

	var asObject rawSelection
	if err := json.Unmarshal([]byte(stripped), &asObject); err == nil {
		if sel, ok := asObject.toSelection(); ok {
			return sel
		}
	}

	slog.Warn("Tool selection unparseable, using heuristic fallback", "provider", c.Name())
	return fallbackSelection(unexecuted, toolContext)
}

func unexecutedTools(tools []protocol.ToolInfo, executed []string) []protocol.ToolInfo {
	executedSet := make(map[string]bool, len(executed))
	for _, name := range executed {
		executedSet[name] = true
	}
	var out []protocol.ToolInfo
	for _, t := range tools {
		if !executedSet[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

// fallbackAnalysis derives the analysis from the schemas alone.
func fallbackAnalysis(tools []protocol.ToolInfo) []DependencyAnalysis {
	analysis := make([]DependencyAnalysis, 0, len(tools))
	for i, t := range tools {
		required := t.RequiredParams()
		analysis = append(analysis, DependencyAnalysis{
			Tool:                     t.Name,
			RequiredParams:           required,
			CanExecuteWithoutContext: len(required) == 0,
			SuggestedOrder:           i + 1,
			Dependencies:             []Dependency{},
		})
	}
	return analysis
}

// fallbackExtraction reports every required parameter as missing.
func fallbackExtraction(tool protocol.ToolInfo) ParameterExtraction {
	missing := tool.RequiredParams()
	if missing == nil {
		missing = []string{}
	}
	return ParameterExtraction{
		Params:        map[string]any{},
		Sources:       map[string]string{},
		Confidence:    0,
		MissingParams: missing,
	}
}

// fallbackSelection picks a parameterless tool first, then a tool whose
// required parameter names all appear somewhere in the context, else gives up.
func fallbackSelection(unexecuted []protocol.ToolInfo, toolContext Context) ToolSelection {
	for _, t := range unexecuted {
		if len(t.RequiredParams()) == 0 {
			return ToolSelection{Tool: t.Name, Reason: "Fallback: tool requires no parameters"}
		}
	}

	for _, t := range unexecuted {
		if requiredNamesInContext(t.RequiredParams(), toolContext) {
			return ToolSelection{Tool: t.Name, Reason: "Fallback: required parameters appear in context"}
		}
	}

	return ToolSelection{Reason: "No executable tool found without model guidance"}
}

func requiredNamesInContext(required []string, toolContext Context) bool {
	for _, name := range required {
		found := false
		for _, flat := range toolContext {
			for key, value := range flat {
				if strings.Contains(key, name) || strings.Contains(fmt.Sprint(value), name) {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

var _ Provider = (*Client)(nil)
