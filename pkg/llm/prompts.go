package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iamsonidarshan/mcp-inspector/pkg/protocol"
)

// The prompt templates are part of the behavioral contract: changing their
// wording changes which tools the agent picks and how parameters resolve.

func describeTool(t protocol.ToolInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- %s", t.Name)
	if t.Description != "" {
		fmt.Fprintf(&b, ": %s", t.Description)
	}
	b.WriteString("\n")
	for _, p := range t.Parameters {
		req := "optional"
		if p.Required {
			req = "required"
		}
		fmt.Fprintf(&b, "    - %s (%s, %s)", p.Name, p.Type, req)
		if p.Description != "" {
			fmt.Fprintf(&b, ": %s", p.Description)
		}
		if len(p.Enum) > 0 {
			fmt.Fprintf(&b, " [one of: %s]", strings.Join(p.Enum, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func describeTools(tools []protocol.ToolInfo) string {
	var b strings.Builder
	for _, t := range tools {
		b.WriteString(describeTool(t))
	}
	return b.String()
}

func marshalContext(toolContext Context) string {
	if len(toolContext) == 0 {
		return "{}"
	}
	data, err := json.Marshal(toolContext)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// analyzePrompt asks for the dependency analysis of the full tool catalog.
func analyzePrompt(tools []protocol.ToolInfo) string {
	return fmt.Sprintf(`You are analyzing the tools exposed by an MCP server to plan an execution order.

Tools:
%s
For each tool, determine:
1. Which parameters are required.
2. Whether it can execute with no prior context (no required parameters, or all resolvable without other tools).
3. A suggested execution order (1 = first).
4. Which parameters depend on the output of other tools, and from which field.

Respond with a JSON array, one entry per tool:
[{"tool": "<name>", "requiredParams": ["..."], "canExecuteWithoutContext": true, "suggestedOrder": 1, "dependencies": [{"paramName": "...", "sourceTool": "...", "sourceField": "...", "confidence": 0.9}]}]

Output raw JSON only. Do not wrap the response in markdown code fences.`,
		describeTools(tools))
}

// extractPrompt asks for parameter values for one tool given the context map.
func extractPrompt(tool protocol.ToolInfo, toolContext Context) string {
	schema, _ := json.Marshal(tool.InputSchema())
	return fmt.Sprintf(`You are filling in the parameters of a tool call using data already gathered from previous tool executions.

Target tool: %s
%sInput schema: %s

Available context (tool name -> flattened result of its last execution):
%s

Map values from the context to the tool's parameters. For every parameter you fill, record its provenance in "sources" as "toolName.fieldPath". List required parameters you could not resolve in "missingParams" and rate your overall confidence from 0 to 1.

Respond with JSON:
{"params": {"<name>": <value>}, "sources": {"<name>": "toolName.fieldPath"}, "confidence": 0.8, "missingParams": []}

Output raw JSON only. Do not wrap the response in markdown code fences.`,
		tool.Name, describeTool(tool), string(schema), marshalContext(toolContext))
}

// selectPrompt asks for the next tool to execute from the unexecuted subset.
func selectPrompt(tools []protocol.ToolInfo, executed []string, toolContext Context, currentDepth, maxDepth int) string {
	executedList := "(none)"
	if len(executed) > 0 {
		executedList = strings.Join(executed, ", ")
	}

	var unexecuted []protocol.ToolInfo
	executedSet := make(map[string]bool, len(executed))
	for _, name := range executed {
		executedSet[name] = true
	}
	for _, t := range tools {
		if !executedSet[t.Name] {
			unexecuted = append(unexecuted, t)
		}
	}

	return fmt.Sprintf(`You are driving an autonomous exploration of an MCP server, one tool call at a time.

Already executed - do not select any of these: %s

Candidate tools:
%s
Current context (tool name -> flattened result):
%s

Depth: %d of %d.

Pick the single best next tool, preferring in order:
1. Tools that take no arguments.
2. Search or list style tools that enumerate resources.
3. Get style tools whose required parameters are resolvable from the context.
4. Mutating tools (create/update/delete) last, and only when their parameters are fully resolvable.

If no candidate can run with the available context, return null for the tool.

Respond with JSON:
{"tool": "<name>" or null, "reason": "<one sentence>"}

Output raw JSON only. Do not wrap the response in markdown code fences.`,
		executedList, describeTools(unexecuted), marshalContext(toolContext), currentDepth, maxDepth)
}
