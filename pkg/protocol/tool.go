package protocol

// ToolParameter describes one input parameter of a tool.
type ToolParameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Required    bool     `json:"required"`
}

// ToolInfo describes a tool exposed by the downstream server.
// Names are unique within a session.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  []ToolParameter `json:"parameters,omitempty"`
}

// RequiredParams returns the names of the required parameters.
func (t ToolInfo) RequiredParams() []string {
	var required []string
	for _, p := range t.Parameters {
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return required
}

// ParseToolInfo builds a ToolInfo from a raw tools/list entry with a JSON
// Schema inputSchema.
func ParseToolInfo(raw map[string]any) ToolInfo {
	info := ToolInfo{}
	info.Name, _ = raw["name"].(string)
	info.Description, _ = raw["description"].(string)

	schema, ok := raw["inputSchema"].(map[string]any)
	if !ok {
		return info
	}

	requiredSet := map[string]bool{}
	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			if name, ok := r.(string); ok {
				requiredSet[name] = true
			}
		}
	}

	properties, ok := schema["properties"].(map[string]any)
	if !ok {
		return info
	}

	for paramName, paramRaw := range properties {
		paramMap, ok := paramRaw.(map[string]any)
		if !ok {
			continue
		}

		param := ToolParameter{
			Name:     paramName,
			Required: requiredSet[paramName],
		}
		param.Type, _ = paramMap["type"].(string)
		param.Description, _ = paramMap["description"].(string)
		if enum, ok := paramMap["enum"].([]any); ok {
			for _, e := range enum {
				if s, ok := e.(string); ok {
					param.Enum = append(param.Enum, s)
				}
			}
		}

		info.Parameters = append(info.Parameters, param)
	}

	return info
}

// InputSchema reconstructs the JSON Schema form of the tool's parameters.
func (t ToolInfo) InputSchema() map[string]any {
	properties := make(map[string]any, len(t.Parameters))
	required := []string{}

	for _, p := range t.Parameters {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
