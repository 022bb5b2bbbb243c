// Package envelope unwraps MCP tool-call result envelopes.
//
// Tool results arrive as {"content":[{"type":"text","text":...}]} where the
// text payload is typically itself JSON-encoded. Both the indexer and the
// resource graph need the decoded payload, with identical fan-out rules.
package envelope

import "encoding/json"

// Unwrap decodes the text items of a tool-call envelope. When the response is
// an object with a content array of text items, each text is attempted as
// JSON: exactly one successful parse replaces the response, several become a
// slice of parsed values, and none keeps the original response unchanged.
func Unwrap(response any) any {
	obj, ok := response.(map[string]any)
	if !ok {
		return response
	}
	content, ok := obj["content"].([]any)
	if !ok {
		return response
	}

	var parsed []any
	for _, item := range content {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if m["type"] != "text" {
			continue
		}
		text, ok := m["text"].(string)
		if !ok {
			continue
		}
		var value any
		if err := json.Unmarshal([]byte(text), &value); err == nil {
			parsed = append(parsed, value)
		}
	}

	switch len(parsed) {
	case 0:
		return response
	case 1:
		return parsed[0]
	default:
		return parsed
	}
}
