package graph

import (
	"strings"

	"github.com/iamsonidarshan/mcp-inspector/pkg/envelope"
)

// Flatten reduces a tool result to a flat key → value map. The MCP envelope
// is unwrapped first. Object leaves are recorded at both the bare key and the
// full dotted path, so "user.id" and "id" both resolve. Arrays contribute
// their first element's leaves plus the full array under "<prefix>_array".
func Flatten(result any) map[string]any {
	flat := make(map[string]any)
	flattenInto(flat, envelope.Unwrap(result), "")
	return flat
}

func flattenInto(flat map[string]any, value any, prefix string) {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			flattenInto(flat, item, path)
		}

	case []any:
		// Only the first element is representative; the rest usually repeat
		// the same shape.
		if len(v) >= 1 {
			flattenInto(flat, v[0], prefix)
		}
		key := "array"
		if prefix != "" {
			key = prefix + "_array"
		}
		flat[key] = v

	default:
		if prefix == "" {
			return
		}
		flat[prefix] = v
		if i := strings.LastIndex(prefix, "."); i >= 0 {
			flat[prefix[i+1:]] = v
		}
	}
}
