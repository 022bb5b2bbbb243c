package graph

import "strings"

// maxContextWords is the word count above which a string is redacted from the
// LLM context. Independent from the indexer's 200-char parent-context cap.
const maxContextWords = 100

const redactedPlaceholder = "[REDACTED - long content]"

// sanitizeForLLM trims values before they enter an LLM prompt: very long
// strings are redacted, arrays are truncated to their first ten elements,
// objects are recursed.
func sanitizeForLLM(value any) any {
	switch v := value.(type) {
	case string:
		if len(strings.Fields(v)) > maxContextWords {
			return redactedPlaceholder
		}
		return v

	case []any:
		limit := len(v)
		if limit > maxArrayItems {
			limit = maxArrayItems
		}
		out := make([]any, limit)
		for i := 0; i < limit; i++ {
			out[i] = sanitizeForLLM(v[i])
		}
		return out

	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = sanitizeForLLM(item)
		}
		return out

	default:
		return v
	}
}
