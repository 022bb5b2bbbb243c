package indexer

import (
	"regexp"
	"strconv"
	"strings"

	envpkg "github.com/iamsonidarshan/mcp-inspector/pkg/envelope"
)

// Resource types assigned by detectType.
const (
	TypeUUID    = "uuid"
	TypeNumeric = "numeric"
	TypePath    = "path"
	TypeSlug    = "slug"
	TypeUnknown = "unknown"
)

const (
	// maxIDLength is the longest string considered as an identifier.
	maxIDLength = 500

	// maxContextStringLength truncates parent-context strings.
	maxContextStringLength = 200

	// minNumericID filters out counts, ages, scores and other small numbers
	// that happen to sit under an ID-like field.
	minNumericID = 100
)

var (
	uuidPattern         = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)
	ariPattern          = regexp.MustCompile(`^ari:cloud:[a-z]+::[a-z0-9-]+/[a-z0-9-]+$`)
	atlassianKeyPattern = regexp.MustCompile(`^[A-Z]+-[0-9]+$`)
	numericPattern      = regexp.MustCompile(`^[0-9]{3,}$`)
	pathPattern         = regexp.MustCompile(`^/[\w\-/]+$`)
	slugPattern         = regexp.MustCompile(`(?i)^[a-z0-9]+[-_][a-z0-9]+[-_a-z0-9]*$`)
)

// idFieldNames are field names that denote identifiers, matched exactly or as
// a suffix, case-insensitively.
var idFieldNames = []string{
	"id", "uuid", "key", "resourceId", "objectId", "entityId", "userId",
	"accountId", "projectId", "issueId", "pageId", "spaceId", "ari",
	"cloudId", "siteId", "workspaceId", "boardId", "ticketId", "documentId",
	"fileId", "folderId", "groupId", "teamId", "channelId", "conversationId",
	"messageId", "attachmentId", "commentId", "self",
}

// candidate is an identifier discovered during traversal.
type candidate struct {
	id            string
	resourceType  string
	fieldName     string
	fieldPath     string
	parentContext map[string]any
}

// isIDLikeField reports whether a field name denotes an identifier.
func isIDLikeField(name string) bool {
	lower := strings.ToLower(name)
	for _, idName := range idFieldNames {
		idLower := strings.ToLower(idName)
		if lower == idLower || strings.HasSuffix(lower, idLower) {
			return true
		}
	}
	return false
}

// detectType classifies a string value, first match wins.
// Empty or overly long strings yield no type.
func detectType(value string) (string, bool) {
	if value == "" || len(value) > maxIDLength {
		return "", false
	}

	switch {
	case uuidPattern.MatchString(value):
		return TypeUUID, true
	case ariPattern.MatchString(value):
		return TypePath, true
	case atlassianKeyPattern.MatchString(value):
		return TypeSlug, true
	case numericPattern.MatchString(value):
		return TypeNumeric, true
	case pathPattern.MatchString(value):
		return TypePath, true
	case slugPattern.MatchString(value):
		return TypeSlug, true
	default:
		return "", false
	}
}

// extract walks a tool response and returns identifier candidates.
func extract(response any) []candidate {
	var found []candidate
	walk(envpkg.Unwrap(response), "", "", nil, &found)
	return found
}

// fieldNameOf strips array indices from the last path segment.
func fieldNameOf(fieldName string) string {
	if i := strings.Index(fieldName, "["); i >= 0 {
		return fieldName[:i]
	}
	return fieldName
}

func walk(value any, fieldName, path string, parentObj map[string]any, found *[]candidate) {
	switch v := value.(type) {
	case string:
		name := fieldNameOf(fieldName)
		if isIDLikeField(name) {
			if resourceType, ok := detectType(v); ok {
				*found = append(*found, candidate{
					id:            v,
					resourceType:  resourceType,
					fieldName:     name,
					fieldPath:     path,
					parentContext: sanitizeContext(parentObj, name),
				})
			}
			return
		}
		// Strong patterns are indexed even under non-ID-like field names.
		if len(v) > 0 && len(v) <= maxIDLength &&
			(uuidPattern.MatchString(v) || atlassianKeyPattern.MatchString(v)) {
			resourceType, _ := detectType(v)
			*found = append(*found, candidate{
				id:            v,
				resourceType:  resourceType,
				fieldName:     name,
				fieldPath:     path,
				parentContext: sanitizeContext(parentObj, name),
			})
		}

	case float64:
		name := fieldNameOf(fieldName)
		if v > minNumericID && isIDLikeField(name) {
			*found = append(*found, candidate{
				id:            strconv.FormatFloat(v, 'f', -1, 64),
				resourceType:  TypeNumeric,
				fieldName:     name,
				fieldPath:     path,
				parentContext: sanitizeContext(parentObj, name),
			})
		}

	case []any:
		for i, item := range v {
			itemPath := path + "[" + strconv.Itoa(i) + "]"
			itemParent := parentObj
			if obj, ok := item.(map[string]any); ok {
				itemParent = obj
			}
			walk(item, fieldName+"["+strconv.Itoa(i)+"]", itemPath, itemParent, found)
		}

	case map[string]any:
		for key, item := range v {
			itemPath := key
			if path != "" {
				itemPath = path + "." + key
			}
			walk(item, key, itemPath, v, found)
		}
	}
}

// sanitizeContext keeps the primitive siblings of the identifier field,
// truncating long strings.
func sanitizeContext(parentObj map[string]any, fieldName string) map[string]any {
	if parentObj == nil {
		return nil
	}

	context := make(map[string]any)
	for key, value := range parentObj {
		if key == fieldName {
			continue
		}
		switch v := value.(type) {
		case string:
			if len(v) > maxContextStringLength {
				v = v[:maxContextStringLength] + "..."
			}
			context[key] = v
		case float64, bool:
			context[key] = v
		}
	}
	if len(context) == 0 {
		return nil
	}
	return context
}
