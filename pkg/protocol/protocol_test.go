package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageClassification(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		isRequest  bool
		isResponse bool
	}{
		{"request", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, true, false},
		{"notification", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, true, false},
		{"result_response", `{"jsonrpc":"2.0","id":1,"result":{}}`, false, true},
		{"error_response", `{"jsonrpc":"2.0","id":1,"error":{"code":-32600,"message":"x"}}`, false, true},
		{"id_without_payload", `{"jsonrpc":"2.0","id":1}`, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg Message
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &msg))
			assert.Equal(t, tt.isRequest, msg.IsRequest())
			assert.Equal(t, tt.isResponse, msg.IsResponse())
		})
	}
}

func TestIDKeyDistinguishesTypes(t *testing.T) {
	var numeric, str Message
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"method":"m"}`), &numeric))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","method":"m"}`), &str))

	// JSON numbers decode as float64, so the rendered keys differ per type.
	assert.NotEmpty(t, numeric.IDKey())
	assert.NotEmpty(t, str.IDKey())
}

func TestToolNameFromCallRequest(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"getUser","arguments":{}}}`), &msg))
	assert.Equal(t, "getUser", msg.ToolName())

	assert.Empty(t, Message{"method": "tools/call"}.ToolName())
}

func TestNewErrorResponseShape(t *testing.T) {
	msg := NewErrorResponse(float64(7), -32001, "ECONNRESET", "ECONNRESET")

	assert.Equal(t, float64(7), msg.ID())
	assert.True(t, msg.IsResponse())
	errObj, ok := msg["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, -32001, errObj["code"])
	assert.Equal(t, "ECONNRESET", errObj["message"])
}

func TestParseToolInfo(t *testing.T) {
	raw := map[string]any{
		"name":        "createIssue",
		"description": "Creates an issue",
		"inputSchema": map[string]any{
			"type":     "object",
			"required": []any{"projectId", "summary"},
			"properties": map[string]any{
				"projectId": map[string]any{"type": "string", "description": "Target project"},
				"summary":   map[string]any{"type": "string"},
				"priority":  map[string]any{"type": "string", "enum": []any{"low", "high"}},
			},
		},
	}

	info := ParseToolInfo(raw)
	assert.Equal(t, "createIssue", info.Name)
	assert.Equal(t, "Creates an issue", info.Description)
	require.Len(t, info.Parameters, 3)
	assert.ElementsMatch(t, []string{"projectId", "summary"}, info.RequiredParams())

	for _, p := range info.Parameters {
		if p.Name == "priority" {
			assert.Equal(t, []string{"low", "high"}, p.Enum)
			assert.False(t, p.Required)
		}
	}
}

func TestParseToolInfoWithoutSchema(t *testing.T) {
	info := ParseToolInfo(map[string]any{"name": "ping"})
	assert.Equal(t, "ping", info.Name)
	assert.Empty(t, info.Parameters)
	assert.Empty(t, info.RequiredParams())
}

func TestInputSchemaRoundTrip(t *testing.T) {
	info := ToolInfo{
		Name: "getUser",
		Parameters: []ToolParameter{
			{Name: "userId", Type: "string", Required: true},
			{Name: "expand", Type: "string", Enum: []string{"groups"}},
		},
	}

	schema := info.InputSchema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"userId"}, schema["required"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, "userId")
	require.Contains(t, props, "expand")
}
