package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
mcp:
  url: http://localhost:3000/mcp
`))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 6274, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Agent.MaxDepth)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 3, cfg.MCP.MaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.MCP.SSETimeout)
}

func TestParseDecodesFullConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  host: 0.0.0.0
  port: 8080
  auth_token: sekrit
mcp:
  command: npx
  args: "-y,@modelcontextprotocol/server-filesystem"
  sse_timeout: 30s
llm:
  provider: anthropic
  model: claude-sonnet-4-20250514
agent:
  max_depth: 4
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sekrit", cfg.Server.AuthToken)
	assert.Equal(t, "npx", cfg.MCP.Command)
	assert.Equal(t, []string{"-y", "@modelcontextprotocol/server-filesystem"}, cfg.MCP.Args)
	assert.Equal(t, 30*time.Second, cfg.MCP.SSETimeout)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 4, cfg.Agent.MaxDepth)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing_mcp_target", `server: {port: 8080}`},
		{"negative_depth", "mcp:\n  url: http://x\nagent:\n  max_depth: -1"},
		{"bad_port", "mcp:\n  url: http://x\nserver:\n  port: 70000"},
		{"not_yaml", `{{{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestEnvExpansion(t *testing.T) {
	t.Setenv("INSPECTOR_TEST_URL", "http://from-env:9000")
	t.Setenv("INSPECTOR_TEST_TOKEN", "tok-123")

	cfg, err := Parse([]byte(`
server:
  auth_token: ${INSPECTOR_TEST_TOKEN}
mcp:
  url: $INSPECTOR_TEST_URL
llm:
  api_key: ${INSPECTOR_TEST_UNSET:-fallback-key}
`))
	require.NoError(t, err)

	assert.Equal(t, "tok-123", cfg.Server.AuthToken)
	assert.Equal(t, "http://from-env:9000", cfg.MCP.URL)
	assert.Equal(t, "fallback-key", cfg.LLM.APIKey)
}

func TestEnvExpansionPrefersSetVariable(t *testing.T) {
	t.Setenv("INSPECTOR_TEST_MODEL", "gpt-4o")

	cfg, err := Parse([]byte(`
mcp:
  url: http://x
llm:
  model: ${INSPECTOR_TEST_MODEL:-default-model}
`))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
}
